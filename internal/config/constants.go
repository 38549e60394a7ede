package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./books.db"

	// DefaultBooksPrefix is where the book pages are mounted
	DefaultBooksPrefix = "/libros"

	// DefaultEnvFile is loaded into the environment before reading config, if present
	DefaultEnvFile = ".env"
)
