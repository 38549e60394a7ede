package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// seedBook is one record of the seed file.
type seedBook struct {
	Title           string `json:"title" validate:"required,max=200"`
	Author          string `json:"author" validate:"required,max=100"`
	ISBN            string `json:"isbn" validate:"omitempty,isbn"`
	Publisher       string `json:"publisher" validate:"max=100"`
	PublicationYear int    `json:"publication_year" validate:"omitempty,min=1000,max=2100"`
	Pages           int    `json:"pages" validate:"min=0"`
	Description     string `json:"description"`
}

// SeedCommand imports books from a JSON array.
type SeedCommand struct {
	FilePath     string
	DatabasePath string
	DryRun       bool
	Out          io.Writer
}

func NewSeedCommand() *SeedCommand {
	return &SeedCommand{Out: os.Stdout}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to a JSON array of books (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Validate the file without writing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import books from a JSON file. Every record is validated first;\n")
		fmt.Fprintf(os.Stderr, "nothing is written when any record is invalid.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample file:\n")
		fmt.Fprintf(os.Stderr, "  [{\"title\": \"Rayuela\", \"author\": \"Julio Cortázar\", \"publication_year\": 1963}]\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *SeedCommand) Run() error {
	list, err := readSeedFile(cmd.FilePath)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Out, "Validated %d books from %s\n", len(list), cmd.FilePath)
	if cmd.DryRun {
		fmt.Fprintln(cmd.Out, "DRY RUN MODE - No changes were made")
		return nil
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := books.NewRepository(db.DB)
	if err := repo.CreateBatch(context.Background(), list); err != nil {
		return fmt.Errorf("import books: %w", err)
	}

	total, err := repo.Count(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Imported %d books (%d in database)\n", len(list), total)
	return nil
}

func readSeedFile(path string) ([]entities.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var records []seedBook
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	validate := validator.New()
	list := make([]entities.Book, 0, len(records))
	for i, r := range records {
		r.Title = strings.TrimSpace(r.Title)
		r.Author = strings.TrimSpace(r.Author)
		r.ISBN = strings.NewReplacer("-", "", " ", "").Replace(r.ISBN)
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("record %d (%q): %w", i, r.Title, err)
		}
		list = append(list, entities.Book{
			Title:           r.Title,
			Author:          r.Author,
			ISBN:            r.ISBN,
			Publisher:       strings.TrimSpace(r.Publisher),
			PublicationYear: r.PublicationYear,
			Pages:           r.Pages,
			Description:     strings.TrimSpace(r.Description),
		})
	}
	return list, nil
}
