// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── books/           # Book CRUD, search and pagination
//	└── audit/           # Audit event storage and retention
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./books.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
//
//	book, err := booksRepo.Get(ctx, 123)
//
// Sessions (scs) share the same sqlite file through db.DB.DB(); the task
// queue keeps its own file next to it.
package database
