package entities

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"index;size:200;not null" json:"title"`
	Author          string         `gorm:"index;size:100;not null" json:"author"`
	ISBN            string         `gorm:"index;size:20" json:"isbn,omitempty"`
	Publisher       string         `gorm:"size:100" json:"publisher,omitempty"`
	PublicationYear int            `json:"publication_year,omitempty"`
	Pages           int            `json:"pages,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	SearchText      string         `gorm:"index" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// RefreshSearchText recomputes SearchText from the title and author.
// SQLite's LOWER folds ASCII only, so searches match against this
// Go-lowercased copy instead.
func (b *Book) RefreshSearchText() {
	b.SearchText = strings.ToLower(b.Title + "\n" + b.Author)
}
