package http

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// BookForm is the editable part of a book, shared by the HTML form and the
// JSON API.
type BookForm struct {
	Title           string `form:"title" json:"title" binding:"required,max=200"`
	Author          string `form:"author" json:"author" binding:"required,max=100"`
	ISBN            string `form:"isbn" json:"isbn" binding:"omitempty,isbn"`
	Publisher       string `form:"publisher" json:"publisher" binding:"max=100"`
	PublicationYear int    `form:"publication_year" json:"publication_year" binding:"omitempty,min=1000,max=2100"`
	Pages           int    `form:"pages" json:"pages" binding:"min=0"`
	Description     string `form:"description" json:"description" binding:"max=5000"`
}

var errMalformedForm = errors.New("malformed form")

var formFieldNames = map[string]string{
	"Title":           "title",
	"Author":          "author",
	"ISBN":            "isbn",
	"Publisher":       "publisher",
	"PublicationYear": "publication_year",
	"Pages":           "pages",
	"Description":     "description",
}

// bindBookForm decodes the request body with the given binding, normalises
// the values and validates them. A non-nil map holds per-field messages; a
// non-nil error means the body could not be decoded at all.
func bindBookForm(c *gin.Context, b binding.Binding) (*BookForm, map[string]string, error) {
	var form BookForm
	if err := c.ShouldBindWith(&form, b); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &form, nil, errMalformedForm
		}
	}
	form.normalize()
	if err := binding.Validator.ValidateStruct(&form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &form, nil, err
		}
		return &form, fieldErrors(verrs), nil
	}
	return &form, nil, nil
}

func (f *BookForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	f.Publisher = strings.TrimSpace(f.Publisher)
	f.Description = strings.TrimSpace(f.Description)
	f.ISBN = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(f.ISBN))
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name, ok := formFieldNames[fe.Field()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if fe.Kind().String() == "string" {
			return "Must be at most " + fe.Param() + " characters."
		}
		return "Must be at most " + fe.Param() + "."
	case "min":
		return "Must be at least " + fe.Param() + "."
	case "isbn":
		return "Enter a valid ISBN-10 or ISBN-13."
	default:
		return "Invalid value."
	}
}

func (f *BookForm) apply(book *entities.Book) {
	book.Title = f.Title
	book.Author = f.Author
	book.ISBN = f.ISBN
	book.Publisher = f.Publisher
	book.PublicationYear = f.PublicationYear
	book.Pages = f.Pages
	book.Description = f.Description
}

func (f *BookForm) toBook() *entities.Book {
	book := &entities.Book{}
	f.apply(book)
	return book
}

func formFromBook(book *entities.Book) *BookForm {
	return &BookForm{
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            book.ISBN,
		Publisher:       book.Publisher,
		PublicationYear: book.PublicationYear,
		Pages:           book.Pages,
		Description:     book.Description,
	}
}
