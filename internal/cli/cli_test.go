package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/bookshelf/internal/auth"
)

func TestRoutesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRoutesCommand()
	cmd.Out = &out
	require.NoError(t, cmd.ParseFlags([]string{"-prefix", "/libros"}))
	require.NoError(t, cmd.Run())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, []string{"NAME", "METHODS", "PATTERN"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"lista_libros", "GET,HEAD", "/libros/"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"detalle_libro", "GET,HEAD", "/libros/<int:id>/"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"crear_libro", "GET,HEAD,POST", "/libros/crear/"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"editar_libro", "GET,HEAD,POST", "/libros/<int:id>/editar/"}, strings.Fields(lines[4]))
	assert.Equal(t, []string{"eliminar_libro", "GET,HEAD,POST", "/libros/<int:id>/eliminar/"}, strings.Fields(lines[5]))
	assert.Equal(t, []string{"api_book_detail", "GET,HEAD,PUT,DELETE", "/api/books/<int:id>/"}, strings.Fields(lines[7]))
}

func TestHashPasswordCommand(t *testing.T) {
	t.Run("from flag", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewHashPasswordCommand()
		cmd.Out = &out
		require.NoError(t, cmd.ParseFlags([]string{"-password", "correct horse battery", "-cost", "4"}))
		require.NoError(t, cmd.Run())

		hash := strings.TrimSpace(out.String())
		assert.True(t, auth.PasswordMatches(hash, "correct horse battery"))
		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, 4, cost)
	})

	t.Run("from stdin", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewHashPasswordCommand()
		cmd.In = strings.NewReader("correct horse battery\n")
		cmd.Out = &out
		require.NoError(t, cmd.ParseFlags([]string{"-cost", "4"}))
		require.NoError(t, cmd.Run())

		assert.True(t, auth.PasswordMatches(strings.TrimSpace(out.String()), "correct horse battery"))
	})

	t.Run("empty stdin", func(t *testing.T) {
		cmd := NewHashPasswordCommand()
		cmd.In = strings.NewReader("\n")
		cmd.Out = &bytes.Buffer{}
		require.NoError(t, cmd.ParseFlags([]string{"-cost", "4"}))
		assert.ErrorIs(t, cmd.Run(), auth.ErrEmptyPassword)
	})

	t.Run("cost from config", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewHashPasswordCommand()
		cmd.Cost = 5
		cmd.Out = &out
		require.NoError(t, cmd.ParseFlags([]string{"-password", "secret"}))
		require.NoError(t, cmd.Run())

		cost, err := bcrypt.Cost([]byte(strings.TrimSpace(out.String())))
		require.NoError(t, err)
		assert.Equal(t, 5, cost)
	})
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeedCommand(t *testing.T) {
	t.Run("imports valid records", func(t *testing.T) {
		file := writeSeedFile(t, `[
			{"title": "Rayuela", "author": "Julio Cortázar", "publication_year": 1963},
			{"title": "Aura", "author": "Carlos Fuentes", "isbn": "0-306-40615-2"}
		]`)
		dbPath := filepath.Join(t.TempDir(), "seed.db")

		var out bytes.Buffer
		cmd := NewSeedCommand()
		cmd.Out = &out
		require.NoError(t, cmd.ParseFlags([]string{"-file", file, "-db", dbPath}))
		require.NoError(t, cmd.Run())

		assert.Contains(t, out.String(), "Imported 2 books (2 in database)")
	})

	t.Run("rejects invalid record without writing", func(t *testing.T) {
		file := writeSeedFile(t, `[
			{"title": "Rayuela", "author": "Julio Cortázar"},
			{"title": "", "author": "Nobody"}
		]`)
		dbPath := filepath.Join(t.TempDir(), "seed.db")

		cmd := NewSeedCommand()
		cmd.Out = &bytes.Buffer{}
		require.NoError(t, cmd.ParseFlags([]string{"-file", file, "-db", dbPath}))
		err := cmd.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record 1")

		_, statErr := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("dry run", func(t *testing.T) {
		file := writeSeedFile(t, `[{"title": "Rayuela", "author": "Julio Cortázar"}]`)
		dbPath := filepath.Join(t.TempDir(), "seed.db")

		var out bytes.Buffer
		cmd := NewSeedCommand()
		cmd.Out = &out
		require.NoError(t, cmd.ParseFlags([]string{"-file", file, "-db", dbPath, "-dry-run"}))
		require.NoError(t, cmd.Run())

		assert.Contains(t, out.String(), "DRY RUN")
		_, statErr := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("requires file flag", func(t *testing.T) {
		assert.Error(t, NewSeedCommand().ParseFlags(nil))
	})
}
