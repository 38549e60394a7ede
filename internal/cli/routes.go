package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mrlokans/bookshelf/internal/config"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
)

// RoutesCommand prints the named route tables.
type RoutesCommand struct {
	Prefix string
	Out    io.Writer
}

func NewRoutesCommand() *RoutesCommand {
	return &RoutesCommand{Out: os.Stdout}
}

func (cmd *RoutesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("routes", flag.ContinueOnError)

	defaultPrefix := os.Getenv("BOOKS_PREFIX")
	if defaultPrefix == "" {
		defaultPrefix = config.DefaultBooksPrefix
	}
	fs.StringVar(&cmd.Prefix, "prefix", defaultPrefix, "Mount prefix for the book pages")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s routes [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List every named route with its methods and full pattern.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *RoutesCommand) Run() error {
	urls, err := http_controllers.NewURLs(cmd.Prefix)
	if err != nil {
		return fmt.Errorf("build route tables: %w", err)
	}

	w := tabwriter.NewWriter(cmd.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMETHODS\tPATTERN")
	for _, table := range urls {
		for _, route := range table.Routes() {
			pattern, err := table.FullPattern(route.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", route.Name, strings.Join(route.Methods, ","), pattern)
		}
	}
	return w.Flush()
}
