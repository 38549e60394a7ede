package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrlokans/bookshelf/internal/auth"
)

// HashPasswordCommand prints a bcrypt hash for AUTH_PASSWORD_HASH.
type HashPasswordCommand struct {
	Password string
	Cost     int
	In       io.Reader
	Out      io.Writer
}

func NewHashPasswordCommand() *HashPasswordCommand {
	return &HashPasswordCommand{In: os.Stdin, Out: os.Stdout}
}

func (cmd *HashPasswordCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)

	fs.StringVar(&cmd.Password, "password", "", "Password to hash (read from stdin when omitted)")
	defaultCost := cmd.Cost
	if defaultCost == 0 {
		defaultCost = 12
	}
	fs.IntVar(&cmd.Cost, "cost", defaultCost, "bcrypt cost (default from AUTH_BCRYPT_COST)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s hash-password [-password <pw>] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print a bcrypt hash to use as AUTH_PASSWORD_HASH.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  echo 'correct horse battery' | %s hash-password\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *HashPasswordCommand) Run() error {
	password := cmd.Password
	if password == "" {
		line, err := bufio.NewReader(cmd.In).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(password, cmd.Cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Out, hash)
	return err
}
