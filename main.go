package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/bookshelf/internal/cli"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg, err := config.NewConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := entrypoint.Run(cfg, Version); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch command {
	case "routes":
		cmd = cli.NewRoutesCommand()
	case "seed":
		cmd = cli.NewSeedCommand()
	case "hash-password":
		hashCmd := cli.NewHashPasswordCommand()
		if cfg, err := config.NewConfig(); err == nil {
			hashCmd.Cost = cfg.Auth.BcryptCost
		}
		cmd = hashCmd
	case "version":
		fmt.Printf("bookshelf %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve          Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  routes         List the named routes\n")
	fmt.Fprintf(os.Stderr, "  seed           Import books from a JSON file\n")
	fmt.Fprintf(os.Stderr, "  hash-password  Print a bcrypt hash for AUTH_PASSWORD_HASH\n")
	fmt.Fprintf(os.Stderr, "  version        Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
