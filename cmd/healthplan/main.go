package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gmsas95/healthplan/internal/cli"
	"github.com/gmsas95/healthplan/internal/config"
)

var version = "dev"

func main() {
	cli.Version = version

	// .env files are optional
	_ = config.LoadEnvFiles()

	if len(os.Args) < 2 {
		cli.PrintHelp(os.Stdout)
		os.Exit(2)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "serve", "server":
		err = cli.HandleServeCommand(args, os.Stdout)
	case "generate":
		err = cli.HandleGenerateCommand(args, os.Stdout)
	case "weekly":
		err = cli.HandleWeeklyCommand(args, os.Stdout)
	case "adjust":
		err = cli.HandleAdjustCommand(args, os.Stdout)
	case "config":
		err = cli.HandleConfigCommand(args, os.Stdout)
	case "version", "--version", "-v":
		cli.HandleVersionCommand(os.Stdout)
	case "help", "--help", "-h":
		cli.PrintHelp(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		cli.PrintHelp(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return
		}
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
