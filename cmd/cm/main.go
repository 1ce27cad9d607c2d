package main

import (
	"fmt"
	"os"

	"github.com/contentmigrate/cm-cli/cmd/cm/commands"
	"github.com/contentmigrate/cm-cli/internal/config"
	"github.com/contentmigrate/cm-cli/internal/output"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	if cfg.Output != "" {
		output.Format = cfg.Output
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			output.Format = "json"
			args = append(args[:i], args[i+1:]...)
			i--
		case "--version", "-v":
			fmt.Println("cm version", version)
			os.Exit(0)
		case "--help", "-h":
			printUsage()
			os.Exit(0)
		}
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "export":
		err = commands.Export(cfg, args[1:])
	case "import":
		err = commands.Import(cfg, args[1:])
	case "migrate":
		err = commands.Migrate(cfg, args[1:])
	case "validate":
		err = commands.Validate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`cm - content environment migration CLI

Usage:
  cm <command> [flags]

Commands:
  export       Export content items, variants, and assets to snapshot files
  import       Import snapshot files into a target environment
  migrate      Export from source and import into target in one run
  validate     Validate an items snapshot against the migration schema

Global Flags:
  --json       Output as JSON
  --version    Show version
  --help       Show help

Environment Variables:
  CM_SOURCE_API_KEY  Source management API key
  CM_TARGET_API_KEY  Target management API key
  CM_BASE_URL        Management API base URL override
  CM_OUTPUT          Default output format (table|json)
`)
}
