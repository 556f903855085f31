// Package cmd contains the faro command line entry points.
//
// Following the pattern of standard Go CLI tools, all application logic
// lives here; main.go is a minimal entry point.
package cmd

import (
	"fmt"
	"os"

	"github.com/farosearch/faro/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for faro.
//
// Commands:
//
//	serve (default)  start the HTTP server
//	migrate          apply database migrations and exit
//	version          print version information
//	help             print usage
func Execute() error {
	// Handle special commands before full initialization so version and
	// help work even when the configuration is invalid.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "migrate":
			return executeMigrate()
		case "serve":
			// fall through to the default path
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return serve(cfg)
}

// printVersionInfo prints build metadata.
func printVersionInfo() error {
	fmt.Printf("faro %s (commit %s, built %s)\n", AppVersion, GitCommit, BuildTime)
	return nil
}

// printHelp prints usage information.
func printHelp() {
	fmt.Print(`faro - AI search service

Usage:
  faro [command]

Commands:
  serve     Start the HTTP server (default)
  migrate   Apply database migrations and exit
  version   Print version information
  help      Print this message

Configuration is read from ~/.faro/config.yaml and FARO_* environment
variables. GEMINI_API_KEY and DATABASE_URL are read from the environment.
`)
}
