// feldsher is a tool-calling appointment assistant for a clinic: an HTTP
// chat surface, a role-scoped tool set over the clinic database, and an MCP
// server exposing the same tools.
package main

import (
	"flag"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ExitOnError)
		configPath := fs.String("config", "feldsher.yaml", "path to the YAML config")
		fs.Parse(os.Args[2:])
		runServe(*configPath)
	case "version":
		fmt.Println(version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `feldsher - clinic appointment assistant

Usage:
  feldsher serve [--config feldsher.yaml]   Run the chat API and MCP server
  feldsher version                          Print the version
`)
}
