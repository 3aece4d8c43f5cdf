// Package main is the rstar command line front end: it builds an index from a
// CSV file and runs queries and updates against it.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and returns an exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 1
	}

	cmd, ok := commands[args[1]]
	switch {
	case ok:
		return cmd(args[2:], stdout, stderr)
	case args[1] == "help" || args[1] == "-h" || args[1] == "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		fmt.Fprintln(stderr, "Run 'rstar help' for usage.")
		return 1
	}
}

type command func(args []string, stdout, stderr io.Writer) int

var commands map[string]command

func init() {
	commands = map[string]command{
		"build":   buildCmd,
		"range":   rangeCmd,
		"knn":     knnCmd,
		"skyline": skylineCmd,
		"insert":  insertCmd,
		"delete":  deleteCmd,
		"export":  exportCmd,
		"stats":   statsCmd,
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `rstar - disk backed R*-tree index

Usage:
  rstar <command> [flags]

Commands:
  build     Load a CSV file (id,name,coords...) and build the index
  range     Records inside a box: -lower x,y -upper x,y
  knn       Nearest records to a point: -point x,y -k n
  skyline   Records not dominated by any other
  insert    Add a record: -id n -name s -coords x,y
  delete    Remove a record: -id n
  export    Dump the tree: -format dot|csv -output path
  stats     Tree shape and size

Every command accepts -config path.
Queries accept -linear to scan the data file instead of the index.`)
}
