package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alexshd/schedbench"
)

const showUsage = `schedbench show - print raw segments as text tables

Usage:
  schedbench show <raw>...

Sets with a cores column also print a scalability fit.
`

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, showUsage) }

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no raw segments given")
	}

	for i, path := range fs.Args() {
		name, report, err := processFile(path)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("== %s (%s)\n\n", name, path)
		if err := report.WriteTable(os.Stdout); err != nil {
			return err
		}
		printScaling(report)
	}
	return nil
}

func printScaling(report schedbench.Report) {
	var lines []string
	for _, set := range report {
		if !hasColumn(set, "cores") {
			continue
		}
		s, err := schedbench.FitScaling(set, "cores")
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: %v", set.Name, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", set.Name, s))
	}
	if len(lines) > 0 {
		fmt.Printf("\nscaling\n  %s\n", strings.Join(lines, "\n  "))
	}
}

func hasColumn(set schedbench.ResultSet, header string) bool {
	for _, c := range set.Columns {
		if c.Header == header {
			return true
		}
	}
	return false
}
