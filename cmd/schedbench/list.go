package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alexshd/schedbench"
	"github.com/alexshd/schedbench/internal/rt"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	drivable := make(map[string]bool)
	for _, n := range rt.Drivers() {
		drivable[n] = true
	}
	for _, n := range schedbench.Names() {
		b, err := schedbench.Lookup(n)
		if err != nil {
			return err
		}
		l, err := b.Layout(b.DefaultDims)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%-8s dims=%v series=%d driver=%t\n", n, b.DefaultDims, len(l.Fields()), drivable[n])
	}
	return nil
}
