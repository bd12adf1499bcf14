package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alexshd/schedbench"
	"github.com/alexshd/schedbench/internal/hostinfo"
	"github.com/alexshd/schedbench/internal/shm"
)

const processUsage = `schedbench process - reduce raw segments into a JSON report

Usage:
  schedbench process [options] <raw>...

Options:
  --json FILE   Write the report to FILE (default: stdout)
  --indent      Indent the JSON output
  -h, --help    Show this help

Output:
  {"env": {...host...}, "benchmarks": {"<name>": [<result set>, ...]}}
`

// Document is the processed output of one or more segments.
type Document struct {
	Env        hostinfo.Host                `json:"env"`
	Benchmarks map[string]schedbench.Report `json:"benchmarks"`
}

func runProcess(args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, processUsage) }

	jsonFile := fs.String("json", "", "output file (default: stdout)")
	indent := fs.Bool("indent", false, "indent JSON output")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no raw segments given")
	}

	doc, err := processFiles(context.Background(), fs.Args())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *jsonFile != "" {
		f, err := os.Create(*jsonFile)
		if err != nil {
			return fmt.Errorf("create %s: %w", *jsonFile, err)
		}
		defer f.Close()
		w = f
	}
	if err := writeDocument(w, doc, *indent); err != nil {
		return err
	}
	if *jsonFile != "" {
		slog.Info("report written", "path", *jsonFile, "benchmarks", len(doc.Benchmarks))
	}
	return nil
}

func processFiles(ctx context.Context, paths []string) (Document, error) {
	host, err := hostinfo.Collect(ctx)
	if err != nil {
		slog.Warn("partial host info", "err", err)
	}

	doc := Document{Env: host, Benchmarks: make(map[string]schedbench.Report)}
	for _, path := range paths {
		name, report, err := processFile(path)
		if err != nil {
			return Document{}, err
		}
		if _, dup := doc.Benchmarks[name]; dup {
			return Document{}, fmt.Errorf("%s: benchmark %q given twice", path, name)
		}
		doc.Benchmarks[name] = report
		slog.Debug("processed", "path", path, "bench", name, "sets", len(report))
	}
	return doc, nil
}

// processFile opens one segment and reduces it with the benchmark named in
// its header.
func processFile(path string) (string, schedbench.Report, error) {
	seg, err := shm.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer seg.Close()

	buf := seg.Buffer()
	report, err := schedbench.Process(buf)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf.Name(), report, nil
}

func writeDocument(w io.Writer, doc Document, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
