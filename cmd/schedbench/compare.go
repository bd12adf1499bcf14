package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/alexshd/schedbench"
)

const compareUsage = `schedbench compare - test one result set of two runs for a significant change

Usage:
  schedbench compare --set NAME <old.raw> <new.raw>

Options:
  --set NAME        Result set to compare, e.g. "aes rollback" or "A-100"
  --fail-above PCT  Exit with error if a significant slowdown exceeds PCT percent
  -h, --help        Show this help

Each row of the set is compared with a two-sided Mann-Whitney U test on the
kept raw samples. Stable sets carry no raw samples and cannot be compared.
`

func runCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, compareUsage) }

	setName := fs.String("set", "", "result set to compare")
	failAbove := fs.Float64("fail-above", 0, "fail if a significant slowdown exceeds this percent")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *setName == "" || fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("need --set and two raw segments")
	}

	before, err := loadSet(fs.Arg(0), *setName)
	if err != nil {
		return err
	}
	after, err := loadSet(fs.Arg(1), *setName)
	if err != nil {
		return err
	}
	if len(before.Results) != len(after.Results) {
		return fmt.Errorf("%s: %d rows vs %d rows", *setName, len(before.Results), len(after.Results))
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", *setName)
	fmt.Fprintln(tw, "row\told\tnew\tdelta")

	var worst float64
	for i := range before.Results {
		c, err := schedbench.Compare(before.Results[i].Raw, after.Results[i].Raw, 0)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", *setName, i, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rowLabel(before, i),
			humanize.CommafWithDigits(c.Old, 1), humanize.CommafWithDigits(c.New, 1), c)
		if c.Significant && c.DeltaPct > worst {
			worst = c.DeltaPct
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}

	if *failAbove > 0 && worst > *failAbove {
		return fmt.Errorf("regression %.2f%% exceeds %.2f%%", worst, *failAbove)
	}
	return nil
}

func loadSet(path, name string) (schedbench.ResultSet, error) {
	_, report, err := processFile(path)
	if err != nil {
		return schedbench.ResultSet{}, err
	}
	set, ok := report.Lookup(name)
	if !ok {
		return schedbench.ResultSet{}, fmt.Errorf("%s: no result set %q", path, name)
	}
	for _, r := range set.Results {
		if r.Raw == nil {
			return schedbench.ResultSet{}, fmt.Errorf("%s: %q is stable and keeps no raw samples", path, name)
		}
	}
	return set, nil
}

// rowLabel names a row by its extra columns, or by index.
func rowLabel(set schedbench.ResultSet, i int) string {
	if len(set.Columns) == 0 {
		return fmt.Sprint(i)
	}
	label := ""
	for j, c := range set.Columns {
		if j > 0 {
			label += " "
		}
		label += fmt.Sprintf("%s=%s", c.Header, humanize.Comma(c.Values[i]))
	}
	return label
}
