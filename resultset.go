package schedbench

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

var (
	// ErrColumnLength is returned when an extra column does not have one
	// value per result.
	ErrColumnLength = errors.New("extra column length does not match results")

	// ErrColumnHeader is returned for an empty or reserved column header.
	ErrColumnHeader = errors.New("invalid extra column header")
)

// statColumns are emitted after the extra columns in every row.
var statColumns = []string{
	"min", "max", "mean", "stddev",
	"variance", "stddev_pct", "median", "first_quartile", "third_quartile", "samples",
	"clamped",
}

// Column is an extra integer column zipped with a result set's rows.
type Column struct {
	Header string
	Values []int64
}

// ResultSet is a named table of reduced results.
type ResultSet struct {
	Name    string
	Columns []Column
	Results []Result
}

// Validate checks the extra columns against the results.
func (s ResultSet) Validate() error {
	reserved := make(map[string]bool, len(statColumns)+1)
	for _, c := range statColumns {
		reserved[c] = true
	}
	reserved["raw"] = true

	for _, c := range s.Columns {
		if c.Header == "" || reserved[c.Header] {
			return fmt.Errorf("%s: %q: %w", s.Name, c.Header, ErrColumnHeader)
		}
		reserved[c.Header] = true
		if len(c.Values) != len(s.Results) {
			return fmt.Errorf("%s: column %q has %d values for %d results: %w",
				s.Name, c.Header, len(c.Values), len(s.Results), ErrColumnLength)
		}
	}
	return nil
}

// Headers returns the extra column headers followed by the statistic names.
func (s ResultSet) Headers() []string {
	headers := make([]string, 0, len(s.Columns)+len(statColumns))
	for _, c := range s.Columns {
		headers = append(headers, c.Header)
	}
	return append(headers, statColumns...)
}

// MarshalJSON encodes the set as {"name", "columns", "rows"}. Row keys keep
// column order: extra columns first, then the statistics ending with
// samples and clamped, then raw for unstable results.
func (s ResultSet) MarshalJSON() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"name":`)
	if err := writeValue(&buf, s.Name); err != nil {
		return nil, err
	}
	buf.WriteString(`,"columns":`)
	if err := writeValue(&buf, s.Headers()); err != nil {
		return nil, err
	}
	buf.WriteString(`,"rows":[`)
	for i, r := range s.Results {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := s.writeRow(&buf, i, r); err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", s.Name, i, err)
		}
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

func (s ResultSet) writeRow(buf *bytes.Buffer, i int, r Result) error {
	type field struct {
		key   string
		value any
	}
	fields := make([]field, 0, len(s.Columns)+len(statColumns)+1)
	for _, c := range s.Columns {
		fields = append(fields, field{c.Header, c.Values[i]})
	}
	fields = append(fields,
		field{"min", r.Min},
		field{"max", r.Max},
		field{"mean", r.Mean},
		field{"stddev", r.Stddev},
		field{"variance", r.Variance},
		field{"stddev_pct", r.StddevPct},
		field{"median", r.Median},
		field{"first_quartile", r.FirstQuartile},
		field{"third_quartile", r.ThirdQuartile},
		field{"samples", r.Samples},
		field{"clamped", r.Clamped},
	)
	if r.Raw != nil {
		fields = append(fields, field{"raw", r.Raw})
	}

	buf.WriteByte('{')
	for j, f := range fields {
		if j > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(buf, f.key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, f.value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeValue appends v as JSON without HTML escaping.
func writeValue(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// Report is the ordered list of result sets produced by one benchmark.
type Report []ResultSet

// Lookup returns the set with the given name.
func (r Report) Lookup(name string) (ResultSet, bool) {
	for _, s := range r {
		if s.Name == name {
			return s, true
		}
	}
	return ResultSet{}, false
}

// Encode writes the report as a JSON array.
func (r Report) Encode(w io.Writer, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	sets := []ResultSet(r)
	if sets == nil {
		sets = []ResultSet{}
	}
	if err := enc.Encode(sets); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteTable renders the report as aligned text tables, one per set.
func (r Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, s := range r {
		if err := s.Validate(); err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t\n", s.Name)

		headers := make([]string, 0, len(s.Columns)+6)
		for _, c := range s.Columns {
			headers = append(headers, c.Header)
		}
		headers = append(headers, "min", "max", "mean", "stddev", "n", "clamped")
		fmt.Fprintf(tw, "%s\t\n", strings.Join(headers, "\t"))

		for row, res := range s.Results {
			cells := make([]string, 0, len(headers))
			for _, c := range s.Columns {
				cells = append(cells, humanize.Comma(c.Values[row]))
			}
			cells = append(cells,
				humanize.Comma(int64(res.Min)),
				humanize.Comma(int64(res.Max)),
				humanize.CommafWithDigits(res.Mean, 1),
				humanize.CommafWithDigits(res.Stddev, 1),
				humanize.Comma(int64(res.Samples)),
				humanize.Comma(int64(res.Clamped)),
			)
			fmt.Fprintf(tw, "%s\t\n", strings.Join(cells, "\t"))
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}
