package schedbench

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reduced(t *testing.T, samples []uint64, stable bool) Result {
	t.Helper()

	r, err := ProcessResult(samples, ResultDesc{Name: "fixture", Stable: stable})
	require.NoError(t, err)
	return r
}

// TestResultSet_MarshalJSON checks the {name, columns, rows} shape.
func TestResultSet_MarshalJSON(t *testing.T) {
	set := ResultSet{
		Name:    "A-10",
		Columns: []Column{{Header: "budget", Values: []int64{0, 1000}}},
		Results: []Result{
			reduced(t, []uint64{10, 20}, true),
			reduced(t, []uint64{30, 30}, true),
		},
	}

	data, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded struct {
		Name    string           `json:"name"`
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "A-10", decoded.Name)
	assert.Equal(t, []string{"budget", "min", "max", "mean", "stddev"}, decoded.Columns[:5])
	require.Len(t, decoded.Rows, 2)
	assert.Equal(t, 1000.0, decoded.Rows[1]["budget"])
	assert.Equal(t, 10.0, decoded.Rows[0]["min"])
	assert.Equal(t, 20.0, decoded.Rows[0]["max"])
	assert.Equal(t, 15.0, decoded.Rows[0]["mean"])
	assert.Equal(t, 5.0, decoded.Rows[0]["stddev"])
	assert.NotContains(t, decoded.Rows[0], "raw")
}

// TestResultSet_RowOrder verifies row keys follow column order, extra columns first.
func TestResultSet_RowOrder(t *testing.T) {
	set := ResultSet{
		Name:    "order",
		Columns: []Column{{Header: "cores", Values: []int64{4}}},
		Results: []Result{reduced(t, []uint64{1, 2, 3}, false)},
	}

	data, err := json.Marshal(set)
	require.NoError(t, err)

	row := string(data[strings.Index(string(data), `"rows"`):])
	last := -1
	for _, key := range []string{`"cores"`, `"min"`, `"max"`, `"mean"`, `"stddev"`, `"samples"`, `"raw"`} {
		idx := strings.Index(row, key)
		require.GreaterOrEqual(t, idx, 0, "missing %s", key)
		assert.Greater(t, idx, last, "%s out of order", key)
		last = idx
	}
}

// TestResultSet_Validate covers column errors.
func TestResultSet_Validate(t *testing.T) {
	results := []Result{reduced(t, []uint64{1}, true)}

	short := ResultSet{Name: "short", Columns: []Column{{Header: "prio", Values: nil}}, Results: results}
	assert.ErrorIs(t, short.Validate(), ErrColumnLength)
	_, err := json.Marshal(short)
	assert.ErrorIs(t, err, ErrColumnLength)

	reserved := ResultSet{Name: "reserved", Columns: []Column{{Header: "mean", Values: []int64{1}}}, Results: results}
	assert.ErrorIs(t, reserved.Validate(), ErrColumnHeader)

	dup := ResultSet{Name: "dup", Results: results, Columns: []Column{
		{Header: "prio", Values: []int64{1}},
		{Header: "prio", Values: []int64{2}},
	}}
	assert.ErrorIs(t, dup.Validate(), ErrColumnHeader)

	ok := ResultSet{Name: "ok", Columns: []Column{{Header: "prio", Values: []int64{7}}}, Results: results}
	assert.NoError(t, ok.Validate())
}

// TestReport_Encode checks the report is a JSON array and keeps set order.
func TestReport_Encode(t *testing.T) {
	var empty bytes.Buffer
	require.NoError(t, Report(nil).Encode(&empty, false))
	assert.Equal(t, "[]\n", empty.String())

	report := Report{
		single("first <a&b>", reduced(t, []uint64{1, 2}, true)),
		single("second", reduced(t, []uint64{3, 4}, true)),
	}

	var buf bytes.Buffer
	require.NoError(t, report.Encode(&buf, true))
	assert.Contains(t, buf.String(), "first <a&b>")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "first <a&b>", decoded[0]["name"])
	assert.Equal(t, "second", decoded[1]["name"])

	s, ok := report.Lookup("second")
	assert.True(t, ok)
	assert.Equal(t, "second", s.Name)
	_, ok = report.Lookup("third")
	assert.False(t, ok)
}

// TestReport_WriteTable checks the text rendering.
func TestReport_WriteTable(t *testing.T) {
	report := Report{{
		Name:    "Signal to thread of higher prio",
		Columns: []Column{{Header: "budget", Values: []int64{1000, 2000}}},
		Results: []Result{
			reduced(t, []uint64{12000, 12000}, true),
			reduced(t, []uint64{1, 3}, true),
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, report.WriteTable(&buf))

	out := buf.String()
	assert.Contains(t, out, "Signal to thread of higher prio")
	assert.Contains(t, out, "12,000")
	assert.Contains(t, out, "2,000")
	PrintReport(t, report)
}

// TestResultSet_Clamped checks clamped samples show up in both renderings.
func TestResultSet_Clamped(t *testing.T) {
	r, err := ProcessResult([]uint64{3, 10, 20}, ResultDesc{Name: "clamped", Overhead: 5})
	require.NoError(t, err)
	require.Equal(t, 1, r.Clamped)

	set := ResultSet{Name: "clamped", Results: []Result{r}}
	data, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded.Columns, "clamped")
	assert.Equal(t, 1.0, decoded.Rows[0]["clamped"])

	row := string(data)
	assert.Less(t, strings.Index(row, `"samples"`), strings.Index(row, `"clamped"`))
	assert.Less(t, strings.Index(row, `"clamped"`), strings.Index(row, `"raw"`))

	var buf bytes.Buffer
	require.NoError(t, Report{set}.WriteTable(&buf))
	assert.Contains(t, buf.String(), "clamped")

	reserved := ResultSet{Name: "reserved", Results: []Result{r},
		Columns: []Column{{Header: "clamped", Values: []int64{1}}}}
	assert.ErrorIs(t, reserved.Validate(), ErrColumnHeader)
}
