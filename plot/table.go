// Package plot turns benchmark result tables into search throughput charts
// and summary tables.
package plot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/patrikhermansson/annprep/core"
	"gonum.org/v1/gonum/stat"
)

// Column names read from a result table. Other columns are ignored.
const (
	AlgorithmColumn  = "algorithm"
	WriteRatioColumn = "write_ratio"
	SearchQPSColumn  = "search_qps"
)

// Row is one benchmark measurement.
type Row struct {
	Algorithm  string
	WriteRatio float64
	SearchQPS  float64
}

// Group is the mean search throughput of one algorithm at one write ratio.
type Group struct {
	Algorithm  string
	WriteRatio float64
	SearchQPS  float64
}

// ReadRows parses a CSV result table with a header line.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty table", core.ErrMissingColumn)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	var cols [3]int
	for i, name := range []string{AlgorithmColumn, WriteRatioColumn, SearchQPSColumn} {
		c, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingColumn, name)
		}
		cols[i] = c
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, c := range cols {
			if c >= len(rec) {
				return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, c+1, len(rec))
			}
		}
		ratio, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[1]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", line, WriteRatioColumn, err)
		}
		qps, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[2]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", line, SearchQPSColumn, err)
		}
		rows = append(rows, Row{
			Algorithm:  strings.TrimSpace(rec[cols[0]]),
			WriteRatio: ratio,
			SearchQPS:  qps,
		})
	}
	return rows, nil
}

// Dedup keeps the first occurrence of every distinct row.
func Dedup(rows []Row) []Row {
	seen := make(map[Row]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

type groupKey struct {
	algorithm string
	ratio     float64
}

// GroupMean averages search throughput per algorithm and write ratio.
// The result is sorted by algorithm, then write ratio.
func GroupMean(rows []Row) []Group {
	samples := make(map[groupKey][]float64)
	for _, r := range rows {
		k := groupKey{r.Algorithm, r.WriteRatio}
		samples[k] = append(samples[k], r.SearchQPS)
	}
	groups := make([]Group, 0, len(samples))
	for k, v := range samples {
		groups = append(groups, Group{
			Algorithm:  k.algorithm,
			WriteRatio: k.ratio,
			SearchQPS:  stat.Mean(v, nil),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Algorithm != groups[j].Algorithm {
			return groups[i].Algorithm < groups[j].Algorithm
		}
		return groups[i].WriteRatio < groups[j].WriteRatio
	})
	return groups
}

// Series returns the groups of one algorithm in write ratio order.
func Series(groups []Group, algorithm string) []Group {
	var out []Group
	for _, g := range groups {
		if g.Algorithm == algorithm {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WriteRatio < out[j].WriteRatio })
	return out
}

// Pivot lays groups out with one row per write ratio and one column per algorithm.
type Pivot struct {
	Ratios     []float64
	Algorithms []string
	cells      map[groupKey]float64
}

// NewPivot builds the pivot table of groups.
func NewPivot(groups []Group) Pivot {
	p := Pivot{cells: make(map[groupKey]float64, len(groups))}
	ratios := make(map[float64]struct{})
	algos := make(map[string]struct{})
	for _, g := range groups {
		p.cells[groupKey{g.Algorithm, g.WriteRatio}] = g.SearchQPS
		ratios[g.WriteRatio] = struct{}{}
		algos[g.Algorithm] = struct{}{}
	}
	for r := range ratios {
		p.Ratios = append(p.Ratios, r)
	}
	for a := range algos {
		p.Algorithms = append(p.Algorithms, a)
	}
	sort.Float64s(p.Ratios)
	sort.Strings(p.Algorithms)
	return p
}

// Value returns the cell for ratio and algorithm, if present.
func (p Pivot) Value(ratio float64, algorithm string) (float64, bool) {
	v, ok := p.cells[groupKey{algorithm, ratio}]
	return v, ok
}

// WriteSummary prints the heading for batch followed by the pivot table,
// values rounded to two decimals. Missing cells print as NaN.
func WriteSummary(w io.Writer, batch string, p Pivot) error {
	if _, err := fmt.Fprintf(w, "\nBatch Size %s - Average Search QPS for each algorithm across different write ratios:\n", batch); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t", WriteRatioColumn)
	for _, a := range p.Algorithms {
		fmt.Fprintf(tw, "%s\t", a)
	}
	fmt.Fprintln(tw)
	for _, r := range p.Ratios {
		fmt.Fprintf(tw, "%s\t", strconv.FormatFloat(r, 'f', -1, 64))
		for _, a := range p.Algorithms {
			if v, ok := p.Value(r, a); ok {
				fmt.Fprintf(tw, "%.2f\t", v)
			} else {
				fmt.Fprint(tw, "NaN\t")
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
