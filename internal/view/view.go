package view

import (
	"errors"
	"fmt"
	"sort"

	"econdash/internal/fetcher"
	"econdash/internal/series"
)

// Params are the user-selectable options of a view
type Params struct {
	// Range limits charted years. nil means all years.
	Range *series.YearRange
	// Combined overlays the comparison series.
	Combined bool
	// Year selects a single period for breakdown views. "" means latest.
	Year string
}

// RangeLabel returns the range as shown in the selector.
func (p Params) RangeLabel() string {
	if p.Range == nil {
		return "all"
	}
	return p.Range.String()
}

// Inputs are the fetch results a view is built from
type Inputs map[string]fetcher.Result

// Records returns the records of a metric, or nil when its fetch failed.
func (in Inputs) Records(metric string) []series.Record {
	r, ok := in[metric]
	if !ok || !r.OK() {
		return nil
	}
	return r.Records
}

// Axis is a chart axis range
type Axis struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func axisOf(lo, hi float64) Axis { return Axis{Min: lo, Max: hi} }

// Row is one table row. A nil value means no data for that cell.
type Row struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

// Table is the tabular form of a view, used by exports
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Page is a built view
type Page struct {
	View     string           `json:"view"`
	Title    string           `json:"title"`
	Range    string           `json:"range"`
	Combined bool             `json:"combined"`
	Degraded bool             `json:"degraded"`
	Series   map[string]State `json:"series"`
	Data     any              `json:"data"`
	Table    Table            `json:"table"`
}

// SeriesInfo is the Data of a ready series state
type SeriesInfo struct {
	Records int `json:"records"`
}

// Definition declares a view: the metrics it reads and how to build it
type Definition struct {
	Name    string
	Title   string
	Metrics []string
	build   func(in Inputs, p Params) (any, Table)
}

// ErrUnknownView is returned for names without a definition
var ErrUnknownView = errors.New("unknown view")

// Lookup returns the definition of a view.
func Lookup(name string) (Definition, error) {
	for _, d := range definitions {
		if d.Name == name {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %s", ErrUnknownView, name)
}

// Definitions returns every view in menu order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Names returns every view name in menu order.
func Names() []string {
	names := make([]string, len(definitions))
	for i, d := range definitions {
		names[i] = d.Name
	}
	return names
}

// RequiredMetrics returns every metric referenced by a view, sorted.
func RequiredMetrics() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range definitions {
		for _, m := range d.Metrics {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out
}

// SeriesState reduces one fetch result to its render model.
func SeriesState(r fetcher.Result) State {
	s := Reduce(Initial(), Started{})
	if !r.OK() {
		return Reduce(s, Completed{Err: r.Err})
	}
	return Reduce(s, Completed{Data: SeriesInfo{Records: len(r.Records)}})
}

// Build assembles a page from fetch results. Metrics missing from in are
// reported as loading. Build never fails: failed series are empty.
func (d Definition) Build(in Inputs, p Params) Page {
	page := Page{
		View:     d.Name,
		Title:    d.Title,
		Range:    p.RangeLabel(),
		Combined: p.Combined,
		Series:   make(map[string]State, len(d.Metrics)),
	}
	for _, m := range d.Metrics {
		r, ok := in[m]
		if !ok {
			page.Series[m] = Initial()
			page.Degraded = true
			continue
		}
		page.Series[m] = SeriesState(r)
		if !r.OK() {
			page.Degraded = true
		}
	}
	page.Data, page.Table = d.build(in, p)
	return page
}
