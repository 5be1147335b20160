// Package catalog maps short metric names to Data360 (database, indicator)
// pairs. The table is declarative YAML, loaded once at start and validated
// against the metrics the dashboard views reference.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// Metric names referenced by the dashboard views.
const (
	MetricGDP             = "gdp"
	MetricCreditCard      = "credit-card"
	MetricOnlineMerchant  = "online-merchant"
	MetricInternetBanking = "internet-banking"
	MetricInflation       = "inflation"
)

//go:embed catalog.yaml
var embedded []byte

// Source describes where one metric lives upstream.
type Source struct {
	Name      string `yaml:"name" json:"name" validate:"required,max=64,metricname"`
	Database  string `yaml:"database" json:"database" validate:"required,max=64,sourcecode"`
	Indicator string `yaml:"indicator" json:"indicator" validate:"required,max=128,sourcecode"`
	Title     string `yaml:"title" json:"title,omitempty"`
}

type document struct {
	Metrics []Source `yaml:"metrics" validate:"required,min=1,dive"`
}

// Catalog is an immutable metric table.
type Catalog struct {
	sources map[string]Source
	order   []string
}

// Load reads the catalog at path, or the embedded default when path is "".
func Load(path string) (*Catalog, error) {
	data := embedded
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes and structurally validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := newValidator().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	c := &Catalog{sources: make(map[string]Source, len(doc.Metrics))}
	for _, s := range doc.Metrics {
		if _, dup := c.sources[s.Name]; dup {
			return nil, fmt.Errorf("invalid catalog: metric %q defined twice", s.Name)
		}
		c.sources[s.Name] = s
		c.order = append(c.order, s.Name)
	}
	return c, nil
}

// Validate reports every required metric missing from the catalog.
func (c *Catalog) Validate(required []string) error {
	var missing []string
	for _, name := range required {
		if _, ok := c.sources[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("catalog is missing metrics: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Lookup returns the source for a metric name.
func (c *Catalog) Lookup(name string) (Source, bool) {
	s, ok := c.sources[name]
	return s, ok
}

// Names returns metric names in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Sources returns every source in declaration order.
func (c *Catalog) Sources() []Source {
	out := make([]Source, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.sources[name])
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("metricname", isMetricName)
	v.RegisterValidation("sourcecode", isSourceCode)
	return v
}

// metric names are lowercase words joined by hyphens
func isMetricName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	for _, ch := range s {
		if !((ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-') {
			return false
		}
	}
	return true
}

// upstream codes are uppercase with digits and underscores
func isSourceCode(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, ch := range s {
		if !((ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_') {
			return false
		}
	}
	return s != ""
}
