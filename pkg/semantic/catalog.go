// Package semantic implements the semantic layer: a catalog of business
// metrics and dimensions loaded from a YAML model, and a compiler that turns
// structured query intents into SQL. The LLM never generates SQL; it only
// maps questions onto catalog names, and everything from name resolution to
// join inference happens here, deterministically.
package semantic

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/finsight-ai/finsight/pkg/models"
)

// Catalog indexes metrics, dimensions and business-term synonyms.
// It is immutable after load and safe to share across sessions.
type Catalog struct {
	metrics        map[string]*models.Metric
	dimensions     map[string]*models.Dimension
	businessTerms  map[string]string
	metricOrder    []string
	dimensionOrder []string
}

// metricSpec mirrors one entry of the "metrics" section.
type metricSpec struct {
	Description string `yaml:"description"`
	SQL         string `yaml:"sql"`
	Table       string `yaml:"table"`
	Aggregation string `yaml:"aggregation"`
	Format      string `yaml:"format"`
}

// dimensionSpec mirrors one entry of the "dimensions" section. Attributes is
// kept as a raw node so that declaration order survives decoding; the first
// attribute is the dimension's default.
type dimensionSpec struct {
	Table      string    `yaml:"table"`
	Key        string    `yaml:"key"`
	Attributes yaml.Node `yaml:"attributes"`
}

type catalogFile struct {
	Metrics       yaml.Node         `yaml:"metrics"`
	Dimensions    yaml.Node         `yaml:"dimensions"`
	BusinessTerms map[string]string `yaml:"business_terms"`
}

// LoadCatalog reads and indexes the semantic model at path.
// Malformed entries (missing required fields) are fatal: the process should
// not start with a partial catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read semantic model: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a Catalog from raw semantic model YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse semantic model: %w", err)
	}

	c := &Catalog{
		metrics:       make(map[string]*models.Metric),
		dimensions:    make(map[string]*models.Dimension),
		businessTerms: file.BusinessTerms,
	}
	if c.businessTerms == nil {
		c.businessTerms = make(map[string]string)
	}

	if err := forEachMappingEntry(&file.Metrics, func(name string, value *yaml.Node) error {
		var spec metricSpec
		if err := value.Decode(&spec); err != nil {
			return fmt.Errorf("metric %q: %w", name, err)
		}
		if spec.Description == "" || spec.SQL == "" || spec.Table == "" || spec.Aggregation == "" {
			return fmt.Errorf("metric %q: description, sql, table and aggregation are required", name)
		}
		if spec.Format == "" {
			spec.Format = "number"
		}
		c.metrics[name] = &models.Metric{
			Name:        name,
			Description: spec.Description,
			SQL:         spec.SQL,
			Table:       spec.Table,
			Aggregation: spec.Aggregation,
			Format:      spec.Format,
		}
		c.metricOrder = append(c.metricOrder, name)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := forEachMappingEntry(&file.Dimensions, func(name string, value *yaml.Node) error {
		var spec dimensionSpec
		if err := value.Decode(&spec); err != nil {
			return fmt.Errorf("dimension %q: %w", name, err)
		}
		if spec.Table == "" || spec.Key == "" {
			return fmt.Errorf("dimension %q: table and key are required", name)
		}
		dim := &models.Dimension{Name: name, Table: spec.Table, Key: spec.Key}
		if err := forEachMappingEntry(&spec.Attributes, func(attrName string, attrValue *yaml.Node) error {
			var expr string
			if err := attrValue.Decode(&expr); err != nil {
				return fmt.Errorf("dimension %q attribute %q: %w", name, attrName, err)
			}
			dim.Attributes = append(dim.Attributes, models.DimensionAttribute{Name: attrName, SQL: expr})
			return nil
		}); err != nil {
			return err
		}
		c.dimensions[name] = dim
		c.dimensionOrder = append(c.dimensionOrder, name)
		return nil
	}); err != nil {
		return nil, err
	}

	return c, nil
}

// forEachMappingEntry walks a YAML mapping node in document order.
// A zero/empty node is treated as an empty mapping.
func forEachMappingEntry(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node == nil || node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping, got %s", node.Tag)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// ResolveMetric looks up a metric by exact name, then by business-term
// synonym. A miss is not an error: callers treat it as "contributes nothing".
func (c *Catalog) ResolveMetric(name string) (*models.Metric, bool) {
	if m, ok := c.metrics[name]; ok {
		return m, true
	}
	if canonical, ok := c.businessTerms[name]; ok {
		if m, ok := c.metrics[canonical]; ok {
			return m, true
		}
	}
	return nil, false
}

// ResolveDimension looks up a dimension by exact name, then by business-term
// synonym.
func (c *Catalog) ResolveDimension(name string) (*models.Dimension, bool) {
	if d, ok := c.dimensions[name]; ok {
		return d, true
	}
	if canonical, ok := c.businessTerms[name]; ok {
		if d, ok := c.dimensions[canonical]; ok {
			return d, true
		}
	}
	return nil, false
}

// SearchMetrics returns every metric whose name or description contains any
// of the keywords, case-insensitively, in load order.
func (c *Catalog) SearchMetrics(keywords []string) []*models.Metric {
	var matches []*models.Metric
	for _, name := range c.metricOrder {
		m := c.metrics[name]
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			if strings.Contains(strings.ToLower(m.Name), kw) ||
				strings.Contains(strings.ToLower(m.Description), kw) {
				matches = append(matches, m)
				break
			}
		}
	}
	return matches
}

// SearchDimensions returns every dimension whose name or attribute names
// contain any of the keywords, case-insensitively, in load order.
func (c *Catalog) SearchDimensions(keywords []string) []*models.Dimension {
	var matches []*models.Dimension
	for _, name := range c.dimensionOrder {
		d := c.dimensions[name]
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			if strings.Contains(strings.ToLower(d.Name), kw) || dimensionAttrMatch(d, kw) {
				matches = append(matches, d)
				break
			}
		}
	}
	return matches
}

func dimensionAttrMatch(d *models.Dimension, keyword string) bool {
	for _, attr := range d.Attributes {
		if strings.Contains(strings.ToLower(attr.Name), keyword) {
			return true
		}
	}
	return false
}

// Metrics enumerates all metrics in load order.
func (c *Catalog) Metrics() []*models.Metric {
	out := make([]*models.Metric, 0, len(c.metricOrder))
	for _, name := range c.metricOrder {
		out = append(out, c.metrics[name])
	}
	return out
}

// Dimensions enumerates all dimensions in load order.
func (c *Catalog) Dimensions() []*models.Dimension {
	out := make([]*models.Dimension, 0, len(c.dimensionOrder))
	for _, name := range c.dimensionOrder {
		out = append(out, c.dimensions[name])
	}
	return out
}
