package memory

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/wundergraph/pgfederation/pkg/catalog"
)

// LoadFixtures inserts the rows of a YAML document mapping relation names to
// lists of rows keyed by column name:
//
//	users:
//	  - {id: 1, first_name: alicia}
func (s *Store) LoadFixtures(c *catalog.Catalog, data []byte) error {
	var fixtures yaml.MapSlice
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("memory: decode fixtures: %w", err)
	}
	for _, item := range fixtures {
		name, ok := item.Key.(string)
		if !ok {
			return fmt.Errorf("memory: fixture key %v is not a relation name", item.Key)
		}
		relation, ok := c.Relation(name)
		if !ok {
			return fmt.Errorf("memory: fixtures reference unknown relation %s", name)
		}
		list, ok := item.Value.([]interface{})
		if !ok && item.Value != nil {
			return fmt.Errorf("memory: fixtures of %s must be a list of rows", name)
		}
		rows := make([]map[string]any, 0, len(list))
		for i, raw := range list {
			row, err := fixtureRow(raw)
			if err != nil {
				return fmt.Errorf("memory: fixture %s[%d]: %w", name, i, err)
			}
			rows = append(rows, row)
		}
		if err := s.Insert(relation, rows...); err != nil {
			return err
		}
	}
	return nil
}

// LoadFixturesFile reads fixtures from path.
func (s *Store) LoadFixturesFile(c *catalog.Catalog, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	return s.LoadFixtures(c, data)
}

// fixtureRow accepts both mapping representations yaml.v2 produces.
// Mappings nested in a MapSlice decode as MapSlice themselves.
func fixtureRow(raw interface{}) (map[string]any, error) {
	var items yaml.MapSlice
	switch fields := raw.(type) {
	case yaml.MapSlice:
		items = fields
	case map[interface{}]interface{}:
		for key, value := range fields {
			items = append(items, yaml.MapItem{Key: key, Value: value})
		}
	default:
		return nil, fmt.Errorf("row must be a mapping")
	}
	row := make(map[string]any, len(items))
	for _, item := range items {
		column, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("column %v is not a name", item.Key)
		}
		row[column] = item.Value
	}
	return row, nil
}
