package catalog

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Load reads and validates a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
//
//	relations:
//	  - name: users
//	    primary_key: [id]
//	    attributes:
//	      - {name: id, type: integer, not_null: true}
//	      - {name: first_name, type: text}
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, errors.Wrap(err, "catalog: decode")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
