// Package catalog describes the relations a schema is generated from.
package catalog

import (
	"fmt"
	"strings"
)

// Attribute is a column of a relation.
type Attribute struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	NotNull     bool   `yaml:"not_null"`
	Description string `yaml:"description"`
}

// Relation is a table or view. PrimaryKey lists attribute names in declaration order.
type Relation struct {
	Namespace   string      `yaml:"namespace"`
	Name        string      `yaml:"name"`
	TypeName    string      `yaml:"type_name"`
	Description string      `yaml:"description"`
	Attributes  []Attribute `yaml:"attributes"`
	PrimaryKey  []string    `yaml:"primary_key"`
}

// Catalog is the set of relations exposed through the schema.
type Catalog struct {
	Relations []*Relation `yaml:"relations"`
}

// QualifiedName returns namespace.name, or the bare name for relations without a namespace.
func (r *Relation) QualifiedName() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

// Attribute returns the named attribute.
func (r *Relation) Attribute(name string) (Attribute, bool) {
	for _, attr := range r.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// HasPrimaryKey reports whether the relation declares a primary key.
func (r *Relation) HasPrimaryKey() bool {
	return len(r.PrimaryKey) > 0
}

// PrimaryKeyAttributes returns the primary key attributes in declaration order.
// It panics if the key references an unknown attribute; Validate reports that case as an error.
func (r *Relation) PrimaryKeyAttributes() []Attribute {
	out := make([]Attribute, 0, len(r.PrimaryKey))
	for _, name := range r.PrimaryKey {
		attr, ok := r.Attribute(name)
		if !ok {
			panic(fmt.Sprintf("catalog: relation %s has no attribute %q", r.QualifiedName(), name))
		}
		out = append(out, attr)
	}
	return out
}

// Relation returns the relation with the given name. Both bare and qualified names are accepted.
func (c *Catalog) Relation(name string) (*Relation, bool) {
	for _, rel := range c.Relations {
		if rel.Name == name || rel.QualifiedName() == name {
			return rel, true
		}
	}
	return nil, false
}

// Validate checks that names are unique and that every primary key column exists.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Relations))
	for i, rel := range c.Relations {
		if rel == nil || rel.Name == "" {
			return fmt.Errorf("catalog: relation %d has no name", i)
		}
		if _, ok := seen[rel.QualifiedName()]; ok {
			return fmt.Errorf("catalog: relation %s declared twice", rel.QualifiedName())
		}
		seen[rel.QualifiedName()] = struct{}{}

		if len(rel.Attributes) == 0 {
			return fmt.Errorf("catalog: relation %s has no attributes", rel.QualifiedName())
		}
		attrs := make(map[string]struct{}, len(rel.Attributes))
		for _, attr := range rel.Attributes {
			if attr.Name == "" || attr.Type == "" {
				return fmt.Errorf("catalog: relation %s has an attribute without name or type", rel.QualifiedName())
			}
			if _, ok := attrs[attr.Name]; ok {
				return fmt.Errorf("catalog: relation %s declares attribute %s twice", rel.QualifiedName(), attr.Name)
			}
			attrs[attr.Name] = struct{}{}
		}

		keys := make(map[string]struct{}, len(rel.PrimaryKey))
		for _, col := range rel.PrimaryKey {
			if _, ok := attrs[col]; !ok {
				return fmt.Errorf("catalog: primary key of %s references unknown attribute %s", rel.QualifiedName(), col)
			}
			if _, ok := keys[col]; ok {
				return fmt.Errorf("catalog: primary key of %s lists %s twice", rel.QualifiedName(), col)
			}
			keys[col] = struct{}{}
		}
	}
	return nil
}

func (r *Relation) String() string {
	return fmt.Sprintf("%s(%s)", r.QualifiedName(), strings.Join(r.PrimaryKey, ","))
}
