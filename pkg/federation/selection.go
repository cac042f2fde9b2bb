package federation

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/pgfederation/pkg/datasource"
)

// CollectFields flattens the selections of set that apply to an object of type
// typeName. Inline fragments and fragment spreads are expanded at any depth,
// @skip and @include are honoured, fields sharing a response key are merged.
func CollectFields(set ast.SelectionSet, typeName string, schema *ast.Schema, vars map[string]any) []*ast.Field {
	c := fieldCollector{
		typeName: typeName,
		schema:   schema,
		vars:     vars,
		index:    map[string]int{},
		visited:  map[string]struct{}{},
	}
	c.collect(set)
	return c.fields
}

type fieldCollector struct {
	typeName string
	schema   *ast.Schema
	vars     map[string]any
	fields   []*ast.Field
	index    map[string]int
	visited  map[string]struct{}
}

func (c *fieldCollector) collect(set ast.SelectionSet) {
	for _, selection := range set {
		switch s := selection.(type) {
		case *ast.Field:
			if !include(s.Directives, c.vars) {
				continue
			}
			c.add(s)
		case *ast.InlineFragment:
			if !include(s.Directives, c.vars) || !c.applies(s.TypeCondition) {
				continue
			}
			c.collect(s.SelectionSet)
		case *ast.FragmentSpread:
			if !include(s.Directives, c.vars) || s.Definition == nil {
				continue
			}
			if _, ok := c.visited[s.Name]; ok {
				continue
			}
			c.visited[s.Name] = struct{}{}
			if c.applies(s.Definition.TypeCondition) {
				c.collect(s.Definition.SelectionSet)
			}
		}
	}
}

func (c *fieldCollector) add(field *ast.Field) {
	key := responseKey(field)
	i, ok := c.index[key]
	if !ok {
		c.index[key] = len(c.fields)
		c.fields = append(c.fields, field)
		return
	}
	if len(field.SelectionSet) == 0 {
		return
	}
	merged := *c.fields[i]
	merged.SelectionSet = make(ast.SelectionSet, 0, len(merged.SelectionSet)+len(field.SelectionSet))
	merged.SelectionSet = append(merged.SelectionSet, c.fields[i].SelectionSet...)
	merged.SelectionSet = append(merged.SelectionSet, field.SelectionSet...)
	c.fields[i] = &merged
}

func (c *fieldCollector) applies(typeCondition string) bool {
	if typeCondition == "" || typeCondition == c.typeName {
		return true
	}
	if c.schema == nil {
		return false
	}
	def, ok := c.schema.Types[typeCondition]
	if !ok {
		return false
	}
	switch def.Kind {
	case ast.Interface, ast.Union:
		for _, possible := range c.schema.GetPossibleTypes(def) {
			if possible.Name == c.typeName {
				return true
			}
		}
	}
	return false
}

func include(directives ast.DirectiveList, vars map[string]any) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if value, _ := skip.ArgumentMap(vars)["if"].(bool); value {
			return false
		}
	}
	if inc := directives.ForName("include"); inc != nil {
		if value, _ := inc.ArgumentMap(vars)["if"].(bool); !value {
			return false
		}
	}
	return true
}

func responseKey(field *ast.Field) string {
	if field.Alias != "" {
		return field.Alias
	}
	return field.Name
}

// ScopeSelection returns the fields requested for an entity of type typeName,
// with the column backing each field when the type was generated from a relation.
func (s *Schema) ScopeSelection(set ast.SelectionSet, typeName string, vars map[string]any) []datasource.Field {
	fields := CollectFields(set, typeName, s.Schema, vars)
	out := make([]datasource.Field, 0, len(fields))
	for _, field := range fields {
		f := datasource.Field{
			Name:  field.Name,
			Alias: responseKey(field),
		}
		if attr, ok := s.Column(typeName, field.Name); ok {
			f.Column = attr.Name
		}
		if len(field.SelectionSet) > 0 && field.Definition != nil && field.Definition.Type != nil {
			f.Children = s.ScopeSelection(field.SelectionSet, field.Definition.Type.Name(), vars)
		}
		out = append(out, f)
	}
	return out
}
