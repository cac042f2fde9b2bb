// Package astbuilder constructs the schema description nodes needed to retrofit
// federation directives onto types that were not declared with them.
//
// All constructors return fresh nodes. Nodes handed to the builder are never
// modified; functions that "change" a definition return a copy.
package astbuilder

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

// Source is attached to every synthesized node so that validation errors
// raised against them point somewhere meaningful.
var Source = &ast.Source{Name: "federation"}

var namePattern = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

func position() *ast.Position {
	return &ast.Position{Src: Source}
}

// Name returns value if it is a valid GraphQL name and panics otherwise.
// Names passed here are expected to come from code, not from user input.
func Name(value string) string {
	if !namePattern.MatchString(value) {
		panic(fmt.Sprintf("astbuilder: invalid name %q", value))
	}
	return value
}

// StringValue returns a string literal. Block strings are printed with triple quotes.
func StringValue(value string, block bool) *ast.Value {
	kind := ast.StringValue
	if block {
		kind = ast.BlockValue
	}
	return &ast.Value{
		Kind:     kind,
		Raw:      value,
		Position: position(),
	}
}

// Directive returns a directive usage. Arguments are emitted sorted by name.
func Directive(name string, args map[string]*ast.Value) *ast.Directive {
	return &ast.Directive{
		Name:      Name(name),
		Arguments: arguments(args),
		Position:  position(),
	}
}

// ObjectTypeDefinition returns an object type definition without fields or directives,
// as if the type had been declared in SDL with only a name and description.
func ObjectTypeDefinition(name, description string) *ast.Definition {
	return &ast.Definition{
		Kind:        ast.Object,
		Name:        Name(name),
		Description: description,
		Directives:  ast.DirectiveList{},
		Position:    position(),
	}
}

// Field returns a selection of the named field.
func Field(name string, args map[string]*ast.Value) *ast.Field {
	return &ast.Field{
		Alias:      name,
		Name:       Name(name),
		Arguments:  arguments(args),
		Directives: ast.DirectiveList{},
		Position:   position(),
	}
}

// Merge returns a new definition holding base overlaid with overlay.
// Members set on overlay win, except directives: the directive lists of both
// definitions are concatenated, base first.
func Merge(base, overlay *ast.Definition) *ast.Definition {
	if base == nil {
		return clone(overlay)
	}
	merged := clone(base)
	if overlay == nil {
		return merged
	}
	if overlay.Kind != "" {
		merged.Kind = overlay.Kind
	}
	if overlay.Name != "" {
		merged.Name = overlay.Name
	}
	if overlay.Description != "" {
		merged.Description = overlay.Description
	}
	if overlay.Fields != nil {
		merged.Fields = append(ast.FieldList{}, overlay.Fields...)
	}
	if overlay.Interfaces != nil {
		merged.Interfaces = append([]string{}, overlay.Interfaces...)
	}
	if overlay.Types != nil {
		merged.Types = append([]string{}, overlay.Types...)
	}
	if overlay.EnumValues != nil {
		merged.EnumValues = append(ast.EnumValueList{}, overlay.EnumValues...)
	}
	if overlay.Position != nil && merged.Position == nil {
		merged.Position = overlay.Position
	}
	merged.Directives = append(merged.Directives, overlay.Directives...)
	return merged
}

// WithDirectives returns a copy of def with directives appended after the ones
// already present.
func WithDirectives(def *ast.Definition, directives ...*ast.Directive) *ast.Definition {
	out := clone(def)
	out.Directives = append(out.Directives, directives...)
	return out
}

// WithoutFields returns a copy of def without the named fields.
func WithoutFields(def *ast.Definition, names ...string) *ast.Definition {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}
	out := clone(def)
	out.Fields = make(ast.FieldList, 0, len(def.Fields))
	for _, field := range def.Fields {
		if _, ok := drop[field.Name]; ok {
			continue
		}
		out.Fields = append(out.Fields, field)
	}
	return out
}

// WithoutInterfaces returns a copy of def that no longer implements the named interfaces.
func WithoutInterfaces(def *ast.Definition, names ...string) *ast.Definition {
	out := clone(def)
	out.Interfaces = make([]string, 0, len(def.Interfaces))
	for _, iface := range def.Interfaces {
		if contains(names, iface) {
			continue
		}
		out.Interfaces = append(out.Interfaces, iface)
	}
	return out
}

// StringArgument returns the raw string of the named argument of a directive.
func StringArgument(directive *ast.Directive, name string) (string, bool) {
	arg := directive.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return "", false
	}
	switch arg.Value.Kind {
	case ast.StringValue, ast.BlockValue:
		return arg.Value.Raw, true
	default:
		return "", false
	}
}

func clone(def *ast.Definition) *ast.Definition {
	if def == nil {
		return nil
	}
	out := *def
	out.Directives = append(ast.DirectiveList{}, def.Directives...)
	out.Fields = append(ast.FieldList(nil), def.Fields...)
	out.Interfaces = append([]string(nil), def.Interfaces...)
	out.Types = append([]string(nil), def.Types...)
	return &out
}

func arguments(args map[string]*ast.Value) ast.ArgumentList {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make(ast.ArgumentList, 0, len(names))
	for _, name := range names {
		list = append(list, &ast.Argument{
			Name:     Name(name),
			Value:    args[name],
			Position: position(),
		})
	}
	return list
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
