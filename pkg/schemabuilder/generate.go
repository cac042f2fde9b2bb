package schemabuilder

import (
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/pgfederation/pkg/catalog"
)

var builtinScalars = map[string]struct{}{
	"Int": {}, "Float": {}, "String": {}, "Boolean": {}, "ID": {},
}

var scalarDescriptions = map[string]string{
	"BigInt":   "A signed eight-byte integer, transported as a string.",
	"Datetime": "A point in time as described by the ISO 8601 standard.",
	"JSON":     "A JavaScript object encoded in the JSON format.",
	"UUID":     "A universally unique identifier as defined by RFC 4122.",
}

// generate renders the SDL of the types backed by c. Relations with a primary
// key implement the Node interface.
func generate(c *catalog.Catalog, inflector catalog.Inflector) *ast.Source {
	w := &sdlWriter{}

	w.description("An object with a globally unique `ID`.")
	w.line("interface ", NodeInterfaceName, " {")
	w.fieldDescription("A globally unique identifier. Can be used in various places throughout the system to identify this single value.")
	w.line("  ", NodeIDFieldName, ": ID!")
	w.line("}")
	w.line()

	w.description("The root query type which gives access points into the data universe.")
	w.line("type ", QueryTypeName, " implements ", NodeInterfaceName, " {")
	w.fieldDescription("Exposes the root query type nested one level down. This is helpful for Relay 1 which can only query top level fields if they are in a particular form.")
	w.line("  query: ", QueryTypeName, "!")
	w.fieldDescription("The root query type must be a `Node` to work well with Relay 1 mutations. This just resolves to `query`.")
	w.line("  ", NodeIDFieldName, ": ID!")
	w.fieldDescription("Fetches an object given its globally unique `ID`.")
	w.line("  node(", NodeIDFieldName, ": ID!): ", NodeInterfaceName)
	for _, rel := range c.Relations {
		typeName := inflector.TableType(rel)
		w.fieldDescription("Reads a set of `" + typeName + "`.")
		w.line("  ", inflector.AllRows(rel), ": [", typeName, "!]")
		if !rel.HasPrimaryKey() {
			continue
		}
		args := make([]string, 0, len(rel.PrimaryKey))
		for _, attr := range rel.PrimaryKeyAttributes() {
			args = append(args, inflector.Column(attr)+": "+inflector.ScalarType(attr)+"!")
		}
		w.line("  ", inflector.RowByKey(rel), "(", strings.Join(args, ", "), "): ", typeName)
		w.fieldDescription("Reads a single `" + typeName + "` using its globally unique `ID`.")
		w.line("  ", inflector.RowByNodeID(rel), "(", NodeIDFieldName, ": ID!): ", typeName)
	}
	w.line("}")

	scalars := map[string]struct{}{}
	for _, rel := range c.Relations {
		w.line()
		w.description(rel.Description)
		if rel.HasPrimaryKey() {
			w.line("type ", inflector.TableType(rel), " implements ", NodeInterfaceName, " {")
			w.fieldDescription("A globally unique identifier. Can be used in various places throughout the system to identify this single value.")
			w.line("  ", NodeIDFieldName, ": ID!")
		} else {
			w.line("type ", inflector.TableType(rel), " {")
		}
		for _, attr := range rel.Attributes {
			scalar := inflector.ScalarType(attr)
			if _, ok := builtinScalars[scalar]; !ok {
				scalars[scalar] = struct{}{}
			}
			typ := scalar
			if attr.NotNull {
				typ += "!"
			}
			w.fieldDescription(attr.Description)
			w.line("  ", inflector.Column(attr), ": ", typ)
		}
		w.line("}")
	}

	names := make([]string, 0, len(scalars))
	for name := range scalars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w.line()
		w.description(scalarDescriptions[name])
		w.line("scalar ", name)
	}

	return &ast.Source{Name: "catalog.graphql", Input: w.String()}
}

type sdlWriter struct {
	strings.Builder
}

func (w *sdlWriter) line(parts ...string) {
	for _, part := range parts {
		w.WriteString(part)
	}
	w.WriteByte('\n')
}

func (w *sdlWriter) description(text string) {
	if text == "" {
		return
	}
	w.line(quote(text))
}

func (w *sdlWriter) fieldDescription(text string) {
	if text == "" {
		return
	}
	w.line("  ", quote(text))
}

// quote renders text as a GraphQL string literal. JSON string escapes are a subset of GraphQL's.
func quote(text string) string {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(text)
	if err != nil {
		return `""`
	}
	return out
}
