package federation

import (
	"bytes"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"go.uber.org/atomic"
)

// Printer renders the SDL a service advertises through _service { sdl }.
// Results are memoized by schema identity.
type Printer struct {
	cache   *lru.Cache
	renders atomic.Uint32
}

// NewPrinter returns a printer remembering the SDL of the last size schemas.
func NewPrinter(size int) (*Printer, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Printer{cache: cache}, nil
}

// Print returns the SDL of schema without the federation entry points, their
// support types, federation directive definitions and built-ins.
func (p *Printer) Print(schema *ast.Schema) (string, error) {
	if schema == nil {
		return "", fmt.Errorf("federation: print: nil schema")
	}
	if sdl, ok := p.cache.Get(schema); ok {
		return sdl.(string), nil
	}
	sdl := render(schema)
	p.renders.Inc()
	p.cache.Add(schema, sdl)
	return sdl, nil
}

// Renders returns how many times a schema was rendered instead of served from the cache.
func (p *Printer) Renders() uint32 {
	return p.renders.Load()
}

var defaultPrinter = mustPrinter(NewPrinter(1))

func mustPrinter(p *Printer, err error) *Printer {
	if err != nil {
		panic(err)
	}
	return p
}

// PrintFederatedSchema prints with a package level printer holding the last schema.
func PrintFederatedSchema(schema *ast.Schema) (string, error) {
	return defaultPrinter.Print(schema)
}

func render(schema *ast.Schema) string {
	doc := &ast.SchemaDocument{}

	if root := nonDefaultRoots(schema); root != nil {
		doc.Schema = append(doc.Schema, root)
	}

	directiveNames := make([]string, 0, len(schema.Directives))
	for name, def := range schema.Directives {
		if isBuiltInDirective(def) || isFederationDirective(name) {
			continue
		}
		directiveNames = append(directiveNames, name)
	}
	sort.Strings(directiveNames)
	for _, name := range directiveNames {
		doc.Directives = append(doc.Directives, schema.Directives[name])
	}

	typeNames := make([]string, 0, len(schema.Types))
	for name, def := range schema.Types {
		if isBuiltIn(def) {
			continue
		}
		if _, ok := federationSupportTypes[name]; ok {
			continue
		}
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, name := range typeNames {
		def := schema.Types[name]
		doc.Definitions = append(doc.Definitions, removeFederationFields(def, schema.Query != nil && def == schema.Query))
	}

	buf := &bytes.Buffer{}
	formatter.NewFormatter(buf).FormatSchemaDocument(doc)
	return buf.String()
}

func nonDefaultRoots(schema *ast.Schema) *ast.SchemaDefinition {
	var operations ast.OperationTypeDefinitionList
	defaultNames := true
	add := func(op ast.Operation, def *ast.Definition, defaultName string) {
		if def == nil {
			return
		}
		if def.Name != defaultName {
			defaultNames = false
		}
		operations = append(operations, &ast.OperationTypeDefinition{Operation: op, Type: def.Name})
	}
	add(ast.Query, schema.Query, "Query")
	add(ast.Mutation, schema.Mutation, "Mutation")
	add(ast.Subscription, schema.Subscription, "Subscription")
	if defaultNames {
		return nil
	}
	return &ast.SchemaDefinition{OperationTypes: operations}
}
