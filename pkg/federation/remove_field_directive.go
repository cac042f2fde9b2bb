package federation

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/pgfederation/pkg/astbuilder"
)

// federationSupportTypes are left out of the advertised SDL.
var federationSupportTypes = map[string]struct{}{
	anyScalarName:   {},
	fieldSetName:    {},
	serviceTypeName: {},
	entityUnionName: {},
}

func isFederationDirective(name string) bool {
	for _, directive := range federationDirectives {
		if directive == name {
			return true
		}
	}
	return false
}

// removeFederationFields returns def without the federation entry points and
// the introspection fields the validator adds to the root query type.
func removeFederationFields(def *ast.Definition, isQuery bool) *ast.Definition {
	var drop []string
	for _, field := range def.Fields {
		if strings.HasPrefix(field.Name, "__") {
			drop = append(drop, field.Name)
		}
	}
	if isQuery {
		drop = append(drop, entitiesFieldName, serviceFieldName)
	}
	if len(drop) == 0 {
		return def
	}
	return astbuilder.WithoutFields(def, drop...)
}

func isBuiltIn(def *ast.Definition) bool {
	return def.BuiltIn || (def.Position != nil && def.Position.Src != nil && def.Position.Src.BuiltIn) || strings.HasPrefix(def.Name, "__")
}

func isBuiltInDirective(def *ast.DirectiveDefinition) bool {
	return def.Position != nil && def.Position.Src != nil && def.Position.Src.BuiltIn
}
