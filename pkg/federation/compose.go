package federation

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

const (
	entitiesFieldName = "_entities"
	serviceFieldName  = "_service"
	entityUnionName   = "_Entity"
	serviceTypeName   = "_Service"
	anyScalarName     = "_Any"
	fieldSetName      = "_FieldSet"
)

// federationDirectives are the directives defined by the federation protocol.
var federationDirectives = []string{"external", "requires", "provides", "key", "extends"}

const baseFederationSchema = `
"""
Used to represent a federated entity via its keys.
"""
scalar _Any

"""
Used to represent a set of fields. Grammatically, a field set is a
selection set minus the braces.
"""
scalar _FieldSet

"""
Describes our federated service.
"""
type _Service {
  """
  The GraphQL Schema Language definition of our endpoint including the
  Apollo Federation directives (but not their definitions or the special
  Apollo Federation fields).
  """
  sdl: String @deprecated(reason: "Only Apollo Federation should use this")
}

directive @external on FIELD_DEFINITION
directive @requires(fields: _FieldSet!) on FIELD_DEFINITION
directive @provides(fields: _FieldSet!) on FIELD_DEFINITION
directive @key(fields: _FieldSet!) repeatable on OBJECT | INTERFACE
directive @extends on OBJECT | INTERFACE
`

func federationTypeDefs() *ast.Source {
	return &ast.Source{Name: "federation.graphql", Input: baseFederationSchema}
}

// composeEntryPoints returns the _Entity union and the Query extension holding
// the federation entry points. Without entities only _service is added.
func composeEntryPoints(entities []string) *ast.Source {
	sb := strings.Builder{}
	if len(entities) > 0 {
		sb.WriteString("\"\"\"\nA union of all federated types (those that use the @key directive).\n\"\"\"\n")
		sb.WriteString("union " + entityUnionName + " = " + strings.Join(entities, " | ") + "\n\n")
	}
	sb.WriteString("extend type Query {\n")
	if len(entities) > 0 {
		sb.WriteString("  \"\"\"\n  Fetches a list of entities using their representations; used for Apollo\n  Federation.\n  \"\"\"\n")
		sb.WriteString("  " + entitiesFieldName + "(representations: [" + anyScalarName + "!]!): [" + entityUnionName + "]! @deprecated(reason: \"Only Apollo Federation should use this\")\n")
	}
	sb.WriteString("  \"\"\"\n  Entrypoint for Apollo Federation to determine more information about\n  this service.\n  \"\"\"\n")
	sb.WriteString("  " + serviceFieldName + ": " + serviceTypeName + "! @deprecated(reason: \"Only Apollo Federation should use this\")\n")
	sb.WriteString("}\n")
	return &ast.Source{Name: "federation_entrypoints.graphql", Input: sb.String()}
}
