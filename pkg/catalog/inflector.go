package catalog

import (
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// Inflector maps catalog names to GraphQL names.
type Inflector interface {
	// TableType is the object type name of a relation.
	TableType(r *Relation) string
	// Column is the field name of an attribute.
	Column(a Attribute) string
	// NodeIdentifier is the first element of the node id of rows of r.
	NodeIdentifier(r *Relation) string
	// AllRows is the root query field listing every row of r.
	AllRows(r *Relation) string
	// RowByKey is the root query field fetching a row of r by its primary key.
	RowByKey(r *Relation) string
	// RowByNodeID is the root query field fetching a row of r by node id.
	RowByNodeID(r *Relation) string
	// ScalarType is the GraphQL scalar of a column type.
	ScalarType(a Attribute) string
}

// DefaultInflector produces postgraphile style names:
// users becomes User, first_name becomes firstName, users_emails becomes UsersEmail.
type DefaultInflector struct{}

var _ Inflector = DefaultInflector{}

func (DefaultInflector) TableType(r *Relation) string {
	if r.TypeName != "" {
		return r.TypeName
	}
	return strcase.ToCamel(inflection.Singular(r.Name))
}

func (DefaultInflector) Column(a Attribute) string {
	return strcase.ToLowerCamel(a.Name)
}

func (DefaultInflector) NodeIdentifier(r *Relation) string {
	return strcase.ToLowerCamel(r.Name)
}

func (i DefaultInflector) AllRows(r *Relation) string {
	return "all" + strcase.ToCamel(inflection.Plural(inflection.Singular(r.Name))) + "List"
}

func (i DefaultInflector) RowByKey(r *Relation) string {
	parts := make([]string, 0, len(r.PrimaryKey))
	for _, name := range r.PrimaryKey {
		parts = append(parts, strcase.ToCamel(name))
	}
	return strcase.ToLowerCamel(i.TableType(r)) + "By" + strings.Join(parts, "And")
}

func (i DefaultInflector) RowByNodeID(r *Relation) string {
	return strcase.ToLowerCamel(i.TableType(r))
}

func (DefaultInflector) ScalarType(a Attribute) string {
	t := strings.ToLower(strings.TrimSpace(a.Type))
	if strings.HasSuffix(t, "[]") {
		return "String"
	}
	switch t {
	case "smallint", "integer", "int", "int2", "int4", "serial", "smallserial":
		return "Int"
	case "bigint", "int8", "bigserial":
		return "BigInt"
	case "real", "double precision", "float4", "float8", "numeric", "decimal":
		return "Float"
	case "boolean", "bool":
		return "Boolean"
	case "uuid":
		return "UUID"
	case "json", "jsonb":
		return "JSON"
	case "timestamp", "timestamptz", "timestamp with time zone", "timestamp without time zone":
		return "Datetime"
	default:
		return "String"
	}
}
