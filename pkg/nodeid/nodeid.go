// Package nodeid encodes and decodes global object identifiers.
//
// A node id is the base64 encoding of a JSON array whose first element names
// the relation and whose remaining elements are its primary key values:
//
//	["users",1] -> WyJ1c2VycyIsMV0=
package nodeid

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

// ErrInvalidIdentifier is returned for ids that cannot be decoded.
var ErrInvalidIdentifier = errors.New("invalid node identifier")

// QueryIdentifier addresses the root query object.
const QueryIdentifier = "query"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec converts between identifiers plus key values and opaque ids.
type Codec interface {
	Encode(identifier string, values ...any) (string, error)
	Decode(id string) (identifier string, values []any, err error)
}

// Base64JSON is the default Codec.
type Base64JSON struct{}

var _ Codec = Base64JSON{}

func (Base64JSON) Encode(identifier string, values ...any) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrInvalidIdentifier)
	}
	payload := make([]any, 0, len(values)+1)
	payload = append(payload, identifier)
	payload = append(payload, values...)
	data, err := jsonAPI.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode returns the identifier and key values of id. Integral numbers decode
// as int64, or as json.Number when they do not fit, other numbers as float64.
func (Base64JSON) Decode(id string) (string, []any, error) {
	data, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q is not base64", ErrInvalidIdentifier, id)
	}
	if !gjson.ValidBytes(data) {
		return "", nil, fmt.Errorf("%w: payload is not JSON", ErrInvalidIdentifier)
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return "", nil, fmt.Errorf("%w: payload is not an array", ErrInvalidIdentifier)
	}
	elements := parsed.Array()
	if len(elements) == 0 || elements[0].Type != gjson.String || elements[0].Str == "" {
		return "", nil, fmt.Errorf("%w: missing identifier", ErrInvalidIdentifier)
	}
	values := make([]any, 0, len(elements)-1)
	for _, element := range elements[1:] {
		values = append(values, value(element))
	}
	return elements[0].Str, values, nil
}

func value(result gjson.Result) any {
	switch result.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return result.Str
	case gjson.Number:
		if strings.ContainsAny(result.Raw, ".eE") {
			return result.Num
		}
		if n, err := strconv.ParseInt(result.Raw, 10, 64); err == nil {
			return n
		}
		return json.Number(result.Raw)
	default:
		return result.Value()
	}
}

var defaultCodec Base64JSON

// Encode encodes with the default codec.
func Encode(identifier string, values ...any) (string, error) {
	return defaultCodec.Encode(identifier, values...)
}

// Decode decodes with the default codec.
func Decode(id string) (string, []any, error) {
	return defaultCodec.Decode(id)
}
