// Package graphqlerrors renders errors in the GraphQL response format.
package graphqlerrors

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Errors interface {
	error
	WriteResponse(writer io.Writer) (n int, err error)
	Count() int
	ErrorByIndex(i int) error
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type RequestErrors []RequestError

// RequestErrorsFromError converts err, keeping locations and paths of gqlparser errors.
func RequestErrorsFromError(err error) RequestErrors {
	var requestErrors RequestErrors
	if errors.As(err, &requestErrors) {
		return requestErrors
	}
	var list gqlerror.List
	if errors.As(err, &list) {
		return RequestErrorsFromList(list)
	}
	var single *gqlerror.Error
	if errors.As(err, &single) {
		return RequestErrorsFromList(gqlerror.List{single})
	}
	return RequestErrors{
		{
			Message: err.Error(),
		},
	}
}

// RequestErrorsFromList converts the errors returned by query validation.
func RequestErrorsFromList(list gqlerror.List) (errors RequestErrors) {
	for _, gqlErr := range list {
		if gqlErr == nil {
			continue
		}
		locations := make([]Location, 0, len(gqlErr.Locations))
		for _, loc := range gqlErr.Locations {
			locations = append(locations, Location{Line: loc.Line, Column: loc.Column})
		}
		errors = append(errors, RequestError{
			Message:   gqlErr.Message,
			Locations: locations,
			Path:      ErrorPath{astPath: gqlErr.Path},
		})
	}
	return errors
}

func (o RequestErrors) Error() string {
	if len(o) > 0 {
		return o.ErrorByIndex(0).Error()
	}
	return "no error"
}

// WriteResponse writes the errors as a response without data.
// It should only be used for errors that happen before execution, e.g. validation errors.
func (o RequestErrors) WriteResponse(writer io.Writer) (n int, err error) {
	response := Response{
		Errors: o,
	}

	responseBytes, err := response.Marshal()
	if err != nil {
		return 0, err
	}

	return writer.Write(responseBytes)
}

func (o RequestErrors) Count() int {
	return len(o)
}

func (o RequestErrors) ErrorByIndex(i int) error {
	if i >= o.Count() {
		return nil
	}

	return o[i]
}

type RequestError struct {
	Message   string     `json:"message"`
	Locations []Location `json:"locations,omitempty"`
	Path      ErrorPath  `json:"path"`
}

// NewRequestError returns an error located at path. Path elements are field names or list indexes.
func NewRequestError(message string, path ...any) RequestError {
	return RequestError{
		Message: message,
		Path:    NewErrorPath(path...),
	}
}

func (o RequestError) MarshalJSON() ([]byte, error) {
	if o.Path.Len() == 0 {
		return json.Marshal(struct {
			Message   string     `json:"message"`
			Locations []Location `json:"locations,omitempty"`
		}{
			Message:   o.Message,
			Locations: o.Locations,
		})
	}
	return json.Marshal(struct {
		Message   string     `json:"message"`
		Locations []Location `json:"locations,omitempty"`
		Path      ast.Path   `json:"path"`
	}{
		Message:   o.Message,
		Locations: o.Locations,
		Path:      o.Path.astPath,
	})
}

func (o RequestError) Error() string {
	if len(o.Locations) == 0 && o.Path.Len() == 0 {
		return o.Message
	}
	return fmt.Sprintf("%s, locations: %+v, path: %s", o.Message, o.Locations, o.Path.String())
}

type ErrorPath struct {
	astPath ast.Path
}

// NewErrorPath builds a path from field names (string) and list indexes (int).
// Other element types are formatted as field names.
func NewErrorPath(elements ...any) ErrorPath {
	path := make(ast.Path, 0, len(elements))
	for _, element := range elements {
		switch e := element.(type) {
		case int:
			path = append(path, ast.PathIndex(e))
		case string:
			path = append(path, ast.PathName(e))
		default:
			path = append(path, ast.PathName(fmt.Sprint(e)))
		}
	}
	return ErrorPath{astPath: path}
}

func (e *ErrorPath) String() string {
	return e.astPath.String()
}

func (e *ErrorPath) Len() int {
	return len(e.astPath)
}
