package graphqlerrors

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

func TestRequestErrors_Error(t *testing.T) {
	requestErrs := RequestErrors{
		RequestError{
			Message: "a single error",
			Locations: []Location{
				{
					Line:   1,
					Column: 1,
				},
			},
			Path: NewErrorPath("hello"),
		},
	}

	assert.Equal(t, "a single error, locations: [{Line:1 Column:1}], path: hello", requestErrs.Error())
	assert.Equal(t, "no error", RequestErrors{}.Error())
}

func TestRequestErrors_WriteResponse(t *testing.T) {
	requestErrs := RequestErrors{
		RequestError{
			Message: "error in operation",
			Locations: []Location{
				{
					Line:   1,
					Column: 1,
				},
			},
			Path: NewErrorPath("_entities", 0),
		},
	}

	buf := new(bytes.Buffer)
	n, err := requestErrs.WriteResponse(buf)

	expectedResponse := `{"errors":[{"message":"error in operation","locations":[{"line":1,"column":1}],"path":["_entities",0]}],"data":null}`

	assert.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Equal(t, expectedResponse, buf.String())
}

func TestRequestError_MarshalJSON(t *testing.T) {
	t.Run("without path", func(t *testing.T) {
		data, err := json.Marshal(RequestError{Message: "boom"})
		require.NoError(t, err)
		assert.Equal(t, `{"message":"boom"}`, string(data))
	})
	t.Run("with path", func(t *testing.T) {
		data, err := json.Marshal(NewRequestError("boom", "_entities", 2))
		require.NoError(t, err)
		assert.Equal(t, `{"message":"boom","path":["_entities",2]}`, string(data))
	})
}

func TestRequestErrorsFromError(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		errs := RequestErrorsFromError(errors.New("something failed"))
		require.Len(t, errs, 1)
		assert.Equal(t, "something failed", errs[0].Message)
		assert.Equal(t, 0, errs[0].Path.Len())
		assert.Equal(t, "something failed", errs[0].Error())
	})

	t.Run("request errors", func(t *testing.T) {
		original := RequestErrors{NewRequestError("a"), NewRequestError("b")}
		errs := RequestErrorsFromError(fmt.Errorf("wrapped: %w", original))
		assert.Equal(t, original, errs)
	})

	t.Run("gqlparser list", func(t *testing.T) {
		list := gqlerror.List{
			{
				Message:   `Cannot query field "films" on type "Query".`,
				Locations: []gqlerror.Location{{Line: 1, Column: 3}},
			},
			{
				Message: "second",
				Path:    ast.Path{ast.PathName("_entities"), ast.PathIndex(1)},
			},
		}
		errs := RequestErrorsFromError(list)
		require.Len(t, errs, 2)
		assert.Equal(t, `Cannot query field "films" on type "Query".`, errs[0].Message)
		assert.Equal(t, []Location{{Line: 1, Column: 3}}, errs[0].Locations)
		assert.Equal(t, 2, errs[1].Path.Len())
	})

	t.Run("single gqlparser error", func(t *testing.T) {
		errs := RequestErrorsFromError(gqlerror.Errorf("variable %s is required", "representations"))
		require.Len(t, errs, 1)
		assert.Equal(t, "variable representations is required", errs[0].Message)
	})
}

func TestRequestErrors_ErrorByIndex(t *testing.T) {
	errs := RequestErrors{NewRequestError("a")}
	assert.Equal(t, 1, errs.Count())
	assert.Equal(t, NewRequestError("a"), errs.ErrorByIndex(0))
	assert.Nil(t, errs.ErrorByIndex(1))
}
