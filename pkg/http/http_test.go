package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jensneuse/abstractlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/datasource/memory"
	"github.com/wundergraph/pgfederation/pkg/federation"
)

func newForumService(t *testing.T) *federation.Service {
	t.Helper()
	c, err := catalog.Load("../catalog/testdata/forum.yaml")
	require.NoError(t, err)
	schema, err := federation.NewBuilder(c).Build()
	require.NoError(t, err)

	users, ok := c.Relation("users")
	require.True(t, ok)
	store := memory.New()
	require.NoError(t, store.Insert(users, map[string]any{"id": 1, "first_name": "alicia", "last_name": "keys"}))

	service, err := federation.NewService(schema, store, federation.Config{})
	require.NoError(t, err)
	return service
}

type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, federation.Request) (*federation.Response, error) {
	return nil, errors.New("database is gone")
}

func TestGraphQLHTTPRequestHandler_HandleHTTP(t *testing.T) {
	handler := NewGraphqlHTTPHandler(newForumService(t), abstractlogger.NoopLogger)

	post := func(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, "http://localhost:4001/graphql", bytes.NewBufferString(body))
		require.NoError(t, err)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	t.Run("should resolve entities and return 200 OK", func(t *testing.T) {
		w := post(t, handler, `{"query":"query($r: [_Any!]!) { _entities(representations: $r) { ... on User { id firstName nodeId } } }","variables":{"r":[{"__typename":"User","id":1}]}}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, httpContentTypeApplicationJson, w.Header().Get(httpHeaderContentType))
		assert.Equal(t, `{"data":{"_entities":[{"id":1,"firstName":"alicia","nodeId":"WyJ1c2VycyIsMV0="}]}}`, w.Body.String())
	})

	t.Run("should serve the service sdl", func(t *testing.T) {
		w := post(t, handler, `{"query":"{ _service { sdl } }"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `@key(fields: \"userId emailId\")`)
	})

	t.Run("should return graphql errors with 200 OK when query does not fit to schema", func(t *testing.T) {
		w := post(t, handler, `{"query":"{ posts { id } }"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"errors":[`)
		assert.Contains(t, w.Body.String(), `"data":null`)
	})

	t.Run("should return 400 Bad Request for malformed bodies", func(t *testing.T) {
		for _, body := range []string{`not json`, `{}`, `{"query":""}`} {
			w := post(t, handler, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})

	t.Run("should return 405 Method Not Allowed for GET", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "http://localhost:4001/graphql?query=%7B__typename%7D", nil)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
	})

	t.Run("should return 500 Internal Server Error when execution fails", func(t *testing.T) {
		w := post(t, NewGraphqlHTTPHandler(failingExecutor{}, nil), `{"query":"{ __typename }"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, w.Body.String())
	})
}
