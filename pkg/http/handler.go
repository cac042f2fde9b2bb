package http

import (
	"context"
	"net/http"

	log "github.com/jensneuse/abstractlogger"

	"github.com/wundergraph/pgfederation/pkg/federation"
)

// Executor runs GraphQL requests. *federation.Service implements it.
type Executor interface {
	Execute(ctx context.Context, request federation.Request) (*federation.Response, error)
}

func NewGraphqlHTTPHandler(executor Executor, logger log.Logger) http.Handler {
	if logger == nil {
		logger = log.NoopLogger
	}
	return &GraphQLHTTPRequestHandler{
		log:      logger,
		executor: executor,
	}
}

type GraphQLHTTPRequestHandler struct {
	log      log.Logger
	executor Executor
}

func (g *GraphQLHTTPRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	g.handleHTTP(w, r)
}
