// Package http serves GraphQL requests sent as JSON over HTTP POST.
package http

import (
	"io"
	"net/http"

	log "github.com/jensneuse/abstractlogger"
	jsoniter "github.com/json-iterator/go"

	"github.com/wundergraph/pgfederation/pkg/federation"
)

const (
	httpHeaderContentType string = "Content-Type"

	httpContentTypeApplicationJson string = "application/json"

	// maxRequestBodySize bounds the body of a single request.
	maxRequestBodySize = 8 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (g *GraphQLHTTPRequestHandler) handleHTTP(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		g.log.Error("GraphQLHTTPRequestHandler.handleHTTP",
			log.Error(err),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var request federation.Request
	if err = json.Unmarshal(data, &request); err != nil || request.Query == "" {
		g.log.Debug("GraphQLHTTPRequestHandler.handleHTTP",
			log.String("reason", "malformed request body"),
			log.ByteString("body", data),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	response, err := g.executor.Execute(r.Context(), request)
	if err != nil {
		g.log.Error("executor.Execute",
			log.Error(err),
			log.String("operationName", request.OperationName),
		)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	out, err := response.Marshal()
	if err != nil {
		g.log.Error("federation.Response.Marshal",
			log.Error(err),
		)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add(httpHeaderContentType, httpContentTypeApplicationJson)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
