package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain"
	"github.com/kailas-cloud/riskrag/internal/logger"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest       = "bad_request"
	codeValidation       = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeForbidden        = "forbidden"
	codeNotFound         = "not_found"
	codeNoChunks         = "no_chunks"
	codeDimMismatch      = "vector_dim_mismatch"
	codeModelUnavailable = "llm_unavailable"
	codeModelProvider    = "llm_provider_error"
	codeEmbeddingError   = "embedding_provider_error"
	codeInternal         = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound, "Analysis not found"),
	sentinelHandler(domain.ErrFileNotFound, http.StatusNotFound, codeNotFound, ""),
	sentinelHandler(domain.ErrForbidden, http.StatusForbidden, codeForbidden,
		"You don't have permission to access this analysis"),
	sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized, ""),
	sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidation, ""),
	sentinelHandler(domain.ErrNoChunks, http.StatusBadRequest, codeNoChunks, "No chunks ingested"),
	sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeDimMismatch, ""),
	sentinelHandler(domain.ErrModelUnavailable, http.StatusServiceUnavailable, codeModelUnavailable, ""),
	sentinelHandler(domain.ErrModelProviderError, http.StatusBadGateway, codeModelProvider, ""),
	sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError, ""),
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// An empty detail exposes the wrapped message, which for these sentinels
// carries only caller-facing context.
func sentinelHandler(sentinel error, status int, code, detail string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := detail
		if msg == "" {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Code: code, Detail: detail})
}
