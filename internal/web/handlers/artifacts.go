package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rate-estimator/internal/artifacts"
)

// Invalidator drops cached models so the next request reloads them from the
// artifact store.
type Invalidator interface {
	Invalidate(kind artifacts.Kind)
}

// ArtifactsHandler lets an operator pick up artifacts written by another
// process, such as the train command.
type ArtifactsHandler struct {
	Cache Invalidator
	Log   *zap.Logger
}

// Reload drops the cached models of one dataset kind and answers 204.
func (h *ArtifactsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	kind, err := artifacts.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Cache.Invalidate(kind)
	h.Log.Info("artifact cache invalidated", zap.String("kind", string(kind)))
	w.WriteHeader(http.StatusNoContent)
}
