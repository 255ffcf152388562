package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// handleDispatch routes a generic operation through the module resolver, so
// clients bind to capability keys instead of concrete service versions.
func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[dispatchRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	if req.Key == "" || req.Operation == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "key and operation are required"))
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), domain.CapabilityKey(req.Key), req.Operation, req.Args)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *Handler) handleListModules(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePage(r)
	keys, err := h.resolver.ListKeys(r.Context(), offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, string(key))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"keys": out})
}

func (h *Handler) handleModuleHistory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "capability key is required"))
		return
	}
	history, err := h.resolver.History(r.Context(), domain.CapabilityKey(key))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": fromBindings(history)})
}
