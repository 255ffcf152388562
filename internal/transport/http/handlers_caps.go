package httptransport

import (
	"net/http"

	"custodia/pkg/events"
	"custodia/pkg/platform/httputil"
)

func (h *Handler) handleSetMaxSupply(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[maxSupplyRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	partition, qualified, err := bodyPartition(req.Partition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var evs []events.Event
	if qualified {
		evs, err = h.caps.SetMaxSupplyByPartition(r.Context(), partition, req.Value)
	} else {
		evs, err = h.caps.SetMaxSupply(r.Context(), req.Value)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleRegisterAdjustment(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[adjustmentRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	executionAt, err := parseTime(req.ExecutionAt, "execution date")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	evs, err := h.caps.RegisterAdjustment(r.Context(), req.Factor, req.Decimals, executionAt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusCreated, evs)
}

func (h *Handler) handleGetMaxSupply(w http.ResponseWriter, r *http.Request) {
	partition, qualified, err := queryPartition(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var value uint64
	var capped bool
	if qualified {
		value, capped, err = h.caps.GetMaxSupplyByPartition(r.Context(), partition)
	} else {
		value, capped, err = h.caps.GetMaxSupply(r.Context())
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"max_supply": value, "capped": capped})
}

func (h *Handler) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	adjustments, err := h.caps.Adjustments(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]adjustmentResponse, 0, len(adjustments))
	for _, a := range adjustments {
		out = append(out, adjustmentResponse{Factor: a.Factor, Decimals: a.Decimals, ExecutionAt: a.ExecutionAt})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"adjustments": out})
}
