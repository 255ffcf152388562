package httptransport

import (
	"net/http"

	"custodia/pkg/domain"
	"custodia/pkg/platform/httputil"
)

func (h *Handler) handleSetDividend(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[dividendRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	recordDate, err := parseTime(req.RecordDate, "record date")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	executionDate, err := parseTime(req.ExecutionDate, "execution date")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	dividend, evs, err := h.actions.SetDividend(r.Context(), recordDate, executionDate, req.AmountPerUnit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"dividend": fromDividend(dividend),
		"events":   fromEvents(evs),
	})
}

func (h *Handler) handleGetDividend(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dividend, err := h.actions.GetDividend(r.Context(), domain.ActionID(id))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDividend(dividend))
}

func (h *Handler) handleListDividends(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePage(r)
	dividends, err := h.actions.ListDividends(r.Context(), offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]dividendResponse, 0, len(dividends))
	for _, d := range dividends {
		out = append(out, fromDividend(d))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"dividends": out})
}

func (h *Handler) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := accountParam(r, "account")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entitlement, err := h.actions.GetDividendsFor(r.Context(), domain.ActionID(id), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"dividend_id":   uint64(entitlement.DividendID),
		"account":       entitlement.Account.String(),
		"token_balance": entitlement.TokenBalance,
	})
}

func (h *Handler) handleAddAction(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[corporateActionRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	action, evs, err := h.actions.AddCorporateAction(r.Context(), req.Kind, req.Data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"action": fromAction(action),
		"events": fromEvents(evs),
	})
}

func (h *Handler) handleGetAction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := h.actions.GetAction(r.Context(), domain.ActionID(id))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromAction(action))
}

func (h *Handler) handleListActions(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	offset, limit := parsePage(r)
	actions, err := h.actions.ListActionsByKind(r.Context(), kind, offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]actionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, fromAction(a))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"actions": out})
}
