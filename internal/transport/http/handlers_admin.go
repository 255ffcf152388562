package httptransport

import (
	"net/http"

	"custodia/pkg/domain"
	"custodia/pkg/events"
	"custodia/pkg/platform/httputil"
)

func (h *Handler) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleChange(w, r, true)
}

func (h *Handler) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleChange(w, r, false)
}

func (h *Handler) handleRoleChange(w http.ResponseWriter, r *http.Request, grant bool) {
	req, ok := httputil.Decode[roleRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	role, err := parseRole(req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := parseAccount(req.Account, "grantee")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var evs []events.Event
	if grant {
		evs, err = h.roles.Grant(r.Context(), role, account)
	} else {
		evs, err = h.roles.Revoke(r.Context(), role, account)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

// handleRenounceRole strips a role from the caller itself.
func (h *Handler) handleRenounceRole(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[roleRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	role, err := parseRole(req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	evs, err := h.roles.Renounce(r.Context(), role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleRoleMembers(w http.ResponseWriter, r *http.Request) {
	role, err := parseRole(roleRequest{
		Role:      r.URL.Query().Get("role"),
		Partition: r.URL.Query().Get("partition"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, limit := parsePage(r)

	members, err := h.roles.MembersOf(r.Context(), role, offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.String())
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) handleAccountRoles(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r, "account")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, limit := parsePage(r)

	held, err := h.roles.RolesOf(r.Context(), account, offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]string, 0, len(held))
	for _, role := range held {
		out = append(out, role.String())
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"roles": out})
}

// handleBatchRoles applies several role changes to one account atomically.
func (h *Handler) handleBatchRoles(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[batchRolesRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	account, err := parseAccount(req.Account, "grantee")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	roles := make([]domain.Role, 0, len(req.Roles))
	for _, rr := range req.Roles {
		role, err := parseRole(rr)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		roles = append(roles, role)
	}

	evs, err := h.roles.ApplyMany(r.Context(), roles, req.Actives, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	evs, err := h.pause.Pause(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	evs, err := h.pause.Unpause(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handlePauseState(w http.ResponseWriter, r *http.Request) {
	paused, err := h.pause.IsPaused(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

func (h *Handler) handleListAdd(w http.ResponseWriter, r *http.Request) {
	h.handleListChange(w, r, true)
}

func (h *Handler) handleListRemove(w http.ResponseWriter, r *http.Request) {
	h.handleListChange(w, r, false)
}

func (h *Handler) handleListChange(w http.ResponseWriter, r *http.Request, add bool) {
	req, ok := httputil.Decode[listEntryRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	account, err := parseAccount(req.Account, "listed")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var evs []events.Event
	if add {
		evs, err = h.list.Add(r.Context(), account)
	} else {
		evs, err = h.list.Remove(r.Context(), account)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}
