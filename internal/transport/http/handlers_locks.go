package httptransport

import (
	"net/http"

	"custodia/pkg/domain"
	"custodia/pkg/events"
	"custodia/pkg/platform/httputil"
)

func (h *Handler) handleCreateLock(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[lockRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	account, err := parseAccount(req.Account, "holder")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	expiresAt, err := parseTime(req.ExpiresAt, "expiration")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partition, qualified, err := bodyPartition(req.Partition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var evs []events.Event
	if qualified {
		evs, err = h.ledger.LockByPartition(r.Context(), partition, account, req.Amount, expiresAt)
	} else {
		evs, err = h.ledger.Lock(r.Context(), account, req.Amount, expiresAt)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusCreated, evs)
}

func (h *Handler) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[releaseRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	account, err := parseAccount(req.Account, "holder")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partition, qualified, err := bodyPartition(req.Partition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var evs []events.Event
	if qualified {
		evs, err = h.ledger.ReleaseByPartition(r.Context(), partition, account, domain.LockID(req.LockID))
	} else {
		evs, err = h.ledger.Release(r.Context(), account, domain.LockID(req.LockID))
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleTransferAndLock(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[transferAndLockRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	to, err := parseAccount(req.To, "recipient")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	expiresAt, err := parseTime(req.ExpiresAt, "expiration")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partition, qualified, err := bodyPartition(req.Partition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var evs []events.Event
	if qualified {
		evs, err = h.ledger.TransferAndLockByPartition(r.Context(), partition, to, req.Amount, expiresAt, req.Data)
	} else {
		evs, err = h.ledger.TransferAndLock(r.Context(), to, req.Amount, expiresAt, req.Data)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleLocks(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r, "account")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partition, qualified, err := queryPartition(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !qualified {
		partition = domain.DefaultPartition
	}
	offset, limit := parsePage(r)

	locks, err := h.ledger.LocksOf(r.Context(), account, partition, offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"locks": fromLocks(locks)})
}
