package httptransport

import (
	"net/http"

	protectionmodels "custodia/internal/protection/models"
	"custodia/pkg/domain"
	"custodia/pkg/events"
	"custodia/pkg/platform/httputil"
)

func (h *Handler) handleProtect(w http.ResponseWriter, r *http.Request) {
	evs, err := h.protection.ProtectPartitions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleUnprotect(w http.ResponseWriter, r *http.Request) {
	evs, err := h.protection.UnprotectPartitions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleProtectionState(w http.ResponseWriter, r *http.Request) {
	protected, err := h.protection.IsProtected(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"protected": protected})
}

func (h *Handler) handleRegisterKey(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[keyRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	account, err := parseAccount(req.Account, "key holder")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.protection.RegisterAuthorizationKey(r.Context(), account, req.PublicKey); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"account": account.String()})
}

func (h *Handler) handleNextNonce(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r, "account")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nonce, err := h.protection.NextNonce(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"nonce": nonce})
}

func (h *Handler) handleProtectedTransfer(w http.ResponseWriter, r *http.Request) {
	h.handleProtectedMovement(w, r, true)
}

func (h *Handler) handleProtectedRedeem(w http.ResponseWriter, r *http.Request) {
	h.handleProtectedMovement(w, r, false)
}

func (h *Handler) handleProtectedMovement(w http.ResponseWriter, r *http.Request, withRecipient bool) {
	req, ok := httputil.Decode[protectedMovementRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	partition, err := domain.ParsePartition(req.Partition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	from, err := parseAccount(req.From, "source")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	deadline, err := parseTime(req.Deadline, "deadline")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proof := protectionmodels.Proof{Deadline: deadline, Nonce: req.Nonce, Signature: req.Signature}

	var evs []events.Event
	if withRecipient {
		var to domain.AccountID
		to, err = parseAccount(req.To, "recipient")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		evs, err = h.protection.ProtectedTransferFromByPartition(r.Context(), partition, from, to, req.Amount, proof)
	} else {
		evs, err = h.protection.ProtectedRedeemFromByPartition(r.Context(), partition, from, req.Amount, proof)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}
