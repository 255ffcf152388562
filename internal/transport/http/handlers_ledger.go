package httptransport

import (
	"net/http"

	"custodia/pkg/domain"
	"custodia/pkg/events"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[movementRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	to, err := parseAccount(req.To, "recipient")
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
		evs, err = h.ledger.IssueByPartition(r.Context(), partition, to, req.Amount, req.Data)
	} else {
		evs, err = h.ledger.Issue(r.Context(), to, req.Amount, req.Data)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[movementRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	to, err := parseAccount(req.To, "recipient")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partition, qualified, err := bodyPartition(req.Partition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx := r.Context()
	var evs []events.Event
	switch {
	case req.From == "" && qualified:
		evs, err = h.ledger.TransferByPartition(ctx, partition, to, req.Amount, req.Data)
	case req.From == "":
		evs, err = h.ledger.Transfer(ctx, to, req.Amount, req.Data)
	default:
		var from domain.AccountID
		from, err = parseAccount(req.From, "source")
		if err != nil {
			break
		}
		if from == requestcontext.Caller(ctx) && qualified {
			evs, err = h.ledger.TransferByPartition(ctx, partition, to, req.Amount, req.Data)
		} else if from == requestcontext.Caller(ctx) {
			evs, err = h.ledger.Transfer(ctx, to, req.Amount, req.Data)
		} else if qualified {
			evs, err = h.ledger.OperatorTransferByPartition(ctx, partition, from, to, req.Amount, req.Data)
		} else {
			evs, err = h.ledger.TransferFrom(ctx, from, to, req.Amount, req.Data)
		}
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[movementRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	partition, qualified, err := bodyPartition(req.Partition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx := r.Context()
	var evs []events.Event
	switch {
	case req.From == "" && qualified:
		evs, err = h.ledger.RedeemByPartition(ctx, partition, req.Amount, req.Data)
	case req.From == "":
		evs, err = h.ledger.Redeem(ctx, req.Amount, req.Data)
	default:
		var from domain.AccountID
		from, err = parseAccount(req.From, "source")
		if err != nil {
			break
		}
		if from == requestcontext.Caller(ctx) && qualified {
			evs, err = h.ledger.RedeemByPartition(ctx, partition, req.Amount, req.Data)
		} else if from == requestcontext.Caller(ctx) {
			evs, err = h.ledger.Redeem(ctx, req.Amount, req.Data)
		} else if qualified {
			evs, err = h.ledger.OperatorRedeemByPartition(ctx, partition, from, req.Amount, req.Data)
		} else {
			evs, err = h.ledger.RedeemFrom(ctx, from, req.Amount, req.Data)
		}
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleControllerTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[movementRequest](w, r, h.logger, r.Context())
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
	to, err := parseAccount(req.To, "recipient")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	evs, err := h.ledger.ControllerTransfer(r.Context(), partition, from, to, req.Amount, req.Data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleControllerRedeem(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[movementRequest](w, r, h.logger, r.Context())
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

	evs, err := h.ledger.ControllerRedeem(r.Context(), partition, from, req.Amount, req.Data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleSetOperator(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[operatorRequest](w, r, h.logger, r.Context())
	if !ok {
		return
	}
	operator, err := parseAccount(req.Operator, "operator")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partition, qualified, err := bodyPartition(req.Partition)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx := r.Context()
	var evs []events.Event
	switch {
	case req.Authorized && qualified:
		evs, err = h.ledger.AuthorizeOperatorByPartition(ctx, partition, operator)
	case req.Authorized:
		evs, err = h.ledger.AuthorizeOperator(ctx, operator)
	case qualified:
		evs, err = h.ledger.RevokeOperatorByPartition(ctx, partition, operator)
	default:
		evs, err = h.ledger.RevokeOperator(ctx, operator)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}

func (h *Handler) handleIsOperator(w http.ResponseWriter, r *http.Request) {
	holder, err := accountParam(r, "holder")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	operator, err := accountParam(r, "operator")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partition, qualified, err := queryPartition(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var authorized bool
	if qualified {
		authorized, err = h.ledger.IsOperatorForPartition(r.Context(), holder, operator, partition)
	} else {
		authorized, err = h.ledger.IsOperator(r.Context(), holder, operator)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"authorized": authorized})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
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

	ctx := r.Context()
	resp := map[string]any{"account": account.String()}
	if qualified {
		balance, err := h.ledger.BalanceOfByPartition(ctx, account, partition)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		free, err := h.ledger.FreeBalanceOf(ctx, account, partition)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		locked, err := h.ledger.LockedAmountOf(ctx, account, partition)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resp["partition"] = partition.String()
		resp["balance"] = balance
		resp["free"] = free
		resp["locked"] = locked
	} else {
		total, err := h.ledger.TotalBalanceOf(ctx, account)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resp["balance"] = total
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSupply(w http.ResponseWriter, r *http.Request) {
	partition, qualified, err := queryPartition(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var supply uint64
	if qualified {
		supply, err = h.ledger.TotalSupplyByPartition(r.Context(), partition)
	} else {
		supply, err = h.ledger.TotalSupply(r.Context())
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"supply": supply})
}

func (h *Handler) handlePartitions(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePage(r)
	partitions, err := h.ledger.Partitions(r.Context(), offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"partitions": partitionStrings(partitions)})
}

func (h *Handler) handlePartitionsOf(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r, "account")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, limit := parsePage(r)
	partitions, err := h.ledger.PartitionsOf(r.Context(), account, offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"partitions": partitionStrings(partitions)})
}

func partitionStrings(partitions []domain.Partition) []string {
	out := make([]string, 0, len(partitions))
	for _, p := range partitions {
		out = append(out, p.String())
	}
	return out
}
