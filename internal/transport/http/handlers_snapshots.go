package httptransport

import (
	"net/http"
	"strconv"

	"custodia/pkg/domain"
	"custodia/pkg/events"
	"custodia/pkg/platform/httputil"
)

func (h *Handler) handleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, evs, err := h.snapshots.TakeSnapshot(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"snapshot_id": uint64(snap.ID),
		"taken_at":    snap.TakenAt,
		"events":      fromEvents(evs),
	})
}

func (h *Handler) handleCurrentSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := h.snapshots.CurrentSnapshotID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"snapshot_id": uint64(id)})
}

func (h *Handler) handleBalanceAtSnapshot(w http.ResponseWriter, r *http.Request) {
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
	partition, qualified, err := queryPartition(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var balance uint64
	if qualified {
		balance, err = h.snapshots.BalanceOfAtSnapshotByPartition(r.Context(), domain.SnapshotID(id), account, partition)
	} else {
		balance, err = h.snapshots.BalanceOfAtSnapshot(r.Context(), domain.SnapshotID(id), account)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (h *Handler) handleSupplyAtSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partition, qualified, err := queryPartition(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var supply uint64
	if qualified {
		supply, err = h.snapshots.PartitionSupplyAtSnapshot(r.Context(), domain.SnapshotID(id), partition)
	} else {
		supply, err = h.snapshots.TotalSupplyAtSnapshot(r.Context(), domain.SnapshotID(id))
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"supply": supply})
}

func (h *Handler) handlePendingTasks(w http.ResponseWriter, r *http.Request) {
	offset, limit := parsePage(r)
	tasks, err := h.schedule.Pending(r.Context(), offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tasks": fromTasks(tasks)})
}

// handleTriggerTasks fires due tasks. Optional query parameters: max bounds
// how many tasks fire, index fires one specific queue position.
func (h *Handler) handleTriggerTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var evs []events.Event
	var err error
	switch {
	case r.URL.Query().Get("index") != "":
		var index int
		index, err = strconv.Atoi(r.URL.Query().Get("index"))
		if err != nil {
			httputil.WriteError(w, dErrorsInvalid("index", err))
			return
		}
		evs, err = h.schedule.TriggerAt(ctx, index)
	case r.URL.Query().Get("max") != "":
		var maxCount int
		maxCount, err = strconv.Atoi(r.URL.Query().Get("max"))
		if err != nil {
			httputil.WriteError(w, dErrorsInvalid("max", err))
			return
		}
		evs, err = h.schedule.TriggerUpTo(ctx, maxCount)
	default:
		evs, err = h.schedule.TriggerPending(ctx)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeEvents(w, http.StatusOK, evs)
}
