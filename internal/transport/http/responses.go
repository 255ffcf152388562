package httptransport

import (
	"net/http"
	"time"

	actionmodels "custodia/internal/actions/models"
	ledgermodels "custodia/internal/ledger/models"
	resolvermodels "custodia/internal/resolver/models"
	schedulemodels "custodia/internal/schedule/models"
	"custodia/pkg/events"
	"custodia/pkg/platform/httputil"
)

type eventResponse struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	OccurredAt   time.Time         `json:"occurred_at"`
	Caller       string            `json:"caller,omitempty"`
	Account      string            `json:"account,omitempty"`
	Counterparty string            `json:"counterparty,omitempty"`
	Partition    string            `json:"partition,omitempty"`
	Amount       uint64            `json:"amount,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

func fromEvents(evs []events.Event) []eventResponse {
	out := make([]eventResponse, 0, len(evs))
	for _, ev := range evs {
		resp := eventResponse{
			ID:         ev.ID.String(),
			Type:       string(ev.Type),
			OccurredAt: ev.OccurredAt,
			Amount:     ev.Amount,
			Attributes: ev.Attributes,
		}
		if !ev.Caller.IsNil() {
			resp.Caller = ev.Caller.String()
		}
		if !ev.Account.IsNil() {
			resp.Account = ev.Account.String()
		}
		if !ev.Counterparty.IsNil() {
			resp.Counterparty = ev.Counterparty.String()
		}
		if !ev.Partition.IsZero() {
			resp.Partition = ev.Partition.String()
		}
		out = append(out, resp)
	}
	return out
}

// writeEvents is the standard success envelope for mutating operations.
func writeEvents(w http.ResponseWriter, status int, evs []events.Event) {
	httputil.WriteJSON(w, status, map[string]any{"events": fromEvents(evs)})
}

type lockResponse struct {
	ID        uint64    `json:"id"`
	Partition string    `json:"partition"`
	Account   string    `json:"account"`
	Amount    uint64    `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
}

func fromLocks(locks []ledgermodels.Lock) []lockResponse {
	out := make([]lockResponse, 0, len(locks))
	for _, l := range locks {
		out = append(out, lockResponse{
			ID:        uint64(l.ID),
			Partition: l.Partition.String(),
			Account:   l.Account.String(),
			Amount:    l.Amount,
			ExpiresAt: l.ExpiresAt,
		})
	}
	return out
}

type adjustmentResponse struct {
	Factor      uint64    `json:"factor"`
	Decimals    uint8     `json:"decimals"`
	ExecutionAt time.Time `json:"execution_at"`
}

type taskResponse struct {
	ID          uint64    `json:"id"`
	Kind        string    `json:"kind"`
	Ref         uint64    `json:"ref"`
	ScheduledAt time.Time `json:"scheduled_at"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	EnqueuedBy  string    `json:"enqueued_by"`
}

func fromTasks(tasks []schedulemodels.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskResponse{
			ID:          t.ID,
			Kind:        t.Kind,
			Ref:         uint64(t.Ref),
			ScheduledAt: t.ScheduledAt,
			EnqueuedAt:  t.EnqueuedAt,
			EnqueuedBy:  t.EnqueuedBy.String(),
		})
	}
	return out
}

type dividendResponse struct {
	ID            uint64    `json:"id"`
	RecordDate    time.Time `json:"record_date"`
	ExecutionDate time.Time `json:"execution_date"`
	AmountPerUnit uint64    `json:"amount_per_unit"`
	SnapshotID    uint64    `json:"snapshot_id,omitempty"`
	DeclaredAt    time.Time `json:"declared_at"`
	DeclaredBy    string    `json:"declared_by"`
}

func fromDividend(d actionmodels.Dividend) dividendResponse {
	return dividendResponse{
		ID:            uint64(d.ID),
		RecordDate:    d.RecordDate,
		ExecutionDate: d.ExecutionDate,
		AmountPerUnit: d.AmountPerUnit,
		SnapshotID:    uint64(d.SnapshotID),
		DeclaredAt:    d.DeclaredAt,
		DeclaredBy:    d.DeclaredBy.String(),
	}
}

type actionResponse struct {
	ID         uint64    `json:"id"`
	Kind       string    `json:"kind"`
	Data       any       `json:"data,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	RecordedBy string    `json:"recorded_by"`
}

func fromAction(a actionmodels.CorporateAction) actionResponse {
	resp := actionResponse{
		ID:         uint64(a.ID),
		Kind:       a.Kind,
		RecordedAt: a.RecordedAt,
		RecordedBy: a.RecordedBy.String(),
	}
	if len(a.Data) > 0 {
		resp.Data = a.Data
	}
	return resp
}

type bindingResponse struct {
	Key          string    `json:"key"`
	Version      uint64    `json:"version"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
	RegisteredBy string    `json:"registered_by"`
}

func fromBindings(bindings []resolvermodels.Binding) []bindingResponse {
	out := make([]bindingResponse, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, bindingResponse{
			Key:          string(b.Key),
			Version:      uint64(b.Version),
			Status:       string(b.Status),
			RegisteredAt: b.RegisteredAt,
			RegisteredBy: b.RegisteredBy.String(),
		})
	}
	return out
}
