// Package httptransport is the thin HTTP layer over the ledger services.
// Handlers decode, delegate and encode; business rules live in the service
// packages.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"custodia/pkg/platform/middleware/caller"
	"custodia/pkg/platform/middleware/requesttime"
	"custodia/pkg/requestcontext"
)

// Handler bundles the domain services behind the HTTP API.
type Handler struct {
	ledger     LedgerService
	caps       CapService
	snapshots  SnapshotService
	schedule   ScheduleService
	actions    ActionService
	protection ProtectionService
	roles      RoleService
	pause      PauseService
	list       ListService
	resolver   ResolverService
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewHandler wires the services into the HTTP layer.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		ledger:     deps.Ledger,
		caps:       deps.Caps,
		snapshots:  deps.Snapshots,
		schedule:   deps.Schedule,
		actions:    deps.Actions,
		protection: deps.Protection,
		roles:      deps.Roles,
		pause:      deps.Pause,
		list:       deps.List,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Deps lists the services the transport depends on.
type Deps struct {
	Ledger     LedgerService
	Caps       CapService
	Snapshots  SnapshotService
	Schedule   ScheduleService
	Actions    ActionService
	Protection ProtectionService
	Roles      RoleService
	Pause      PauseService
	List       ListService
	Resolver   ResolverService
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

// NewRouter mounts every endpoint. Reads are open; mutations require the
// acting-account header resolved by the caller middleware.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(requesttime.Middleware)

	// Read-only surface.
	r.Group(func(r chi.Router) {
		r.Get("/ledger/balances/{account}", h.handleBalance)
		r.Get("/ledger/supply", h.handleSupply)
		r.Get("/ledger/partitions", h.handlePartitions)
		r.Get("/ledger/partitions/{account}", h.handlePartitionsOf)
		r.Get("/ledger/locks/{account}", h.handleLocks)
		r.Get("/ledger/operators/{holder}/{operator}", h.handleIsOperator)

		r.Get("/caps/max-supply", h.handleGetMaxSupply)
		r.Get("/caps/adjustments", h.handleListAdjustments)

		r.Get("/snapshots/current", h.handleCurrentSnapshot)
		r.Get("/snapshots/{id}/balances/{account}", h.handleBalanceAtSnapshot)
		r.Get("/snapshots/{id}/supply", h.handleSupplyAtSnapshot)

		r.Get("/schedule/tasks", h.handlePendingTasks)

		r.Get("/actions/dividends", h.handleListDividends)
		r.Get("/actions/dividends/{id}", h.handleGetDividend)
		r.Get("/actions/dividends/{id}/entitlements/{account}", h.handleEntitlement)
		r.Get("/actions/{id}", h.handleGetAction)
		r.Get("/actions", h.handleListActions)

		r.Get("/protection", h.handleProtectionState)
		r.Get("/protection/nonces/{account}", h.handleNextNonce)

		r.Get("/admin/pause", h.handlePauseState)
		r.Get("/admin/roles/members", h.handleRoleMembers)
		r.Get("/admin/roles/of/{account}", h.handleAccountRoles)
		r.Get("/admin/modules", h.handleListModules)
		r.Get("/admin/modules/{key}/history", h.handleModuleHistory)
	})

	// Mutating surface.
	r.Group(func(r chi.Router) {
		r.Use(caller.Middleware)

		r.Post("/ledger/issue", h.handleIssue)
		r.Post("/ledger/transfer", h.handleTransfer)
		r.Post("/ledger/redeem", h.handleRedeem)
		r.Post("/ledger/controller/transfer", h.handleControllerTransfer)
		r.Post("/ledger/controller/redeem", h.handleControllerRedeem)
		r.Post("/ledger/operators", h.handleSetOperator)
		r.Post("/ledger/locks", h.handleCreateLock)
		r.Post("/ledger/locks/release", h.handleReleaseLock)
		r.Post("/ledger/transfer-and-lock", h.handleTransferAndLock)

		r.Post("/caps/max-supply", h.handleSetMaxSupply)
		r.Post("/caps/adjustments", h.handleRegisterAdjustment)

		r.Post("/snapshots", h.handleTakeSnapshot)

		r.Post("/schedule/tasks/trigger", h.handleTriggerTasks)

		r.Post("/actions/dividends", h.handleSetDividend)
		r.Post("/actions", h.handleAddAction)

		r.Post("/protection/protect", h.handleProtect)
		r.Post("/protection/unprotect", h.handleUnprotect)
		r.Post("/protection/keys", h.handleRegisterKey)
		r.Post("/protection/transfer", h.handleProtectedTransfer)
		r.Post("/protection/redeem", h.handleProtectedRedeem)

		r.Post("/admin/roles/grant", h.handleGrantRole)
		r.Post("/admin/roles/revoke", h.handleRevokeRole)
		r.Post("/admin/roles/batch", h.handleBatchRoles)
		r.Post("/admin/roles/renounce", h.handleRenounceRole)
		r.Post("/admin/pause", h.handlePause)
		r.Post("/admin/unpause", h.handleUnpause)
		r.Post("/admin/list/add", h.handleListAdd)
		r.Post("/admin/list/remove", h.handleListRemove)

		r.Post("/dispatch", h.handleDispatch)
	})

	return r
}

// requestIDMiddleware bridges chi's request id into the request context used
// by services and audit records.
func requestIDMiddleware(next http.Handler) http.Handler {
	return chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	}))
}
