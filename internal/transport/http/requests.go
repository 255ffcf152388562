package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// movementRequest covers issue, transfer and redeem bodies. Partition and
// From are optional: an empty partition selects the single-partition
// veneers, an empty From means the caller moves its own funds.
type movementRequest struct {
	Partition string `json:"partition,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Amount    uint64 `json:"amount"`
	Data      []byte `json:"data,omitempty"`
}

type operatorRequest struct {
	Partition  string `json:"partition,omitempty"`
	Operator   string `json:"operator"`
	Authorized bool   `json:"authorized"`
}

type lockRequest struct {
	Partition string `json:"partition,omitempty"`
	Account   string `json:"account"`
	Amount    uint64 `json:"amount"`
	ExpiresAt string `json:"expires_at"`
}

type releaseRequest struct {
	Partition string `json:"partition,omitempty"`
	Account   string `json:"account"`
	LockID    uint64 `json:"lock_id"`
}

type transferAndLockRequest struct {
	Partition string `json:"partition,omitempty"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	ExpiresAt string `json:"expires_at"`
	Data      []byte `json:"data,omitempty"`
}

type maxSupplyRequest struct {
	Partition string `json:"partition,omitempty"`
	Value     uint64 `json:"value"`
}

type adjustmentRequest struct {
	Factor      uint64 `json:"factor"`
	Decimals    uint8  `json:"decimals"`
	ExecutionAt string `json:"execution_at"`
}

type dividendRequest struct {
	RecordDate    string `json:"record_date"`
	ExecutionDate string `json:"execution_date"`
	AmountPerUnit uint64 `json:"amount_per_unit"`
}

type corporateActionRequest struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

type keyRequest struct {
	Account   string `json:"account"`
	PublicKey []byte `json:"public_key"`
}

type protectedMovementRequest struct {
	Partition string `json:"partition"`
	From      string `json:"from"`
	To        string `json:"to,omitempty"`
	Amount    uint64 `json:"amount"`
	Deadline  string `json:"deadline"`
	Nonce     uint64 `json:"nonce"`
	Signature []byte `json:"signature"`
}

type roleRequest struct {
	Role      string `json:"role"`
	Partition string `json:"partition,omitempty"`
	Account   string `json:"account"`
}

type batchRolesRequest struct {
	Account string        `json:"account"`
	Roles   []roleRequest `json:"roles"`
	Actives []bool        `json:"actives"`
}

type listEntryRequest struct {
	Account string `json:"account"`
}

type dispatchRequest struct {
	Key       string         `json:"key"`
	Operation string         `json:"operation"`
	Args      map[string]any `json:"args"`
}

func parseAccount(s, what string) (domain.AccountID, error) {
	if s == "" {
		return domain.AccountID{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s account is required", what)
	}
	id, err := domain.ParseAccountID(s)
	if err != nil {
		return domain.AccountID{}, dErrors.Wrapf(err, dErrors.CodeInvalidInput, "invalid %s account", what)
	}
	return id, nil
}

func accountParam(r *http.Request, name string) (domain.AccountID, error) {
	return parseAccount(chi.URLParam(r, name), name)
}

// queryPartition reads the optional ?partition= parameter. ok is false when
// the parameter is absent, selecting the single-partition veneer.
func queryPartition(r *http.Request) (domain.Partition, bool, error) {
	raw := r.URL.Query().Get("partition")
	if raw == "" {
		return domain.Partition{}, false, nil
	}
	p, err := domain.ParsePartition(raw)
	if err != nil {
		return domain.Partition{}, false, err
	}
	return p, true, nil
}

// bodyPartition parses an optional partition field from a request body.
func bodyPartition(raw string) (domain.Partition, bool, error) {
	if raw == "" {
		return domain.Partition{}, false, nil
	}
	p, err := domain.ParsePartition(raw)
	if err != nil {
		return domain.Partition{}, false, err
	}
	return p, true, nil
}

func parsePage(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return offset, limit
}

func parseRole(req roleRequest) (domain.Role, error) {
	kind, err := domain.ParseRoleKind(req.Role)
	if err != nil {
		return domain.Role{}, err
	}
	if req.Partition == "" {
		return domain.LedgerRole(kind), nil
	}
	p, err := domain.ParsePartition(req.Partition)
	if err != nil {
		return domain.Role{}, err
	}
	return domain.PartitionRole(kind, p), nil
}

func dErrorsInvalid(what string, err error) error {
	return dErrors.Wrapf(err, dErrors.CodeInvalidInput, "invalid %s", what)
}

func parseTime(raw, what string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.Wrapf(err, dErrors.CodeInvalidInput, "invalid %s", what)
	}
	return t, nil
}

func idParam(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.Wrapf(err, dErrors.CodeInvalidInput, "invalid %s", name)
	}
	return id, nil
}
