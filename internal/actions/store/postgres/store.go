// Package postgres persists the corporate-action log in PostgreSQL. The
// store is pure I/O; validation and snapshot-binding rules live in the
// service.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custodia/internal/actions/models"
	"custodia/pkg/domain"
)

// Schema creates the corporate-action tables. Exposed for integration tests
// and migrations.
const Schema = `
CREATE SEQUENCE IF NOT EXISTS corporate_action_ids;

CREATE TABLE IF NOT EXISTS dividends (
	id             BIGINT PRIMARY KEY DEFAULT nextval('corporate_action_ids'),
	record_date    TIMESTAMPTZ NOT NULL,
	execution_date TIMESTAMPTZ NOT NULL,
	amount_per_unit BIGINT NOT NULL,
	snapshot_id    BIGINT NOT NULL DEFAULT 0,
	declared_at    TIMESTAMPTZ NOT NULL,
	declared_by    UUID NOT NULL
);

CREATE TABLE IF NOT EXISTS corporate_actions (
	id          BIGINT PRIMARY KEY DEFAULT nextval('corporate_action_ids'),
	kind        TEXT NOT NULL,
	data        JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	recorded_by UUID NOT NULL
);

CREATE INDEX IF NOT EXISTS corporate_actions_kind_idx ON corporate_actions (kind, id);
`

type PostgresActionStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresActionStore {
	return &PostgresActionStore{db: db}
}

func (s *PostgresActionStore) InsertDividend(ctx context.Context, d models.Dividend) (models.Dividend, error) {
	query := `
		INSERT INTO dividends (record_date, execution_date, amount_per_unit, snapshot_id, declared_at, declared_by)
		VALUES ($1, $2, $3, 0, $4, $5)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		d.RecordDate, d.ExecutionDate, int64(d.AmountPerUnit), d.DeclaredAt, d.DeclaredBy.String(),
	).Scan(&id)
	if err != nil {
		return models.Dividend{}, fmt.Errorf("insert dividend: %w", err)
	}
	d.ID = domain.ActionID(id)
	return d, nil
}

func (s *PostgresActionStore) GetDividend(ctx context.Context, id domain.ActionID) (models.Dividend, error) {
	query := `
		SELECT id, record_date, execution_date, amount_per_unit, snapshot_id, declared_at, declared_by
		FROM dividends
		WHERE id = $1
	`
	d, err := scanDividend(s.db.QueryRowContext(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Dividend{}, models.ErrDividendNotFound
		}
		return models.Dividend{}, fmt.Errorf("get dividend: %w", err)
	}
	return d, nil
}

// BindSnapshot sets the snapshot id, guarded in SQL so a bound dividend
// never rebinds.
func (s *PostgresActionStore) BindSnapshot(ctx context.Context, id domain.ActionID, snapshotID domain.SnapshotID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dividends SET snapshot_id = $2 WHERE id = $1 AND snapshot_id = 0`,
		int64(id), int64(snapshotID),
	)
	if err != nil {
		return fmt.Errorf("bind dividend snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind dividend snapshot: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM dividends WHERE id = $1)`, int64(id),
		).Scan(&exists); err != nil {
			return fmt.Errorf("bind dividend snapshot: %w", err)
		}
		if !exists {
			return models.ErrDividendNotFound
		}
		return models.ErrSnapshotAlreadyBound
	}
	return nil
}

func (s *PostgresActionStore) ListDividends(ctx context.Context, offset, limit int) ([]models.Dividend, error) {
	query := `
		SELECT id, record_date, execution_date, amount_per_unit, snapshot_id, declared_at, declared_by
		FROM dividends
		ORDER BY id
		OFFSET $1 LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list dividends: %w", err)
	}
	defer rows.Close()

	var out []models.Dividend
	for rows.Next() {
		d, err := scanDividend(rows)
		if err != nil {
			return nil, fmt.Errorf("list dividends: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresActionStore) InsertAction(ctx context.Context, a models.CorporateAction) (models.CorporateAction, error) {
	query := `
		INSERT INTO corporate_actions (kind, data, recorded_at, recorded_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query, a.Kind, []byte(a.Data), a.RecordedAt, a.RecordedBy.String()).Scan(&id)
	if err != nil {
		return models.CorporateAction{}, fmt.Errorf("insert corporate action: %w", err)
	}
	a.ID = domain.ActionID(id)
	return a, nil
}

func (s *PostgresActionStore) GetAction(ctx context.Context, id domain.ActionID) (models.CorporateAction, error) {
	query := `
		SELECT id, kind, data, recorded_at, recorded_by
		FROM corporate_actions
		WHERE id = $1
	`
	a, err := scanAction(s.db.QueryRowContext(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CorporateAction{}, models.ErrActionNotFound
		}
		return models.CorporateAction{}, fmt.Errorf("get corporate action: %w", err)
	}
	return a, nil
}

func (s *PostgresActionStore) ListActionsByKind(ctx context.Context, kind string, offset, limit int) ([]models.CorporateAction, error) {
	query := `
		SELECT id, kind, data, recorded_at, recorded_by
		FROM corporate_actions
		WHERE kind = $1
		ORDER BY id
		OFFSET $2 LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, kind, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list corporate actions: %w", err)
	}
	defer rows.Close()

	var out []models.CorporateAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("list corporate actions: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDividend(row rowScanner) (models.Dividend, error) {
	var (
		d          models.Dividend
		id         int64
		amount     int64
		snapshotID int64
		declaredBy string
	)
	if err := row.Scan(&id, &d.RecordDate, &d.ExecutionDate, &amount, &snapshotID, &d.DeclaredAt, &declaredBy); err != nil {
		return models.Dividend{}, err
	}
	d.ID = domain.ActionID(id)
	d.AmountPerUnit = uint64(amount)
	d.SnapshotID = domain.SnapshotID(snapshotID)
	by, err := domain.ParseAccountID(declaredBy)
	if err != nil {
		return models.Dividend{}, err
	}
	d.DeclaredBy = by
	return d, nil
}

func scanAction(row rowScanner) (models.CorporateAction, error) {
	var (
		a          models.CorporateAction
		id         int64
		data       []byte
		recordedBy string
	)
	if err := row.Scan(&id, &a.Kind, &data, &a.RecordedAt, &recordedBy); err != nil {
		return models.CorporateAction{}, err
	}
	a.ID = domain.ActionID(id)
	a.Data = data
	by, err := domain.ParseAccountID(recordedBy)
	if err != nil {
		return models.CorporateAction{}, err
	}
	a.RecordedBy = by
	return a, nil
}
