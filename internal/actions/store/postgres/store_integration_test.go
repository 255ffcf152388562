//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/actions/models"
	"custodia/internal/actions/store/postgres"
	"custodia/pkg/domain"
	"custodia/pkg/testutil/containers"
)

type PostgresActionStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.PostgresActionStore
}

func TestPostgresActionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresActionStoreSuite))
}

func (s *PostgresActionStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(s.pg.Migrate(context.Background(), postgres.Schema))
	s.store = postgres.New(s.pg.DB)
}

func (s *PostgresActionStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "dividends", "corporate_actions"))
}

func (s *PostgresActionStoreSuite) newDividend() models.Dividend {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return models.Dividend{
		RecordDate:    now.Add(24 * time.Hour),
		ExecutionDate: now.Add(48 * time.Hour),
		AmountPerUnit: 5,
		DeclaredAt:    now,
		DeclaredBy:    domain.NewAccountID(),
	}
}

func (s *PostgresActionStoreSuite) TestDividendRoundTrip() {
	ctx := context.Background()

	inserted, err := s.store.InsertDividend(ctx, s.newDividend())
	s.Require().NoError(err)
	s.NotZero(inserted.ID)

	got, err := s.store.GetDividend(ctx, inserted.ID)
	s.Require().NoError(err)
	s.Equal(inserted.AmountPerUnit, got.AmountPerUnit)
	s.Equal(inserted.DeclaredBy, got.DeclaredBy)
	s.True(inserted.RecordDate.Equal(got.RecordDate))
	s.False(got.Bound())

	_, err = s.store.GetDividend(ctx, 9999)
	s.Require().ErrorIs(err, models.ErrDividendNotFound)
}

func (s *PostgresActionStoreSuite) TestBindSnapshot() {
	ctx := context.Background()

	d, err := s.store.InsertDividend(ctx, s.newDividend())
	s.Require().NoError(err)

	s.Require().NoError(s.store.BindSnapshot(ctx, d.ID, 7))

	got, err := s.store.GetDividend(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.SnapshotID(7), got.SnapshotID)

	// binds exactly once
	err = s.store.BindSnapshot(ctx, d.ID, 8)
	s.Require().ErrorIs(err, models.ErrSnapshotAlreadyBound)

	err = s.store.BindSnapshot(ctx, 9999, 1)
	s.Require().ErrorIs(err, models.ErrDividendNotFound)
}

func (s *PostgresActionStoreSuite) TestActionsByKind() {
	ctx := context.Background()
	by := domain.NewAccountID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, kind := range []string{models.KindCoupon, "rights-issue", models.KindCoupon} {
		_, err := s.store.InsertAction(ctx, models.CorporateAction{
			Kind:       kind,
			Data:       json.RawMessage(`{"note":"x"}`),
			RecordedAt: now,
			RecordedBy: by,
		})
		s.Require().NoError(err)
	}

	coupons, err := s.store.ListActionsByKind(ctx, models.KindCoupon, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(coupons, 2)
	s.Less(coupons[0].ID, coupons[1].ID)

	page, err := s.store.ListActionsByKind(ctx, models.KindCoupon, 1, 10)
	s.Require().NoError(err)
	s.Len(page, 1)

	_, err = s.store.GetAction(ctx, 9999)
	s.Require().ErrorIs(err, models.ErrActionNotFound)
}
