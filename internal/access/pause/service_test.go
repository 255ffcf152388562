package pause_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"custodia/internal/access/models"
	"custodia/internal/access/pause"
	"custodia/internal/access/roles"
	pausestore "custodia/internal/access/store/pause"
	rolesstore "custodia/internal/access/store/roles"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/events"
	"custodia/pkg/requestcontext"
)

type PauseServiceSuite struct {
	suite.Suite
	svc *pause.Service

	admin  domain.AccountID
	pauser domain.AccountID
}

func TestPauseServiceSuite(t *testing.T) {
	suite.Run(t, new(PauseServiceSuite))
}

func (s *PauseServiceSuite) SetupTest() {
	s.admin = domain.NewAccountID()
	s.pauser = domain.NewAccountID()

	roleSvc, err := roles.New(rolesstore.New(), s.admin)
	s.Require().NoError(err)
	adminCtx := requestcontext.WithCaller(context.Background(), s.admin)
	_, err = roleSvc.Grant(adminCtx, domain.LedgerRole(domain.RolePauser), s.pauser)
	s.Require().NoError(err)

	s.svc, err = pause.New(pausestore.New(), roleSvc)
	s.Require().NoError(err)
}

func (s *PauseServiceSuite) as(account domain.AccountID) context.Context {
	return requestcontext.WithCaller(context.Background(), account)
}

func (s *PauseServiceSuite) TestPauseUnpause() {
	paused, err := s.svc.IsPaused(context.Background())
	s.Require().NoError(err)
	s.False(paused)

	evs, err := s.svc.Pause(s.as(s.pauser))
	s.Require().NoError(err)
	s.Require().Len(evs, 1)
	s.Equal(events.TypePaused, evs[0].Type)

	paused, err = s.svc.IsPaused(context.Background())
	s.Require().NoError(err)
	s.True(paused)

	s.Require().ErrorIs(s.svc.RequireNotPaused(context.Background()), models.ErrTokenPaused)

	evs, err = s.svc.Unpause(s.as(s.pauser))
	s.Require().NoError(err)
	s.Require().Len(evs, 1)
	s.Equal(events.TypeUnpaused, evs[0].Type)

	s.Require().NoError(s.svc.RequireNotPaused(context.Background()))
}

func (s *PauseServiceSuite) TestDoubleTransitionsFail() {
	_, err := s.svc.Pause(s.as(s.pauser))
	s.Require().NoError(err)

	_, err = s.svc.Pause(s.as(s.pauser))
	s.Require().ErrorIs(err, models.ErrTokenPaused)
	s.True(dErrors.HasCode(err, dErrors.CodeLifecycle))

	_, err = s.svc.Unpause(s.as(s.pauser))
	s.Require().NoError(err)

	_, err = s.svc.Unpause(s.as(s.pauser))
	s.Require().ErrorIs(err, models.ErrTokenNotPaused)
	s.True(dErrors.HasCode(err, dErrors.CodeLifecycle))
}

func (s *PauseServiceSuite) TestRequiresPauserRole() {
	outsider := domain.NewAccountID()
	_, err := s.svc.Pause(s.as(outsider))
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	// Admin does not imply pauser.
	_, err = s.svc.Pause(s.as(s.admin))
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
