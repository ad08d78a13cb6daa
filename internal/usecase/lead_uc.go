package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/repository"
)

var _ LeadUseCase = (*leadUC)(nil)

// LeadUseCase captures marketing-site contact submissions.
type LeadUseCase interface {
	Capture(ctx context.Context, fullName, email, phone, source string) (*model.Lead, error)
}

type leadUC struct {
	leads repository.LeadRepository
	log   *zerolog.Logger
}

func NewLeadUseCase(leads repository.LeadRepository, logger *zerolog.Logger) *leadUC {
	l := logger.With().Str("component", "LeadUC").Logger()
	return &leadUC{leads: leads, log: &l}
}

func (u *leadUC) Capture(ctx context.Context, fullName, email, phone, source string) (*model.Lead, error) {
	lead, err := model.NewLead(fullName, email, phone, source)
	if err != nil {
		return nil, err
	}
	if err := u.leads.Save(ctx, repository.NoTX, lead); err != nil {
		return nil, err
	}
	u.log.Info().Str("lead_id", lead.ID).Str("source", source).Msg("lead captured")
	return lead, nil
}
