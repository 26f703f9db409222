package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/domain/ports/repository"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

type AccessUseCase interface {
	Authorizer
	Grant(ctx context.Context, submitterID int64, destinationID, template string, ttl time.Duration) (*model.Grant, error)
	SetTemplate(ctx context.Context, submitterID int64, template string) error
	Revoke(ctx context.Context, submitterID int64) error
	Get(ctx context.Context, submitterID int64) (*model.Grant, error)
	ListActive(ctx context.Context) ([]*model.Grant, error)
	// FinishExpired deactivates grants whose expiry has passed.
	FinishExpired(ctx context.Context) (int, error)
}

type accessUC struct {
	grants             repository.GrantRepository
	defaultDestination string
	now                func() time.Time
	log                *zerolog.Logger
}

func NewAccessUseCase(grants repository.GrantRepository, defaultDestination string, logger *zerolog.Logger) *accessUC {
	l := logger.With().Str("component", "AccessUC").Logger()
	return &accessUC{
		grants:             grants,
		defaultDestination: strings.TrimSpace(defaultDestination),
		now:                time.Now,
		log:                &l,
	}
}

// Authorize fails closed: a missing, inactive, expired or template-less grant is ErrNotAuthorized.
// Storage errors surface as ErrStorageUnavailable.
func (uc *accessUC) Authorize(ctx context.Context, submitterID int64) (*model.Authorization, error) {
	if submitterID == 0 {
		return nil, domain.ErrNotAuthorized
	}
	g, err := uc.grants.FindBySubmitter(ctx, submitterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotAuthorized
		}
		uc.log.Error().Err(err).Int64("submitter_id", submitterID).Msg("grant lookup failed")
		return nil, storageErr(err)
	}
	if !g.Usable(uc.now()) {
		return nil, domain.ErrNotAuthorized
	}
	dest := g.DestinationID
	if dest == "" {
		dest = uc.defaultDestination
	}
	if dest == "" {
		return nil, domain.ErrNotAuthorized
	}
	return &model.Authorization{SubmitterID: submitterID, DestinationID: dest, Template: g.Template}, nil
}

func (uc *accessUC) Grant(ctx context.Context, submitterID int64, destinationID, template string, ttl time.Duration) (*model.Grant, error) {
	if strings.TrimSpace(template) == "" {
		return nil, domain.ErrInvalidArgument
	}
	g, err := model.NewGrant(submitterID, destinationID, template, ttl)
	if err != nil {
		return nil, err
	}
	if existing, err := uc.grants.FindBySubmitter(ctx, submitterID); err == nil {
		g.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, storageErr(err)
	}
	if err := uc.grants.Save(ctx, g); err != nil {
		return nil, storageErr(err)
	}
	uc.log.Info().Int64("submitter_id", submitterID).Str("destination", g.DestinationID).Msg("grant saved")
	return g, nil
}

func (uc *accessUC) SetTemplate(ctx context.Context, submitterID int64, template string) error {
	if strings.TrimSpace(template) == "" {
		return domain.ErrInvalidArgument
	}
	g, err := uc.grants.FindBySubmitter(ctx, submitterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return storageErr(err)
	}
	g.Template = template
	g.UpdatedAt = uc.now()
	if err := uc.grants.Save(ctx, g); err != nil {
		return storageErr(err)
	}
	return nil
}

func (uc *accessUC) Revoke(ctx context.Context, submitterID int64) error {
	if err := uc.grants.Deactivate(ctx, submitterID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return storageErr(err)
	}
	uc.log.Info().Int64("submitter_id", submitterID).Msg("grant revoked")
	return nil
}

func (uc *accessUC) Get(ctx context.Context, submitterID int64) (*model.Grant, error) {
	return uc.grants.FindBySubmitter(ctx, submitterID)
}

func (uc *accessUC) ListActive(ctx context.Context) ([]*model.Grant, error) {
	return uc.grants.ListActive(ctx)
}

func (uc *accessUC) FinishExpired(ctx context.Context) (int, error) {
	n, err := uc.grants.ExpireBefore(ctx, uc.now())
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func storageErr(err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
