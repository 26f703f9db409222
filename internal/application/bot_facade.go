package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/usecase"
)

// BotFacade composes usecases into high-level bot interactions.
// Methods return ready-to-send strings; an empty string means "say nothing".
type BotFacade struct {
	PublishUC PublishUseCaseIface
	AccessUC  AccessUseCaseIface
	Sequences SequenceIface
	tr        Translator
	log       *zerolog.Logger

	mu sync.Mutex
	// albums already answered with a failure, so later parts stay quiet
	failedGroups map[string]time.Time
}

const failedGroupTTL = time.Minute

func NewBotFacade(publishUC PublishUseCaseIface, accessUC AccessUseCaseIface, sequences SequenceIface, tr Translator, logger *zerolog.Logger) *BotFacade {
	l := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		PublishUC: publishUC,
		AccessUC:  accessUC,
		Sequences: sequences,
		tr:        tr,
		log:       &l,

		failedGroups: make(map[string]time.Time),
	}
}

// HandleSubmission runs one inbound submission through the coordinator and
// returns the reply for the submitter. Album parts get no reply here; the
// coordinator notifies once the whole album is published.
func (b *BotFacade) HandleSubmission(ctx context.Context, sub *model.Submission) string {
	out, err := b.PublishUC.Submit(ctx, sub)
	if err != nil {
		if !errors.Is(err, domain.ErrNotAuthorized) && !errors.Is(err, domain.ErrDuplicateDelivery) {
			b.log.Error().Err(err).Int64("submitter_id", sub.SubmitterID).Msg("submission failed")
		}
		msg := usecase.FailureMessage(b.tr, err, out.SequenceNumber)
		if msg != "" && sub.GroupKey != "" && !b.firstGroupFailure(sub.SubmitterID, sub.GroupKey) {
			return ""
		}
		return msg
	}
	if out.Status == model.PublishStatusPending {
		return ""
	}
	return b.tr.T("publish.published", out.SequenceNumber)
}

// firstGroupFailure records a failed album and reports whether it is the
// first failure seen for it.
func (b *BotFacade) firstGroupFailure(submitterID int64, groupKey string) bool {
	key := fmt.Sprintf("%d:%s", submitterID, groupKey)
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, at := range b.failedGroups {
		if now.Sub(at) > failedGroupTTL {
			delete(b.failedGroups, k)
		}
	}
	if _, ok := b.failedGroups[key]; ok {
		return false
	}
	b.failedGroups[key] = now
	return true
}

func (b *BotFacade) HandleStart(ctx context.Context, tgID int64) string {
	if _, err := b.AccessUC.Authorize(ctx, tgID); err != nil {
		if errors.Is(err, domain.ErrNotAuthorized) {
			return b.tr.T("start.no_grant", tgID)
		}
		return usecase.FailureMessage(b.tr, err, 0)
	}
	return b.tr.T("start.granted")
}

func (b *BotFacade) HandleHelp() string {
	return b.tr.T("help")
}

// HandleStatus describes the submitter's grant and the last number used in their channel.
func (b *BotFacade) HandleStatus(ctx context.Context, tgID int64) (string, error) {
	g, err := b.AccessUC.Get(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.tr.T("status.no_grant"), nil
		}
		return "", err
	}
	auth, err := b.AccessUC.Authorize(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthorized) {
			return b.tr.T("status.inactive"), nil
		}
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(b.tr.T("status.destination", auth.DestinationID))
	if g.ExpiresAt != nil {
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("status.expires", g.ExpiresAt.Format("2006-01-02 15:04")))
	}
	if b.Sequences != nil {
		if snap, err := b.Sequences.Snapshot(ctx); err == nil {
			sb.WriteString("\n")
			sb.WriteString(b.tr.T("status.last_number", snap[auth.DestinationID]))
		} else {
			b.log.Warn().Err(err).Msg("counter snapshot unavailable")
		}
	}
	sb.WriteString("\n\n")
	sb.WriteString(b.tr.T("status.template", auth.Template))
	return sb.String(), nil
}
