package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/domain/ports/adapter"
	"telegram-object-publisher/internal/domain/ports/repository"
	"telegram-object-publisher/internal/infra/logging"
	"telegram-object-publisher/internal/infra/metrics"
	"telegram-object-publisher/internal/infra/worker"
)

// Compile-time check
var _ PublishUseCase = (*publishCoordinator)(nil)

const (
	DefaultHeaderFormat = "#Объект %d"
	unsupportedMarker   = "<Unsupported content>"
)

type PublishUseCase interface {
	// Submit runs authorize → sanitize → allocate → publish for a single item,
	// or parks an album part until its group flushes (outcome Pending).
	Submit(ctx context.Context, sub *model.Submission) (model.PublishOutcome, error)
	// Close flushes open albums; their publishes still go through the worker pool.
	Close()
}

// Authorizer answers whether a submitter may publish, where, and with which template.
type Authorizer interface {
	Authorize(ctx context.Context, submitterID int64) (*model.Authorization, error)
}

// Translator renders user-facing notification text.
type Translator interface {
	T(key string, args ...interface{}) string
}

type PublishDeps struct {
	Access     Authorizer
	Sanitizer  *Sanitizer
	Sequences  *SequenceAllocator
	Publisher  adapter.Publisher
	Notifier   adapter.Notifier
	Translator Translator

	// optional
	Records repository.PublishLogRepository
	Claims  adapter.SubmissionClaimer
	Pool    *worker.Pool
}

type PublishOptions struct {
	Debounce time.Duration
	// HeaderFormat and templates are sent as written, in the transport's markup.
	HeaderFormat string
	// Escape, when set, is applied to the submitter's cleaned text before the template is added.
	Escape func(string) string
}

type publishCoordinator struct {
	access    Authorizer
	sanitizer *Sanitizer
	seq       *SequenceAllocator
	publisher adapter.Publisher
	notifier  adapter.Notifier
	tr        Translator
	records   repository.PublishLogRepository
	claims    adapter.SubmissionClaimer
	pool      *worker.Pool

	albums       *AlbumAggregator
	headerFormat string
	escape       func(string) string
	log          *zerolog.Logger
}

func NewPublishCoordinator(deps PublishDeps, opts PublishOptions, logger *zerolog.Logger) (PublishUseCase, error) {
	if deps.Access == nil || deps.Sanitizer == nil || deps.Sequences == nil || deps.Publisher == nil {
		return nil, errors.New("publish coordinator: access, sanitizer, sequences and publisher are required")
	}
	if deps.Notifier == nil || deps.Translator == nil {
		return nil, errors.New("publish coordinator: notifier and translator are required")
	}
	if opts.HeaderFormat == "" {
		opts.HeaderFormat = DefaultHeaderFormat
	}
	l := logger.With().Str("component", "PublishCoordinator").Logger()
	c := &publishCoordinator{
		access:       deps.Access,
		sanitizer:    deps.Sanitizer,
		seq:          deps.Sequences,
		publisher:    deps.Publisher,
		notifier:     deps.Notifier,
		tr:           deps.Translator,
		records:      deps.Records,
		claims:       deps.Claims,
		pool:         deps.Pool,
		headerFormat: opts.HeaderFormat,
		escape:       opts.Escape,
		log:          &l,
	}
	c.albums = NewAlbumAggregator(opts.Debounce, c.handleFlush, logger)
	return c, nil
}

func (c *publishCoordinator) Close() { c.albums.Close() }

func (c *publishCoordinator) Submit(ctx context.Context, sub *model.Submission) (model.PublishOutcome, error) {
	failed := model.PublishOutcome{Status: model.PublishStatusFailed}
	if sub == nil || sub.SubmitterID == 0 {
		return failed, domain.ErrInvalidArgument
	}
	ctx = logging.WithSubmitterID(ctx, sub.SubmitterID)
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "PublishCoordinator.Submit")()
	metrics.IncSubmission(string(sub.Kind))

	auth, err := c.access.Authorize(ctx, sub.SubmitterID)
	if err != nil {
		log.Info().Err(err).Msg("submission rejected")
		metrics.IncPublish(string(sub.Kind), "rejected")
		return failed, err
	}
	if sub.DestinationID != "" && sub.DestinationID != auth.DestinationID {
		log.Warn().Str("requested", sub.DestinationID).Str("granted", auth.DestinationID).Msg("destination not covered by grant")
		metrics.IncPublish(string(sub.Kind), "rejected")
		return failed, domain.ErrNotAuthorized
	}
	bound := sub.WithDestination(auth.DestinationID)

	if bound.SourceRef != "" && c.claims != nil {
		ok, err := c.claims.Claim(ctx, bound.SourceRef)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("source", bound.SourceRef).Msg("redelivery check unavailable; accepting")
		case !ok:
			log.Info().Str("source", bound.SourceRef).Msg("duplicate delivery ignored")
			return failed, domain.ErrDuplicateDelivery
		}
	}

	if bound.IsAlbumPart() {
		opened := c.albums.Add(bound)
		log.Debug().Str("group", bound.GroupKey).Bool("opened", opened).Msg("album part buffered")
		return model.PublishOutcome{Status: model.PublishStatusPending}, nil
	}
	return c.publish(ctx, auth, []*model.Submission{bound})
}

// handleFlush runs on the aggregator's timer goroutine; the publish itself goes to the pool.
func (c *publishCoordinator) handleFlush(groupKey string, members []*model.Submission) {
	if len(members) == 0 {
		return
	}
	task := func(ctx context.Context) error {
		c.publishAlbum(ctx, groupKey, members)
		return nil
	}
	if c.pool != nil {
		err := c.pool.Submit(task)
		if err == nil {
			return
		}
		c.log.Warn().Err(err).Str("group", groupKey).Msg("worker pool rejected album; publishing inline")
	}
	_ = task(context.Background())
}

func (c *publishCoordinator) publishAlbum(ctx context.Context, groupKey string, members []*model.Submission) {
	first := members[0]
	ctx = logging.WithSubmitterID(ctx, first.SubmitterID)
	log := logging.With(ctx, c.log).With().Str("group", groupKey).Logger()

	// the grant may have changed while the album was open
	auth, err := c.access.Authorize(ctx, first.SubmitterID)
	if err != nil {
		log.Info().Err(err).Msg("album rejected at flush")
		metrics.IncPublish("album", "rejected")
		c.releaseClaims(ctx, members)
		c.notify(ctx, first.SubmitterID, FailureMessage(c.tr, err, 0))
		return
	}

	outcome, err := c.publish(ctx, auth, members)
	if err != nil {
		c.notify(ctx, first.SubmitterID, FailureMessage(c.tr, err, outcome.SequenceNumber))
		return
	}
	c.notify(ctx, first.SubmitterID, c.tr.T("album.published", outcome.SequenceNumber, len(members)))
}

// publish sanitizes the first member's text, allocates a number and hands one
// request to the publisher. Once a number is allocated the send is not
// cancellable; a failed send leaves a gap rather than reusing the number.
func (c *publishCoordinator) publish(ctx context.Context, auth *model.Authorization, members []*model.Submission) (model.PublishOutcome, error) {
	log := logging.With(ctx, c.log)
	first := members[0]

	raw := first.RawText
	if first.Kind == model.MediaKindUnsupported && strings.TrimSpace(raw) == "" {
		raw = unsupportedMarker
	}
	cleaned := c.sanitizer.Clean(raw)
	if c.escape != nil {
		cleaned = c.escape(cleaned)
	}
	body := Compose(cleaned, auth.Template)

	n, err := c.seq.Next(ctx, auth.DestinationID)
	if err != nil {
		log.Error().Err(err).Str("destination", auth.DestinationID).Msg("sequence allocation failed; not publishing")
		metrics.IncPublish(kindOf(members), "aborted")
		c.releaseClaims(ctx, members)
		return model.PublishOutcome{Status: model.PublishStatusFailed}, err
	}
	ctx = context.WithoutCancel(ctx)

	req := c.buildRequest(auth, n, members, body)
	rl := log.With().Str("request_id", req.ID).Str("destination", req.DestinationID).
		Int64("sequence", n).Str("kind", req.Kind()).Logger()
	log = &rl

	if err := c.publisher.Publish(ctx, req); err != nil {
		log.Error().Err(err).Msg("publish failed; sequence number is spent")
		metrics.IncPublish(req.Kind(), "failed")
		c.record(ctx, req, model.PublishStatusFailed, err)
		return model.PublishOutcome{Status: model.PublishStatusFailed, SequenceNumber: n, RequestID: req.ID},
			fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	log.Info().Int("items", len(req.Media)).Msg("published")
	metrics.IncPublish(req.Kind(), "published")
	c.record(ctx, req, model.PublishStatusPublished, nil)
	return model.PublishOutcome{Status: model.PublishStatusPublished, SequenceNumber: n, RequestID: req.ID}, nil
}

func (c *publishCoordinator) buildRequest(auth *model.Authorization, n int64, members []*model.Submission, body string) *model.PublishRequest {
	caption := fmt.Sprintf(c.headerFormat, n)
	if body != "" {
		caption += "\n" + body
	}
	req := &model.PublishRequest{
		ID:             ulid.Make().String(),
		SubmitterID:    members[0].SubmitterID,
		DestinationID:  auth.DestinationID,
		SequenceNumber: n,
	}
	for _, m := range members {
		if !m.Kind.HasMedia() || m.MediaRef == "" {
			continue
		}
		item := model.MediaItem{Kind: m.Kind, Ref: m.MediaRef}
		if len(req.Media) == 0 {
			item.Caption = caption
		}
		req.Media = append(req.Media, item)
	}
	if len(req.Media) == 0 {
		req.Text = caption
	}
	return req
}

func (c *publishCoordinator) record(ctx context.Context, req *model.PublishRequest, status model.PublishStatus, cause error) {
	if c.records == nil {
		return
	}
	if err := c.records.Save(ctx, model.NewPublishRecord(req, status, cause)); err != nil {
		c.log.Warn().Err(err).Str("request_id", req.ID).Msg("failed to write publish log")
	}
}

func (c *publishCoordinator) releaseClaims(ctx context.Context, members []*model.Submission) {
	if c.claims == nil {
		return
	}
	for _, m := range members {
		if m.SourceRef == "" {
			continue
		}
		if err := c.claims.Release(ctx, m.SourceRef); err != nil {
			c.log.Warn().Err(err).Str("source", m.SourceRef).Msg("failed to release delivery claim")
		}
	}
}

func (c *publishCoordinator) notify(ctx context.Context, submitterID int64, text string) {
	if text == "" {
		return
	}
	if err := c.notifier.Notify(context.WithoutCancel(ctx), submitterID, text); err != nil {
		c.log.Warn().Err(err).Int64("submitter_id", submitterID).Msg("failed to notify submitter")
	}
}

func kindOf(members []*model.Submission) string {
	if len(members) > 1 {
		return "album"
	}
	return string(members[0].Kind)
}

// FailureMessage renders a publishing error for the submitter.
func FailureMessage(tr Translator, err error, seq int64) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrDuplicateDelivery):
		return ""
	case errors.Is(err, domain.ErrNotAuthorized):
		return tr.T("error.not_authorized")
	case errors.Is(err, domain.ErrStorageUnavailable):
		return tr.T("error.storage_unavailable")
	case errors.Is(err, domain.ErrTransport):
		return tr.T("error.transport", seq)
	case errors.Is(err, domain.ErrInvalidArgument):
		return tr.T("error.invalid_submission")
	default:
		return tr.T("error.internal")
	}
}
