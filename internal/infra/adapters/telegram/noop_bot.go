package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/domain/ports/adapter"
)

var (
	_ adapter.Publisher = (*NoopBotAdapter)(nil)
	_ adapter.Notifier  = (*NoopBotAdapter)(nil)
)

// NoopBotAdapter logs publish requests and notifications instead of sending them.
// Used for dry runs and local development.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "NoopTelegram").Logger()
	return &NoopBotAdapter{log: &l}
}

func (b *NoopBotAdapter) Publish(ctx context.Context, req *model.PublishRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	refs := make([]string, 0, len(req.Media))
	for _, m := range req.Media {
		refs = append(refs, string(m.Kind)+":"+m.Ref)
	}
	b.log.Info().
		Str("request_id", req.ID).
		Str("destination", req.DestinationID).
		Int64("sequence", req.SequenceNumber).
		Strs("media", refs).
		Str("caption", req.Caption()).
		Msg("publish (dry run)")
	return nil
}

func (b *NoopBotAdapter) Notify(ctx context.Context, submitterID int64, text string) error {
	b.log.Info().Int64("submitter_id", submitterID).Str("text", text).Msg("notify (dry run)")
	return nil
}
