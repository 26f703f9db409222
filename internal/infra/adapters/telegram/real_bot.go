package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/application"
	"telegram-object-publisher/internal/config"
	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/domain/ports/adapter"
	"telegram-object-publisher/internal/infra/metrics"
	red "telegram-object-publisher/internal/infra/redis"
)

var (
	_ adapter.Publisher = (*RealTelegramBotAdapter)(nil)
	_ adapter.Notifier  = (*RealTelegramBotAdapter)(nil)
)

const maxFloodRetries = 3

// RealTelegramBotAdapter polls updates, hands submissions to the facade and
// performs the outbound channel posts.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	translator  application.Translator
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	adminIDsMap   map[int64]struct{}
	updateWorkers int

	mu            sync.Mutex
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, translator application.Translator, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if translator == nil {
		return nil, errors.New("translator is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	l := logger.With().Str("component", "TelegramBot").Str("bot", bot.Self.UserName).Logger()
	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		translator:    translator,
		rateLimiter:   rateLimiter,
		log:           &l,
		adminIDsMap:   adminMap,
		updateWorkers: workers,
	}, nil
}

// SetFacade attaches the facade. The coordinator behind it needs this adapter
// as its publisher, so the two are wired in two steps.
func (r *RealTelegramBotAdapter) SetFacade(f *application.BotFacade) { r.facade = f }

// StartPolling runs until ctx is canceled or StopPolling is called.
// Updates are sharded by chat so each chat is handled by exactly one worker.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("bot facade is nil")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancelPolling = cancel
	r.mu.Unlock()

	// updates already queued are still handled after a stop
	hctx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	shards := make([]chan tgbotapi.Update, r.updateWorkers)
	for i := range shards {
		shards[i] = make(chan tgbotapi.Update, 32)
		wg.Add(1)
		go func(id int, in <-chan tgbotapi.Update) {
			defer wg.Done()
			for up := range in {
				if err := r.handleUpdate(hctx, up); err != nil {
					r.log.Error().Err(err).Int("worker", id).Int("update_id", up.UpdateID).Msg("error handling update")
				}
			}
		}(i, shards[i])
	}

	defer func() {
		r.bot.StopReceivingUpdates()
		for _, ch := range shards {
			close(ch)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case shards[shardFor(up, len(shards))] <- up:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		metrics.IncTelegramUpdate("other")
		return nil
	}
	// submissions are only taken from private chats with the bot
	if !msg.Chat.IsPrivate() {
		metrics.IncTelegramUpdate("other")
		return nil
	}

	if msg.IsCommand() {
		metrics.IncTelegramUpdate("command")
		if h, ok := r.commandRoutes()[msg.Command()]; ok {
			return h(ctx, msg)
		}
		return r.Notify(ctx, msg.Chat.ID, r.facade.HandleHelp())
	}

	metrics.IncTelegramUpdate("submission")
	if ok, first := r.allow(ctx, msg); !ok {
		metrics.IncRateLimitTriggered()
		if !first {
			return nil
		}
		return r.Notify(ctx, msg.Chat.ID, r.translator.T("error.rate_limited"))
	}

	sub, err := toSubmission(msg)
	if err != nil {
		return fmt.Errorf("convert message %d: %w", msg.MessageID, err)
	}
	if reply := r.facade.HandleSubmission(ctx, sub); reply != "" {
		return r.Notify(ctx, msg.Chat.ID, reply)
	}
	return nil
}

// allow applies the per-submitter rate limit; limiter failures let the message through.
// An album is charged once and all its parts share the verdict; first is false
// for the parts after the one that was charged.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, msg *tgbotapi.Message) (ok, first bool) {
	if r.rateLimiter == nil || r.cfg.RateLimit <= 0 {
		return true, true
	}
	key := red.SubmitterKey(msg.From.ID)
	var err error
	if msg.MediaGroupID != "" {
		ok, first, err = r.rateLimiter.AllowGroup(ctx, key, msg.MediaGroupID, r.cfg.RateLimit, time.Minute)
	} else {
		ok, err = r.rateLimiter.Allow(ctx, key, r.cfg.RateLimit, time.Minute)
		first = true
	}
	if err != nil {
		r.log.Warn().Err(err).Int64("submitter_id", msg.From.ID).Msg("rate limiter unavailable")
		return true, true
	}
	return ok, first
}

// Publish sends one request to its destination channel. Only flood-control
// rejections are retried: Telegram refused those, so a retry cannot double-post.
func (r *RealTelegramBotAdapter) Publish(ctx context.Context, req *model.PublishRequest) error {
	target, err := parseTarget(req.DestinationID)
	if err != nil {
		return err
	}
	calls, err := buildOutbound(req, target, r.cfg.ParseMode)
	if err != nil {
		return err
	}
	for i, call := range calls {
		if err := r.withFloodRetry(ctx, call.send(r.bot)); err != nil {
			return fmt.Errorf("publish %s part %d/%d: %w", req.ID, i+1, len(calls), err)
		}
	}
	return nil
}

func (o outbound) send(bot *tgbotapi.BotAPI) func() error {
	return func() error {
		if o.group != nil {
			_, err := bot.SendMediaGroup(*o.group)
			return err
		}
		_, err := bot.Send(o.single)
		return err
	}
}

func (r *RealTelegramBotAdapter) withFloodRetry(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		err := call()
		var tgErr *tgbotapi.Error
		if err == nil || !errors.As(err, &tgErr) || tgErr.RetryAfter <= 0 || attempt >= maxFloodRetries {
			return err
		}
		wait := time.Duration(tgErr.RetryAfter) * time.Second
		r.log.Warn().Dur("retry_after", wait).Int("attempt", attempt+1).Msg("flood control, waiting")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Notify sends a plain message to a submitter's private chat.
func (r *RealTelegramBotAdapter) Notify(ctx context.Context, submitterID int64, text string) error {
	if text == "" {
		return nil
	}
	msg := tgbotapi.NewMessage(submitterID, text)
	return r.withFloodRetry(ctx, func() error {
		_, err := r.bot.Send(msg)
		return err
	})
}
