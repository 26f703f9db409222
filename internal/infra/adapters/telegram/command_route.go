package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":  r.handleStartCommand,
		"help":   r.handleHelpCommand,
		"status": r.handleStatusCommand,
		"id":     r.handleIDCommand,
	}
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.Notify(ctx, message.Chat.ID, r.facade.HandleStart(ctx, message.From.ID))
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.Notify(ctx, message.Chat.ID, r.facade.HandleHelp())
}

func (r *RealTelegramBotAdapter) handleStatusCommand(ctx context.Context, message *tgbotapi.Message) error {
	info, err := r.facade.HandleStatus(ctx, message.From.ID)
	if err != nil {
		r.log.Error().Err(err).Int64("submitter_id", message.From.ID).Msg("status lookup failed")
		return r.Notify(ctx, message.Chat.ID, r.translator.T("error.internal"))
	}
	return r.Notify(ctx, message.Chat.ID, info)
}

// handleIDCommand tells a user the id an operator needs to grant them access.
// Admins also see that they are recognised as such.
func (r *RealTelegramBotAdapter) handleIDCommand(ctx context.Context, message *tgbotapi.Message) error {
	text := r.translator.T("id.yours", strconv.FormatInt(message.From.ID, 10))
	if _, isAdmin := r.adminIDsMap[message.From.ID]; isAdmin {
		text += "\n" + r.translator.T("id.admin")
	}
	return r.Notify(ctx, message.Chat.ID, text)
}
