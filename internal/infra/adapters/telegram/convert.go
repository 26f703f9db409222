package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
)

// Telegram accepts 2..10 items per sendMediaGroup call.
const maxAlbumItems = 10

// toSubmission converts an inbound private message into a submission.
// Content other than text, photo or video becomes MediaKindUnsupported.
func toSubmission(msg *tgbotapi.Message) (*model.Submission, error) {
	if msg == nil || msg.From == nil {
		return nil, domain.ErrInvalidArgument
	}

	var (
		kind = model.MediaKindUnsupported
		ref  string
		text = msg.Caption
	)
	switch {
	case len(msg.Photo) > 0:
		// sizes come smallest first
		kind, ref = model.MediaKindPhoto, msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		kind, ref = model.MediaKindVideo, msg.Video.FileID
	case msg.Text != "":
		kind, text = model.MediaKindText, msg.Text
	}

	sub, err := model.NewSubmission(msg.From.ID, kind, ref, text, msg.MediaGroupID)
	if err != nil {
		return nil, err
	}
	if msg.Date > 0 {
		sub.ArrivalTime = time.Unix(int64(msg.Date), 0)
	}
	if msg.Chat != nil {
		sub.SourceRef = fmt.Sprintf("%d:%d", msg.Chat.ID, msg.MessageID)
	}
	return sub, nil
}

// chatTarget addresses a channel either by numeric id or by @username.
type chatTarget struct {
	ID       int64
	Username string
}

func parseTarget(destination string) (chatTarget, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return chatTarget{}, domain.ErrInvalidArgument
	}
	if id, err := strconv.ParseInt(destination, 10, 64); err == nil {
		return chatTarget{ID: id}, nil
	}
	if !strings.HasPrefix(destination, "@") {
		destination = "@" + destination
	}
	return chatTarget{Username: destination}, nil
}

func (t chatTarget) baseChat() tgbotapi.BaseChat {
	return tgbotapi.BaseChat{ChatID: t.ID, ChannelUsername: t.Username}
}

// outbound is one Bot API call: either a single Chattable or a media group.
type outbound struct {
	single tgbotapi.Chattable
	group  *tgbotapi.MediaGroupConfig
}

// buildOutbound turns a publish request into the Bot API calls that deliver it.
// Albums larger than the per-call limit are split; only the very first item carries the caption.
func buildOutbound(req *model.PublishRequest, target chatTarget, parseMode string) ([]outbound, error) {
	if req == nil {
		return nil, domain.ErrInvalidArgument
	}
	if len(req.Media) == 0 {
		msg := tgbotapi.MessageConfig{BaseChat: target.baseChat(), Text: req.Text, ParseMode: parseMode}
		return []outbound{{single: msg}}, nil
	}

	var calls []outbound
	for start := 0; start < len(req.Media); start += maxAlbumItems {
		end := start + maxAlbumItems
		if end > len(req.Media) {
			end = len(req.Media)
		}
		chunk := req.Media[start:end]
		if len(chunk) == 1 {
			single, err := singleMedia(chunk[0], target, parseMode)
			if err != nil {
				return nil, err
			}
			calls = append(calls, outbound{single: single})
			continue
		}
		group := &tgbotapi.MediaGroupConfig{ChatID: target.ID, ChannelUsername: target.Username}
		for _, item := range chunk {
			media, err := inputMedia(item, parseMode)
			if err != nil {
				return nil, err
			}
			group.Media = append(group.Media, media)
		}
		calls = append(calls, outbound{group: group})
	}
	return calls, nil
}

func singleMedia(item model.MediaItem, target chatTarget, parseMode string) (tgbotapi.Chattable, error) {
	file := tgbotapi.BaseFile{BaseChat: target.baseChat(), File: tgbotapi.FileID(item.Ref)}
	switch item.Kind {
	case model.MediaKindPhoto:
		return tgbotapi.PhotoConfig{BaseFile: file, Caption: item.Caption, ParseMode: captionMode(item, parseMode)}, nil
	case model.MediaKindVideo:
		return tgbotapi.VideoConfig{BaseFile: file, Caption: item.Caption, ParseMode: captionMode(item, parseMode)}, nil
	default:
		return nil, fmt.Errorf("%w: cannot send media kind %q", domain.ErrInvalidArgument, item.Kind)
	}
}

func inputMedia(item model.MediaItem, parseMode string) (interface{}, error) {
	switch item.Kind {
	case model.MediaKindPhoto:
		m := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(item.Ref))
		m.Caption, m.ParseMode = item.Caption, captionMode(item, parseMode)
		return m, nil
	case model.MediaKindVideo:
		m := tgbotapi.NewInputMediaVideo(tgbotapi.FileID(item.Ref))
		m.Caption, m.ParseMode = item.Caption, captionMode(item, parseMode)
		return m, nil
	default:
		return nil, fmt.Errorf("%w: cannot send media kind %q", domain.ErrInvalidArgument, item.Kind)
	}
}

// TextEscaper returns the escaping submitter text needs under parseMode,
// or nil when text is sent without markup.
func TextEscaper(parseMode string) func(string) string {
	switch parseMode {
	case tgbotapi.ModeHTML, tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return func(text string) string { return tgbotapi.EscapeText(parseMode, text) }
	}
	return nil
}

func captionMode(item model.MediaItem, parseMode string) string {
	if item.Caption == "" {
		return ""
	}
	return parseMode
}

// shardFor keeps every update of one chat on the same worker so that the
// parts of an album reach the coordinator in arrival order.
func shardFor(update tgbotapi.Update, shards int) int {
	var id int64
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		id = update.Message.Chat.ID
	case update.EditedMessage != nil && update.EditedMessage.Chat != nil:
		id = update.EditedMessage.Chat.ID
	}
	if id < 0 {
		id = -id
	}
	return int(id % int64(shards))
}
