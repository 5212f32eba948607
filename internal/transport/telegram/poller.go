package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
)

const pollRetryDelay = 3 * time.Second

// HandlerFunc receives normalized updates.
type HandlerFunc func(ctx context.Context, update transport.Update)

// Poller long-polls getUpdates and hands each update to a handler.
type Poller struct {
	bot     *tgbotapi.BotAPI
	timeout int
	logger  *zap.Logger
}

// NewPoller builds a poller; timeoutSeconds is the server side long-poll timeout.
func NewPoller(client *Client, timeoutSeconds int, logger *zap.Logger) *Poller {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &Poller{bot: client.API(), timeout: timeoutSeconds, logger: logger}
}

// Run polls until ctx is canceled. The handler must not block for long.
func (p *Poller) Run(ctx context.Context, handle HandlerFunc) error {
	p.logger.Info("telegram poller started", zap.Int("timeout_seconds", p.timeout))
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("telegram poller stopped")
			return nil
		}

		updates, err := p.fetch(offset)
		if err != nil {
			p.logger.Warn("get updates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.ID >= offset {
				offset = update.ID + 1
			}
			if update.Message == nil && update.Callback == nil {
				continue
			}
			handle(ctx, update)
		}
	}
}

func (p *Poller) fetch(offset int) ([]transport.Update, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", p.timeout)
	if err := params.AddInterface("allowed_updates", []string{"message", "callback_query"}); err != nil {
		return nil, err
	}

	resp, err := p.bot.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, err
	}
	return decodeUpdates(resp.Result)
}

// threadFields carries the fields telegram-bot-api v5 does not decode.
type threadFields struct {
	Message *struct {
		MessageThreadID int64 `json:"message_thread_id"`
		IsTopicMessage  bool  `json:"is_topic_message"`
	} `json:"message"`
}

func decodeUpdates(raw json.RawMessage) ([]transport.Update, error) {
	var updates []tgbotapi.Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	var threads []threadFields
	if err := json.Unmarshal(raw, &threads); err != nil {
		return nil, fmt.Errorf("decode thread ids: %w", err)
	}

	out := make([]transport.Update, 0, len(updates))
	for i, u := range updates {
		var threadID int64
		if i < len(threads) && threads[i].Message != nil && threads[i].Message.IsTopicMessage {
			threadID = threads[i].Message.MessageThreadID
		}
		out = append(out, convertUpdate(u, threadID))
	}
	return out, nil
}

func convertUpdate(u tgbotapi.Update, threadID int64) transport.Update {
	update := transport.Update{ID: u.UpdateID}
	if u.Message != nil {
		msg := convertMessage(u.Message)
		msg.ThreadID = threadID
		update.Message = &msg
	}
	if u.CallbackQuery != nil {
		cb := &transport.Callback{
			ID:   u.CallbackQuery.ID,
			From: convertSender(u.CallbackQuery.From),
			Data: u.CallbackQuery.Data,
		}
		if m := u.CallbackQuery.Message; m != nil && m.Chat != nil {
			cb.ChatID = m.Chat.ID
			cb.MessageID = m.MessageID
		}
		update.Callback = cb
	}
	return update
}

func convertMessage(m *tgbotapi.Message) transport.Message {
	msg := transport.Message{
		ID:      m.MessageID,
		From:    convertSender(m.From),
		Text:    m.Text,
		Caption: m.Caption,
		Media:   extractMedia(m),
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
		msg.ChatType = transport.ChatType(m.Chat.Type)
	}
	return msg
}

func convertSender(u *tgbotapi.User) transport.Sender {
	if u == nil {
		return transport.Sender{}
	}
	return transport.Sender{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}

type mediaExtractor struct {
	kind    domain.MediaKind
	fileRef func(*tgbotapi.Message) string
}

// mediaExtractors is checked in order; the first non-empty reference wins.
var mediaExtractors = []mediaExtractor{
	{domain.MediaPhoto, func(m *tgbotapi.Message) string {
		if len(m.Photo) == 0 {
			return ""
		}
		return m.Photo[len(m.Photo)-1].FileID
	}},
	{domain.MediaVideo, func(m *tgbotapi.Message) string {
		if m.Video == nil {
			return ""
		}
		return m.Video.FileID
	}},
	{domain.MediaAudio, func(m *tgbotapi.Message) string {
		if m.Audio == nil {
			return ""
		}
		return m.Audio.FileID
	}},
	{domain.MediaVoice, func(m *tgbotapi.Message) string {
		if m.Voice == nil {
			return ""
		}
		return m.Voice.FileID
	}},
	{domain.MediaVideoNote, func(m *tgbotapi.Message) string {
		if m.VideoNote == nil {
			return ""
		}
		return m.VideoNote.FileID
	}},
	{domain.MediaDocument, func(m *tgbotapi.Message) string {
		if m.Document == nil {
			return ""
		}
		return m.Document.FileID
	}},
}

func extractMedia(m *tgbotapi.Message) *domain.Media {
	for _, ex := range mediaExtractors {
		if ref := ex.fileRef(m); ref != "" {
			return &domain.Media{Kind: ex.kind, FileRef: ref}
		}
	}
	return nil
}
