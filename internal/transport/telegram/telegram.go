// Package telegram implements transport.Transport on the Telegram Bot API.
//
// Forum topics are reached through raw MakeRequest calls because the typed configs of
// telegram-bot-api v5 do not carry message_thread_id.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
)

const (
	parseModeHTML     = "HTML"
	maxTopicNameRunes = 128
)

type mediaMethod struct {
	endpoint string
	field    string
}

var mediaMethods = map[domain.MediaKind]mediaMethod{
	domain.MediaPhoto:     {endpoint: "sendPhoto", field: "photo"},
	domain.MediaVideo:     {endpoint: "sendVideo", field: "video"},
	domain.MediaAudio:     {endpoint: "sendAudio", field: "audio"},
	domain.MediaVoice:     {endpoint: "sendVoice", field: "voice"},
	domain.MediaVideoNote: {endpoint: "sendVideoNote", field: "video_note"},
	domain.MediaDocument:  {endpoint: "sendDocument", field: "document"},
}

// Client is a Telegram backed transport.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// New authorizes the bot token and returns the client.
func New(token string, debug bool, logger *zap.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	bot.Debug = debug
	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName), zap.Int64("bot_id", bot.Self.ID))
	return &Client{bot: bot, logger: logger}, nil
}

// BotID returns the bot's own user id.
func (c *Client) BotID() int64 {
	return c.bot.Self.ID
}

// API exposes the underlying bot for the poller.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.bot
}

// Send implements transport.Transport.
func (c *Client) Send(ctx context.Context, to transport.Recipient, content transport.Content) (transport.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return transport.Delivery{}, err
	}

	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", to.ChatID)
	params.AddNonZero64("message_thread_id", to.ThreadID)
	if len(content.Keyboard) > 0 {
		if err := params.AddInterface("reply_markup", inlineKeyboard(content.Keyboard)); err != nil {
			return transport.Delivery{}, err
		}
	}

	var (
		resp *tgbotapi.APIResponse
		err  error
	)
	switch {
	case content.File != nil:
		params.AddNonEmpty("caption", content.Caption)
		params.AddNonEmpty("parse_mode", parseModeIf(content.Caption))
		resp, err = c.bot.UploadFiles("sendDocument", params, []tgbotapi.RequestFile{{
			Name: "document",
			Data: tgbotapi.FileBytes{Name: content.File.Name, Bytes: content.File.Data},
		}})
	case content.Media != nil:
		method, ok := mediaMethods[content.Media.Kind]
		if !ok {
			return transport.Delivery{}, fmt.Errorf("unsupported media kind %q", content.Media.Kind)
		}
		params[method.field] = content.Media.FileRef
		if content.Media.Kind.AllowsCaption() {
			params.AddNonEmpty("caption", content.Caption)
			params.AddNonEmpty("parse_mode", parseModeIf(content.Caption))
		}
		resp, err = c.bot.MakeRequest(method.endpoint, params)
	default:
		params["text"] = content.Text
		params["parse_mode"] = parseModeHTML
		resp, err = c.bot.MakeRequest("sendMessage", params)
	}

	if err != nil {
		if isBlocked(err) {
			return transport.Delivery{Status: transport.Unreachable}, nil
		}
		return transport.Delivery{}, err
	}

	var sent struct {
		MessageID int `json:"message_id"`
	}
	if resp != nil && len(resp.Result) > 0 {
		_ = json.Unmarshal(resp.Result, &sent)
	}
	return transport.Delivery{Status: transport.Delivered, MessageID: sent.MessageID}, nil
}

// CreateThread opens a forum topic in the support group.
func (c *Client) CreateThread(ctx context.Context, chatID int64, title string) (transport.ThreadHandle, error) {
	if err := ctx.Err(); err != nil {
		return transport.ThreadHandle{}, err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params["name"] = truncateRunes(title, maxTopicNameRunes)

	resp, err := c.bot.MakeRequest("createForumTopic", params)
	if err != nil {
		return transport.ThreadHandle{}, err
	}
	var topic struct {
		MessageThreadID int64 `json:"message_thread_id"`
	}
	if err := json.Unmarshal(resp.Result, &topic); err != nil {
		return transport.ThreadHandle{}, fmt.Errorf("decode forum topic: %w", err)
	}
	if topic.MessageThreadID == 0 {
		return transport.ThreadHandle{}, errors.New("forum topic without thread id")
	}
	return transport.ThreadHandle{ChatID: chatID, ThreadID: topic.MessageThreadID}, nil
}

// DeleteThread removes a forum topic and its messages.
func (c *Client) DeleteThread(ctx context.Context, handle transport.ThreadHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", handle.ChatID)
	params.AddNonZero64("message_thread_id", handle.ThreadID)

	if _, err := c.bot.MakeRequest("deleteForumTopic", params); err != nil {
		if isMissingTopic(err) {
			return fmt.Errorf("%w: %v", transport.ErrThreadNotFound, err)
		}
		return err
	}
	return nil
}

// AnswerCallback acknowledges an inline keyboard press.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func inlineKeyboard(kb transport.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func parseModeIf(caption string) string {
	if caption == "" {
		return ""
	}
	return parseModeHTML
}

func isBlocked(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden
}

func isMissingTopic(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "topic_id_invalid") || strings.Contains(msg, "not found")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
