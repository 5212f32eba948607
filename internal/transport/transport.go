// Package transport defines the messaging collaborator the bot depends on: sending
// text and media, managing per-ticket discussion threads, and the inbound message model.
package transport

import (
	"context"
	"errors"
	"strings"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// ErrThreadNotFound is returned by DeleteThread when the thread no longer exists.
var ErrThreadNotFound = errors.New("thread not found")

// DeliveryStatus is the outcome of a Send call that reached the transport.
type DeliveryStatus int

const (
	// Delivered means the transport accepted the message.
	Delivered DeliveryStatus = iota
	// Unreachable means the recipient refuses messages from the bot (blocked it).
	Unreachable
)

func (s DeliveryStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Unreachable:
		return "unreachable"
	}
	return "unknown"
}

// Delivery describes an accepted or refused message.
type Delivery struct {
	Status    DeliveryStatus
	MessageID int
}

// Recipient addresses a chat, optionally a thread inside a group chat.
type Recipient struct {
	ChatID   int64
	ThreadID int64
}

// InThread returns a recipient inside threadID of the same chat.
func (r Recipient) InThread(threadID int64) Recipient {
	r.ThreadID = threadID
	return r
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// File is an in-memory document upload.
type File struct {
	Name string
	Data []byte
}

// Content is an outbound message. Exactly one of Text, Media or File is the payload;
// Caption applies to Media and File.
type Content struct {
	Text     string
	Media    *domain.Media
	File     *File
	Caption  string
	Keyboard Keyboard
}

// Kind returns the content kind used for dispatch and metrics.
func (c Content) Kind() domain.MediaKind {
	switch {
	case c.Media != nil:
		return c.Media.Kind
	case c.File != nil:
		return domain.MediaDocument
	}
	return domain.MediaText
}

// Text builds a plain text content.
func Text(text string) Content {
	return Content{Text: text}
}

// ThreadHandle identifies a created discussion thread.
type ThreadHandle struct {
	ChatID   int64
	ThreadID int64
}

// Transport is the messaging collaborator.
//
// Send returns an error only for transport failures. A recipient that blocked the bot
// is reported as a Delivery with status Unreachable and a nil error.
type Transport interface {
	Send(ctx context.Context, to Recipient, content Content) (Delivery, error)
	CreateThread(ctx context.Context, chatID int64, title string) (ThreadHandle, error)
	DeleteThread(ctx context.Context, handle ThreadHandle) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// ChatType classifies the chat an inbound message arrived in.
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}

// FullName joins first and last name.
func (s Sender) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Handle returns the @username or a placeholder when the user has none.
func (s Sender) Handle() string {
	if s.Username == "" {
		return "no_username"
	}
	return s.Username
}

// Message is an inbound chat message normalized from the transport.
type Message struct {
	ID       int
	ChatID   int64
	ChatType ChatType
	ThreadID int64
	From     Sender
	Text     string
	Caption  string
	Media    *domain.Media
}

// Body returns the text or, for media messages, the caption.
func (m Message) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// IsCommand reports whether the message text starts with the command prefix.
func (m Message) IsCommand() bool {
	return strings.HasPrefix(m.Text, "/")
}

// Command splits a command message into its name (without prefix and @bot suffix)
// and the argument text.
func (m Message) Command() (name, args string) {
	if !m.IsCommand() {
		return "", ""
	}
	fields := strings.Fields(m.Text)
	name = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return name, strings.Join(fields[1:], " ")
}

// InThread reports whether the message was posted inside a group thread.
func (m Message) InThread() bool {
	return m.ChatType == ChatSupergroup && m.ThreadID != 0
}

// Callback is an inline keyboard press.
type Callback struct {
	ID        string
	From      Sender
	ChatID    int64
	MessageID int
	Data      string
}

// Update is one inbound event: a message or a callback.
type Update struct {
	ID       int
	Message  *Message
	Callback *Callback
}
