package relay

import (
	"html"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
)

// forwardFunc renders an inbound message as outbound content under a sender label.
type forwardFunc func(label string, msg transport.Message) transport.Content

var forwarders = map[domain.MediaKind]forwardFunc{
	domain.MediaText:      forwardText,
	domain.MediaPhoto:     forwardCaptioned,
	domain.MediaVideo:     forwardCaptioned,
	domain.MediaAudio:     forwardCaptioned,
	domain.MediaVoice:     forwardCaptioned,
	domain.MediaDocument:  forwardCaptioned,
	domain.MediaVideoNote: forwardBare,
}

func forwardText(label string, msg transport.Message) transport.Content {
	return transport.Text(label + html.EscapeString(msg.Body()))
}

func forwardCaptioned(label string, msg transport.Message) transport.Content {
	media := *msg.Media
	return transport.Content{Media: &media, Caption: label + html.EscapeString(msg.Caption)}
}

func forwardBare(_ string, msg transport.Message) transport.Content {
	media := *msg.Media
	return transport.Content{Media: &media}
}

// kindOf classifies an inbound message. ok is false when there is nothing to forward.
func kindOf(msg transport.Message) (domain.MediaKind, bool) {
	if msg.Media != nil && msg.Media.FileRef != "" {
		if _, known := forwarders[msg.Media.Kind]; known {
			return msg.Media.Kind, true
		}
	}
	// unknown attachments fall back to whatever text they carry
	if msg.Body() != "" {
		return domain.MediaText, true
	}
	return "", false
}

// render builds the outbound content and the log entry fields for msg.
func render(label string, msg transport.Message) (transport.Content, domain.MediaKind, bool) {
	kind, ok := kindOf(msg)
	if !ok {
		return transport.Content{}, "", false
	}
	return forwarders[kind](label, msg), kind, true
}

func logText(msg transport.Message, kind domain.MediaKind) string {
	if body := msg.Body(); body != "" {
		return body
	}
	if kind.IsAttachment() {
		return domain.MediaPlaceholder
	}
	return ""
}
