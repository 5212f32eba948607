package domain

// MediaKind is the closed set of content kinds the relay understands.
type MediaKind string

const (
	MediaText      MediaKind = "text"
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaAudio     MediaKind = "audio"
	MediaVoice     MediaKind = "voice"
	MediaVideoNote MediaKind = "video_note"
	MediaDocument  MediaKind = "document"
)

// MediaKinds lists every attachment kind, text excluded.
var MediaKinds = []MediaKind{MediaPhoto, MediaVideo, MediaAudio, MediaVoice, MediaVideoNote, MediaDocument}

// AllowsCaption reports whether the kind can carry a caption. Video notes never do.
func (k MediaKind) AllowsCaption() bool {
	return k != MediaVideoNote
}

// IsAttachment reports whether the kind refers to a file rather than plain text.
func (k MediaKind) IsAttachment() bool {
	for _, kind := range MediaKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Media references an attachment already stored by the transport.
type Media struct {
	Kind    MediaKind `json:"kind"`
	FileRef string    `json:"file_ref"`
}

// MediaPlaceholder is stored as text when a message carries only an attachment.
const MediaPlaceholder = "[media]"
