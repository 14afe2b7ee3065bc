package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tagstash/internal/registry"
)

// classifyMedia maps a message's attachment to a media kind and its
// Telegram file_id. If a message somehow carries several attachment kinds,
// precedence is photo, video, audio, document, voice, video note.
func classifyMedia(msg *tgbotapi.Message) (registry.MediaKind, string, bool) {
	switch {
	case len(msg.Photo) > 0:
		// Telegram sends multiple resolutions; the last is the largest.
		return registry.KindPhoto, msg.Photo[len(msg.Photo)-1].FileID, true
	case msg.Video != nil:
		return registry.KindVideo, msg.Video.FileID, true
	case msg.Audio != nil:
		return registry.KindAudio, msg.Audio.FileID, true
	case msg.Document != nil:
		return registry.KindDocument, msg.Document.FileID, true
	case msg.Voice != nil:
		return registry.KindVoice, msg.Voice.FileID, true
	case msg.VideoNote != nil:
		return registry.KindVideoNote, msg.VideoNote.FileID, true
	}
	return "", "", false
}
