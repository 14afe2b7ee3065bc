package bot_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tagstash/internal/bot"
	"tagstash/internal/observability"
	"tagstash/internal/registry"
	"tagstash/internal/session"
)

const adminID = int64(99)

// fakeAPI records outbound traffic and lets tests fail selected chats.
type fakeAPI struct {
	mu        sync.Mutex
	sent      []tgbotapi.MessageConfig
	inline    []tgbotapi.InlineConfig
	failChats map[int64]bool
	chatNames map[int64]string
	linkErr   error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChats[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if cfg, ok := c.(tgbotapi.InlineConfig); ok {
		f.mu.Lock()
		f.inline = append(f.inline, cfg)
		f.mu.Unlock()
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return "https://api.telegram.org/file/" + fileID, nil
}

func (f *fakeAPI) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.chatNames[config.ChatConfig.ChatID]; ok {
		return tgbotapi.Chat{FirstName: name}, nil
	}
	return tgbotapi.Chat{}, errors.New("chat not found")
}

// texts returns everything sent to the chat, in order.
func (f *fakeAPI) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastText(t *testing.T, chatID int64) string {
	t.Helper()
	texts := f.texts(chatID)
	require.NotEmpty(t, texts, "no message sent to chat %d", chatID)
	return texts[len(texts)-1]
}

func newTestBot(t *testing.T) (*bot.Bot, *fakeAPI, *registry.Registry) {
	t.Helper()
	api := &fakeAPI{
		failChats: make(map[int64]bool),
		chatNames: make(map[int64]string),
	}
	reg := registry.New()
	metrics, err := observability.InitMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	b := bot.New(api, adminID, reg, session.NewStore(), metrics, 2, zap.NewNop())
	return b, api, reg
}

// command builds an update for a slash command, with the entity the
// Telegram client would attach.
func command(userID int64, text string) tgbotapi.Update {
	cmdLen := len(strings.Fields(text)[0])
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Tester"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: cmdLen},
		},
	}}
}

func textMessage(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Tester"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func photoMessage(userID int64, sourceRef string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: userID, FirstName: "Tester"},
		Chat:  &tgbotapi.Chat{ID: userID},
		Photo: []tgbotapi.PhotoSize{{FileID: sourceRef + "-small"}, {FileID: sourceRef}},
	}}
}

func inlineQuery(userID int64, query string) tgbotapi.Update {
	return tgbotapi.Update{InlineQuery: &tgbotapi.InlineQuery{
		ID:    "q1",
		From:  &tgbotapi.User{ID: userID},
		Query: query,
	}}
}
