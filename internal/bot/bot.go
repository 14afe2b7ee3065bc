// Package bot is the Telegram-facing layer: it classifies inbound updates
// and dispatches them to the upload workflow, the catalog queries or the
// admin operations, then renders results as chat replies. Everything it
// does to shared state goes through the registry and session packages.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"tagstash/internal/observability"
	"tagstash/internal/registry"
	"tagstash/internal/session"
	"tagstash/internal/upload"
)

// API is the subset of the Telegram client the bot uses. *tgbotapi.BotAPI
// satisfies it; tests substitute a fake.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
}

type Bot struct {
	api      API
	adminID  int64
	reg      *registry.Registry
	sessions *session.Store
	workflow *upload.Workflow
	metrics  *observability.Metrics
	log      *zap.Logger
	tracer   trace.Tracer

	broadcastSem *semaphore.Weighted
}

func New(api API, adminID int64, reg *registry.Registry, sessions *session.Store, metrics *observability.Metrics, broadcastConcurrency int64, log *zap.Logger) *Bot {
	b := &Bot{
		api:          api,
		adminID:      adminID,
		reg:          reg,
		sessions:     sessions,
		metrics:      metrics,
		log:          log,
		tracer:       otel.Tracer("tagstash/bot"),
		broadcastSem: semaphore.NewWeighted(broadcastConcurrency),
	}
	b.workflow = upload.NewWorkflow(sessions, reg, b, log)
	return b
}

// ResolveLink resolves a Telegram file_id to a direct download URL. The
// underlying HTTP client carries the request timeout, so this cannot block
// indefinitely.
func (b *Bot) ResolveLink(_ context.Context, sourceRef string) (string, error) {
	return b.api.GetFileDirectURL(sourceRef)
}

// Run consumes updates until the context is cancelled. Each update is
// handled on its own goroutine; all shared state behind the handlers is
// safe for that.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate classifies and dispatches a single inbound update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.InlineQuery != nil:
		ctx, span := b.tracer.Start(ctx, "inline_query",
			trace.WithAttributes(attribute.Int64("user_id", update.InlineQuery.From.ID)))
		defer span.End()
		b.handleInline(ctx, update.InlineQuery)

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil {
			return
		}
		ctx, span := b.tracer.Start(ctx, "message",
			trace.WithAttributes(attribute.Int64("user_id", msg.From.ID)))
		defer span.End()

		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		if kind, sourceRef, ok := classifyMedia(msg); ok {
			b.handleMedia(msg, kind, sourceRef)
			return
		}
		if msg.Text != "" {
			b.handleText(ctx, msg)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.cmdHelp(msg)
	case "upload":
		b.cmdUpload(msg)
	case "myfiles":
		b.cmdMyFiles(msg)
	case "publicfiles":
		b.cmdPublicFiles(msg)
	case "info":
		b.cmdInfo(msg)
	case "favorites":
		b.cmdFavorites(msg)
	case "favorite":
		b.cmdFavorite(msg)
	case "topusers":
		b.cmdTopUsers(msg)
	case "broadcast":
		b.cmdBroadcast(ctx, msg)
	case "ban":
		b.cmdBan(msg)
	case "unban":
		b.cmdUnban(msg)
	case "listusers":
		b.cmdListUsers(msg)
	default:
		// Unknown commands are ignored, matching the transport's behavior
		// of only routing registered commands.
		b.log.Debug("unknown command", zap.String("command", msg.Command()))
	}
}

// reply sends an HTML-formatted message, optionally with an inline keyboard.
func (b *Bot) reply(chatID int64, text string, keyboard ...tgbotapi.InlineKeyboardMarkup) {
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeHTML
	if len(keyboard) > 0 {
		out.ReplyMarkup = keyboard[0]
	}
	if _, err := b.api.Send(out); err != nil {
		b.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func downloadButton(url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("⬇️ Download", url),
		),
	)
}
