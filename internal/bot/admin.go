package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// isAdmin gates every admin operation. Non-admin callers get no reply at
// all, so probing /broadcast does not reveal whether the command exists.
func (b *Bot) isAdmin(msg *tgbotapi.Message) bool {
	return msg.From.ID == b.adminID
}

func (b *Bot) cmdBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg) {
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg.Chat.ID, "<b>Usage:</b> /broadcast <code>&lt;message&gt;</code>")
		return
	}

	targets := b.reg.AllKnownUserIDs()
	b.reply(msg.Chat.ID, fmt.Sprintf("Starting broadcast to %d users...", len(targets)))

	// The broadcast runs on its own goroutine so slow deliveries never
	// block other inbound updates.
	go b.Broadcast(ctx, msg.Chat.ID, text, targets)
}

// Broadcast delivers the message to every target with bounded concurrency.
// Delivery is best-effort: a failed recipient is counted and skipped, never
// fatal. The tally is reported back to the admin chat when done.
func (b *Bot) Broadcast(ctx context.Context, adminChatID int64, text string, targets []int64) {
	body := fmt.Sprintf("📣 <b>Admin Broadcast:</b>\n\n%s", text)

	var (
		mu     sync.Mutex
		sent   int
		failed int
		wg     sync.WaitGroup
	)
	for _, userID := range targets {
		if err := b.broadcastSem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			defer b.broadcastSem.Release(1)

			out := tgbotapi.NewMessage(userID, body)
			out.ParseMode = tgbotapi.ModeHTML
			_, err := b.api.Send(out)

			mu.Lock()
			if err != nil {
				failed++
			} else {
				sent++
			}
			mu.Unlock()
			if err != nil {
				b.metrics.BroadcastFailed.Inc()
				b.log.Warn("could not send broadcast",
					zap.Int64("user_id", userID), zap.Error(err))
			} else {
				b.metrics.BroadcastSent.Inc()
			}
		}(userID)
	}
	wg.Wait()

	b.log.Info("broadcast finished", zap.Int("sent", sent), zap.Int("failed", failed))
	b.reply(adminChatID, fmt.Sprintf("✅ Broadcast finished.\nSent: %d\nFailed: %d", sent, failed))
}

func (b *Bot) cmdBan(msg *tgbotapi.Message) {
	if !b.isAdmin(msg) {
		return
	}

	userID, ok := b.parseUserIDArg(msg, "/ban")
	if !ok {
		return
	}
	b.reg.Ban(userID)
	b.log.Info("user banned", zap.Int64("user_id", userID))
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ User %d has been banned from uploading.", userID))
}

func (b *Bot) cmdUnban(msg *tgbotapi.Message) {
	if !b.isAdmin(msg) {
		return
	}

	userID, ok := b.parseUserIDArg(msg, "/unban")
	if !ok {
		return
	}
	b.reg.Unban(userID)
	b.log.Info("user unbanned", zap.Int64("user_id", userID))
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ User %d has been unbanned.", userID))
}

// parseUserIDArg validates the single user-ID argument of /ban and /unban,
// replying with usage or a validation error itself when invalid.
func (b *Bot) parseUserIDArg(msg *tgbotapi.Message, command string) (int64, bool) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, fmt.Sprintf("<b>Usage:</b> %s <code>&lt;user_id&gt;</code>", command))
		return 0, false
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Invalid User ID.")
		return 0, false
	}
	return userID, true
}

func (b *Bot) cmdListUsers(msg *tgbotapi.Message) {
	if !b.isAdmin(msg) {
		return
	}

	uploaders := b.reg.Uploaders()
	if len(uploaders) == 0 {
		b.reply(msg.Chat.ID, "No users have uploaded files yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Active Users & Uploads:</b>\n\n")
	for _, u := range uploaders {
		fmt.Fprintf(&sb, "<code>%d</code>: %d uploads\n", u.UserID, u.Uploads)
	}
	b.reply(msg.Chat.ID, sb.String())
}
