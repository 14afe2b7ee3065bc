package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tagstash/internal/registry"
	"tagstash/internal/upload"
)

const publicFilesPageSize = 10

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	text := fmt.Sprintf(
		"👋 Hello, <b>%s</b>!\n\n"+
			"Here’s a quick guide to use this bot:\n\n"+
			"<b>User Commands:</b>\n"+
			"📤 /upload - Send media to the bot.\n"+
			"📁 /myfiles - View your uploaded files.\n"+
			"🌐 /publicfiles - Browse all public files.\n"+
			"⭐ /favorites - See your favorite files.\n"+
			"➕ /favorite <code>&lt;file_id&gt;</code> - Add a file to your favorites.\n"+
			"🏆 /topusers - See the top contributors.\n"+
			"📖 /help - Show this help message again.\n\n"+
			"<b>How it works:</b>\n"+
			"1. Use /upload to start the process.\n"+
			"2. Send your media file.\n"+
			"3. Add comma-separated tags (e.g., <code>nature, sky, blue</code>).\n"+
			"4. Your file will become public and searchable!\n\n"+
			"<b>Inline Search:</b>\n"+
			"You can search for files in any chat by typing @YourBotUsername followed by a tag.",
		html.EscapeString(msg.From.FirstName),
	)
	b.reply(msg.Chat.ID, text)
}

func (b *Bot) cmdHelp(msg *tgbotapi.Message) {
	text := "<b>User Commands:</b>\n" +
		"  /upload - Start the file upload process.\n" +
		"📁 /myfiles - View your personal uploads.\n" +
		"🌐 /publicfiles - Browse all public files.\n" +
		"📝 /info <code>&lt;file_id&gt;</code> - Get info and a download link for a file.\n" +
		"⭐ /favorites - List your favorite files.\n" +
		"➕ /favorite <code>&lt;file_id&gt;</code> - Add a file to your favorites.\n" +
		"🏆 /topusers - Show top 10 contributors.\n\n" +
		"<b>Admin Commands:</b>\n" +
		"📣 /broadcast <code>&lt;message&gt;</code> - Send a message to all users.\n" +
		"❌ /ban <code>&lt;user_id&gt;</code> - Ban a user from uploading.\n" +
		"✅ /unban <code>&lt;user_id&gt;</code> - Unban a user.\n" +
		"👥 /listusers - List all users who have uploaded files.\n"
	b.reply(msg.Chat.ID, text)
}

func (b *Bot) cmdUpload(msg *tgbotapi.Message) {
	switch b.workflow.Start(msg.From.ID) {
	case upload.StartRejectedBanned:
		b.metrics.UploadsRejected.WithLabelValues("banned").Inc()
		b.reply(msg.Chat.ID, "❌ You are banned from uploading files.")
	case upload.StartPrompted:
		b.reply(msg.Chat.ID, "📤 Please send your media file now (photo, video, audio, document, etc.).")
	}
}

// handleMedia feeds a media message into the upload workflow.
func (b *Bot) handleMedia(msg *tgbotapi.Message, kind registry.MediaKind, sourceRef string) {
	switch b.workflow.Media(msg.From.ID, kind, sourceRef) {
	case upload.MediaIgnoredBanned:
		// Banned users get no reply at all.
	case upload.MediaNotExpected:
		b.reply(msg.Chat.ID, "Please use the /upload command before sending a file.")
	case upload.MediaDuplicate:
		b.metrics.UploadsRejected.WithLabelValues("duplicate").Inc()
		b.reply(msg.Chat.ID, "⚠️ This exact file has already been uploaded by someone and is public.")
	case upload.MediaAccepted:
		b.reply(msg.Chat.ID, "✅ Media received! Now, please provide tags for this file, separated by commas (e.g., <code>nature, sky, blue</code>).")
	}
}

// handleText feeds free text into the upload workflow as candidate tags.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	res := b.workflow.Tags(ctx, msg.From.ID, msg.Text)
	switch res.Status {
	case upload.TagsNotExpected:
		b.reply(msg.Chat.ID, "I'm not sure what you mean. Use /help to see available commands.")
	case upload.TagsEmptyRetry:
		b.reply(msg.Chat.ID, "You must provide at least one tag. Please try again.")
	case upload.TagsResolveFailed:
		b.metrics.UploadsRejected.WithLabelValues("resolution").Inc()
		b.reply(msg.Chat.ID, "❌ Sorry, I couldn't process this file. It might be too old or inaccessible.")
	case upload.TagsDuplicate:
		b.metrics.UploadsRejected.WithLabelValues("duplicate").Inc()
		b.reply(msg.Chat.ID, "⚠️ This exact file has already been uploaded by someone and is public.")
	case upload.TagsCommitted:
		b.metrics.UploadsCommitted.Inc()
		b.reply(msg.Chat.ID,
			fmt.Sprintf("✅ Success! Your file is now public.\n<b>File ID:</b> <code>%d</code>", res.FileID),
			downloadButton(res.DownloadLink),
		)
	}
}

func (b *Bot) cmdMyFiles(msg *tgbotapi.Message) {
	files := b.reg.ListOwnedBy(msg.From.ID)
	if len(files) == 0 {
		b.reply(msg.Chat.ID, "You haven't uploaded any files yet. Use /upload to start.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📁 <b>Your Uploaded Files:</b>\n\n")
	for _, f := range files {
		tags := "No tags"
		if len(f.Tags) > 0 {
			tags = strings.Join(f.Tags, ", ")
		}
		fmt.Fprintf(&sb, "<b>ID:</b> <code>%d</code>\n<b>Type:</b> %s\n<b>Tags:</b> %s\n\n", f.ID, f.Kind, tags)
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) cmdPublicFiles(msg *tgbotapi.Message) {
	if b.reg.Len() == 0 {
		b.reply(msg.Chat.ID, "There are no public files yet.")
		return
	}

	b.reply(msg.Chat.ID, "🌐 Here are the latest public files:")
	for _, f := range b.reg.ListPublicLatest(publicFilesPageSize) {
		b.reply(msg.Chat.ID, fileCaption(f), downloadButton(f.DownloadLink))
	}
}

func (b *Bot) cmdInfo(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "<b>Usage:</b> /info <code>&lt;file_id&gt;</code>")
		return
	}
	fileID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Invalid File ID. It should be a number.")
		return
	}

	f, err := b.reg.Get(fileID)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ File not found.")
		return
	}

	text := fmt.Sprintf(
		"📝 <b>File Info</b>\n\n<b>ID:</b> <code>%d</code>\n<b>Type:</b> %s\n<b>Tags:</b> %s\n<b>Uploaded on:</b> %s",
		f.ID, f.Kind, strings.Join(f.Tags, ", "), f.UploadedAt.Format("2006-01-02 15:04"),
	)
	b.reply(msg.Chat.ID, text, downloadButton(f.DownloadLink))
}

func (b *Bot) cmdFavorites(msg *tgbotapi.Message) {
	favs := b.reg.ListFavorites(msg.From.ID)
	if len(favs) == 0 {
		b.reply(msg.Chat.ID, "You have no favorite files yet. Use /favorite <file_id> to add one.")
		return
	}

	b.reply(msg.Chat.ID, "⭐ Your Favorite Files:")
	for _, f := range favs {
		b.reply(msg.Chat.ID, fileCaption(f), downloadButton(f.DownloadLink))
	}
}

func (b *Bot) cmdFavorite(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "<b>Usage:</b> /favorite <code>&lt;file_id&gt;</code>")
		return
	}
	fileID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Invalid File ID. It should be a number.")
		return
	}

	switch err := b.reg.AddFavorite(msg.From.ID, fileID); err {
	case registry.ErrNotFound:
		b.reply(msg.Chat.ID, "❌ Public file with this ID not found.")
	case registry.ErrAlreadyFavorited:
		b.reply(msg.Chat.ID, "✅ This file is already in your favorites.")
	case nil:
		b.reply(msg.Chat.ID, "✅ File added to your favorites!")
	}
}

func (b *Bot) cmdTopUsers(msg *tgbotapi.Message) {
	top := b.reg.TopContributors(10)
	if len(top) == 0 {
		b.reply(msg.Chat.ID, "No one has uploaded any files yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 <b>Top 10 Contributors:</b>\n\n")
	for i, c := range top {
		fmt.Fprintf(&sb, "%d. %s - %d uploads\n", i+1, b.displayName(c.UserID), c.Uploads)
	}
	b.reply(msg.Chat.ID, sb.String())
}

// displayName resolves a user's first name, falling back to the raw ID when
// the chat lookup fails (e.g. the user never talked to the bot).
func (b *Bot) displayName(userID int64) string {
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: userID},
	})
	if err != nil || chat.FirstName == "" {
		return fmt.Sprintf("User (<code>%d</code>)", userID)
	}
	return html.EscapeString(chat.FirstName)
}

func fileCaption(f *registry.FileRecord) string {
	return fmt.Sprintf("<b>ID:</b> <code>%d</code>\n<b>Type:</b> %s\n<b>Tags:</b> %s",
		f.ID, f.Kind, strings.Join(f.Tags, ", "))
}
