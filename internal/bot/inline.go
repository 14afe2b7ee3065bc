package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tagstash/internal/registry"
)

const maxInlineResults = 50

// handleInline answers an inline query with the files whose tag set
// contains the query, matched exactly after normalization.
func (b *Bot) handleInline(_ context.Context, q *tgbotapi.InlineQuery) {
	if strings.TrimSpace(q.Query) == "" {
		return
	}
	b.metrics.InlineQueries.Inc()

	matches := b.reg.SearchByTag(q.Query)
	if len(matches) > maxInlineResults {
		matches = matches[:maxInlineResults]
	}

	results := make([]interface{}, 0, len(matches))
	for _, f := range matches {
		content := fmt.Sprintf(
			"<b>File ID:</b> <code>%d</code> (%s)\n<a href='%s'>Click here to download</a>",
			f.ID, f.Kind, f.DownloadLink,
		)
		article := tgbotapi.NewInlineQueryResultArticleHTML(uuid.NewString(), kindTitle(f.Kind), content)
		article.Description = "Tags: " + strings.Join(f.Tags, ", ")
		results = append(results, article)
	}

	if _, err := b.api.Request(tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       results,
		CacheTime:     1,
	}); err != nil {
		b.log.Warn("inline answer failed", zap.String("query", q.Query), zap.Error(err))
	}
}

func kindTitle(k registry.MediaKind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
