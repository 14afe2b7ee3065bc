package bot_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagstash/internal/registry"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestUploadConversation(t *testing.T) {
	b, api, reg := newTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/upload"))
	assert.Contains(t, api.lastText(t, 1), "send your media file")

	b.HandleUpdate(ctx, photoMessage(1, "abc"))
	assert.Contains(t, api.lastText(t, 1), "provide tags")

	b.HandleUpdate(ctx, textMessage(1, "Nature, Sky, nature"))
	assert.Contains(t, api.lastText(t, 1), "Your file is now public")

	require.Equal(t, 1, reg.Len())
	files := reg.ListOwnedBy(1)
	require.Len(t, files, 1)
	assert.Equal(t, registry.KindPhoto, files[0].Kind)
	assert.Equal(t, []string{"nature", "sky"}, files[0].Tags)
	assert.Equal(t, "abc", files[0].SourceRef)
	assert.Equal(t, "https://api.telegram.org/file/abc", files[0].DownloadLink)
}

func TestMediaWithoutUploadCommand(t *testing.T) {
	b, api, reg := newTestBot(t)

	b.HandleUpdate(context.Background(), photoMessage(1, "abc"))
	assert.Contains(t, api.lastText(t, 1), "use the /upload command")
	assert.Equal(t, 0, reg.Len())
}

func TestTextWhileIdleIsUnrecognized(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.HandleUpdate(context.Background(), textMessage(1, "hello"))
	assert.Contains(t, api.lastText(t, 1), "not sure what you mean")
}

func TestBannedUserUploadRejected(t *testing.T) {
	b, api, reg := newTestBot(t)
	reg.Ban(1)

	b.HandleUpdate(context.Background(), command(1, "/upload"))
	assert.Contains(t, api.lastText(t, 1), "banned from uploading")

	// Media from the banned user is silently dropped.
	before := len(api.texts(1))
	b.HandleUpdate(context.Background(), photoMessage(1, "abc"))
	assert.Len(t, api.texts(1), before)
}

func TestDuplicateMediaRejected(t *testing.T) {
	b, api, reg := newTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/upload"))
	b.HandleUpdate(ctx, photoMessage(1, "abc"))
	b.HandleUpdate(ctx, textMessage(1, "nature"))
	require.Equal(t, 1, reg.Len())

	b.HandleUpdate(ctx, command(2, "/upload"))
	b.HandleUpdate(ctx, photoMessage(2, "abc"))
	assert.Contains(t, api.lastText(t, 2), "already been uploaded")
	assert.Equal(t, 1, reg.Len())
}

func TestResolutionFailureReported(t *testing.T) {
	b, api, reg := newTestBot(t)
	ctx := context.Background()
	api.linkErr = assert.AnError

	b.HandleUpdate(ctx, command(1, "/upload"))
	b.HandleUpdate(ctx, photoMessage(1, "abc"))
	b.HandleUpdate(ctx, textMessage(1, "nature"))

	assert.Contains(t, api.lastText(t, 1), "couldn't process this file")
	assert.Equal(t, 0, reg.Len())
}

func TestEmptyTagsAskForRetry(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/upload"))
	b.HandleUpdate(ctx, photoMessage(1, "abc"))
	b.HandleUpdate(ctx, textMessage(1, " , , "))
	assert.Contains(t, api.lastText(t, 1), "at least one tag")

	b.HandleUpdate(ctx, textMessage(1, "nature"))
	assert.Contains(t, api.lastText(t, 1), "now public")
}

func TestMyFiles(t *testing.T) {
	b, api, reg := newTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/myfiles"))
	assert.Contains(t, api.lastText(t, 1), "haven't uploaded any files")

	_, err := reg.Commit(1, registry.KindVideo, "v1", "link", []string{"cats"})
	require.NoError(t, err)

	b.HandleUpdate(ctx, command(1, "/myfiles"))
	last := api.lastText(t, 1)
	assert.Contains(t, last, "Your Uploaded Files")
	assert.Contains(t, last, "video")
	assert.Contains(t, last, "cats")
}

func TestPublicFilesLatestFirst(t *testing.T) {
	b, api, reg := newTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/publicfiles"))
	assert.Contains(t, api.lastText(t, 1), "no public files yet")

	firstID, err := reg.Commit(2, registry.KindPhoto, "a", "link-a", []string{"t"})
	require.NoError(t, err)
	secondID, err := reg.Commit(2, registry.KindPhoto, "b", "link-b", []string{"t"})
	require.NoError(t, err)

	b.HandleUpdate(ctx, command(1, "/publicfiles"))
	texts := api.texts(1)
	require.GreaterOrEqual(t, len(texts), 4)
	// Header, then most recent first.
	assert.Contains(t, texts[len(texts)-3], "latest public files")
	assert.Contains(t, texts[len(texts)-2], itoa(secondID))
	assert.Contains(t, texts[len(texts)-1], itoa(firstID))
}

func TestInfoCommand(t *testing.T) {
	b, api, reg := newTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/info"))
	assert.Contains(t, api.lastText(t, 1), "Usage:")

	b.HandleUpdate(ctx, command(1, "/info abc"))
	assert.Contains(t, api.lastText(t, 1), "Invalid File ID")

	b.HandleUpdate(ctx, command(1, "/info 12345"))
	assert.Contains(t, api.lastText(t, 1), "File not found")

	id, err := reg.Commit(2, registry.KindAudio, "a", "link", []string{"jazz"})
	require.NoError(t, err)

	b.HandleUpdate(ctx, command(1, "/info "+itoa(id)))
	last := api.lastText(t, 1)
	assert.Contains(t, last, "File Info")
	assert.Contains(t, last, "audio")
	assert.Contains(t, last, "jazz")
	assert.Contains(t, last, "Uploaded on")
}

func TestFavoriteCommands(t *testing.T) {
	b, api, reg := newTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/favorites"))
	assert.Contains(t, api.lastText(t, 1), "no favorite files yet")

	b.HandleUpdate(ctx, command(1, "/favorite"))
	assert.Contains(t, api.lastText(t, 1), "Usage:")

	// Unknown file ID leaves favorites untouched.
	b.HandleUpdate(ctx, command(1, "/favorite 999"))
	assert.Contains(t, api.lastText(t, 1), "not found")
	assert.Empty(t, reg.ListFavorites(1))

	id, err := reg.Commit(2, registry.KindPhoto, "a", "link", []string{"t"})
	require.NoError(t, err)

	b.HandleUpdate(ctx, command(1, "/favorite "+itoa(id)))
	assert.Contains(t, api.lastText(t, 1), "added to your favorites")

	b.HandleUpdate(ctx, command(1, "/favorite "+itoa(id)))
	assert.Contains(t, api.lastText(t, 1), "already in your favorites")
	assert.Len(t, reg.ListFavorites(1), 1)

	b.HandleUpdate(ctx, command(1, "/favorites"))
	assert.Contains(t, api.lastText(t, 1), itoa(id))
}

func TestTopUsers(t *testing.T) {
	b, api, reg := newTestBot(t)
	ctx := context.Background()

	b.HandleUpdate(ctx, command(1, "/topusers"))
	assert.Contains(t, api.lastText(t, 1), "No one has uploaded")

	_, err := reg.Commit(5, registry.KindPhoto, "a", "link", []string{"t"})
	require.NoError(t, err)
	_, err = reg.Commit(6, registry.KindPhoto, "b", "link", []string{"t"})
	require.NoError(t, err)

	api.chatNames[5] = "Alice"

	b.HandleUpdate(ctx, command(1, "/topusers"))
	last := api.lastText(t, 1)
	assert.Contains(t, last, "Top 10 Contributors")
	assert.Contains(t, last, "Alice")
	// User 6 has no resolvable name, so the raw ID shows instead.
	assert.Contains(t, last, "User (<code>6</code>)")
}
