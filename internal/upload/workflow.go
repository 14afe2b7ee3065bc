// Package upload implements the two-step upload conversation: the user
// starts an upload, sends a media message, then sends comma-separated tags.
// The workflow drives the session state machine and commits finished
// records into the registry. It is transport-agnostic; the bot layer turns
// outcomes into chat replies.
package upload

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tagstash/internal/registry"
	"tagstash/internal/session"
)

// LinkResolver resolves a transport attachment reference to a downloadable
// URL. Resolution happens once, at commit time, and may fail if the
// reference has expired.
type LinkResolver interface {
	ResolveLink(ctx context.Context, sourceRef string) (string, error)
}

type Workflow struct {
	sessions *session.Store
	reg      *registry.Registry
	resolver LinkResolver
	log      *zap.Logger
}

func NewWorkflow(sessions *session.Store, reg *registry.Registry, resolver LinkResolver, log *zap.Logger) *Workflow {
	return &Workflow{
		sessions: sessions,
		reg:      reg,
		resolver: resolver,
		log:      log,
	}
}

type StartResult int

const (
	// StartPrompted means the user is now awaiting media.
	StartPrompted StartResult = iota
	// StartRejectedBanned means the user is banned; no transition happened.
	StartRejectedBanned
)

// Start begins an upload conversation. Banned users are rejected and stay
// in whatever state they were in (effectively Idle for new conversations).
func (w *Workflow) Start(userID int64) StartResult {
	if w.reg.IsBanned(userID) {
		return StartRejectedBanned
	}
	w.sessions.Set(userID, session.State{Phase: session.AwaitingMedia})
	return StartPrompted
}

type MediaResult int

const (
	// MediaAccepted means the media was staged; tags are now expected.
	MediaAccepted MediaResult = iota
	// MediaDuplicate means an identical sourceRef is already public; the
	// session was reset to Idle.
	MediaDuplicate
	// MediaNotExpected means no upload was in progress for this user.
	MediaNotExpected
	// MediaIgnoredBanned means media from a banned user was dropped.
	MediaIgnoredBanned
)

// Media handles a media message. The duplicate check here is an advisory
// fast-fail; Commit re-checks atomically, so a race between two uploads of
// the same media is still resolved to a single winner.
func (w *Workflow) Media(userID int64, kind registry.MediaKind, sourceRef string) MediaResult {
	if w.reg.IsBanned(userID) {
		return MediaIgnoredBanned
	}

	result := MediaAccepted
	w.sessions.Update(userID, func(st session.State) session.State {
		if st.Phase != session.AwaitingMedia {
			result = MediaNotExpected
			return st
		}
		if w.reg.IsDuplicate(sourceRef) {
			result = MediaDuplicate
			return session.State{}
		}
		return session.State{
			Phase: session.AwaitingTags,
			Pending: &session.PendingFile{
				Kind:       kind,
				SourceRef:  sourceRef,
				ReceivedAt: time.Now(),
			},
		}
	})
	return result
}

type TagsStatus int

const (
	// TagsCommitted means the record is now public.
	TagsCommitted TagsStatus = iota
	// TagsEmptyRetry means no usable tags were parsed; the session stays in
	// AwaitingTags so the user can retry.
	TagsEmptyRetry
	// TagsNotExpected means the text was not part of an upload conversation.
	TagsNotExpected
	// TagsResolveFailed means the download link could not be resolved; the
	// pending record was discarded and the session reset.
	TagsResolveFailed
	// TagsDuplicate means another upload committed the same media between
	// the media step and now; the session was reset.
	TagsDuplicate
)

type TagsResult struct {
	Status       TagsStatus
	FileID       int64
	DownloadLink string
}

// Tags handles a text message while tags are expected. The pending record
// is taken out of the session atomically before any I/O, so a second text
// arriving concurrently sees an Idle session instead of a half-consumed one.
func (w *Workflow) Tags(ctx context.Context, userID int64, text string) TagsResult {
	var (
		pending *session.PendingFile
		tags    []string
		status  = TagsCommitted
	)
	w.sessions.Update(userID, func(st session.State) session.State {
		if st.Phase != session.AwaitingTags || st.Pending == nil {
			status = TagsNotExpected
			return st
		}
		tags = registry.ParseTags(text)
		if len(tags) == 0 {
			status = TagsEmptyRetry
			return st
		}
		pending = st.Pending
		return session.State{}
	})
	if status != TagsCommitted {
		return TagsResult{Status: status}
	}

	link, err := w.resolver.ResolveLink(ctx, pending.SourceRef)
	if err != nil {
		w.log.Error("could not resolve download link",
			zap.String("source_ref", pending.SourceRef),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return TagsResult{Status: TagsResolveFailed}
	}

	id, err := w.reg.Commit(userID, pending.Kind, pending.SourceRef, link, tags)
	if err != nil {
		// Lost the race against a concurrent upload of the same media.
		return TagsResult{Status: TagsDuplicate}
	}

	w.log.Info("file committed",
		zap.Int64("file_id", id),
		zap.Int64("owner_id", userID),
		zap.String("kind", string(pending.Kind)),
		zap.Strings("tags", tags),
	)
	return TagsResult{Status: TagsCommitted, FileID: id, DownloadLink: link}
}
