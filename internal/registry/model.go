package registry

import (
	"strings"
	"time"
)

// FileRecord is a committed catalog entry. Records are immutable after
// Commit and are never deleted.
type FileRecord struct {
	ID           int64
	OwnerID      int64
	Kind         MediaKind
	SourceRef    string
	DownloadLink string
	Tags         []string
	UploadedAt   time.Time
}

// HasTag reports whether the record carries the already-normalized tag.
func (r *FileRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type MediaKind string

const (
	KindPhoto     MediaKind = "photo"
	KindVideo     MediaKind = "video"
	KindAudio     MediaKind = "audio"
	KindDocument  MediaKind = "document"
	KindVoice     MediaKind = "voice"
	KindVideoNote MediaKind = "video_note"
)

// NormalizeTag lowercases and trims a tag or search token. Storage and
// search both go through this, so an exact-match lookup stays consistent.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// ParseTags splits comma-separated user input into a normalized tag set,
// dropping empties and duplicates while keeping first-appearance order.
func ParseTags(input string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(input, ",") {
		t := NormalizeTag(raw)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}
