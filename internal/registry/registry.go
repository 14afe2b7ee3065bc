package registry

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the authoritative in-memory catalog: public files, per-owner
// lists, tag usage, favorites, upload counts and the ban set. One instance
// per process, constructed in main and shared by every handler. State is
// ephemeral and lost on restart.
type Registry struct {
	mu            sync.RWMutex
	files         map[int64]*FileRecord
	order         []int64 // commit order of file IDs
	byOwner       map[int64][]*FileRecord
	tagCounts     map[string]int
	favorites     map[int64][]int64
	uploadCounts  map[int64]int
	uploaderOrder []int64 // first-upload order, for stable contributor ties
	banned        map[int64]struct{}
	sourceRefs    map[string]int64 // dedup index: sourceRef -> file ID
}

func New() *Registry {
	return &Registry{
		files:        make(map[int64]*FileRecord),
		byOwner:      make(map[int64][]*FileRecord),
		tagCounts:    make(map[string]int),
		favorites:    make(map[int64][]int64),
		uploadCounts: make(map[int64]int),
		banned:       make(map[int64]struct{}),
		sourceRefs:   make(map[string]int64),
	}
}

// Contributor pairs an uploader with their successful upload count.
type Contributor struct {
	UserID  int64
	Uploads int
}

// newFileID derives a 63-bit ID from the top half of a v4 UUID.
func newFileID() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[:8]) >> 1)
}

// IsDuplicate reports whether some committed record already carries the
// given sourceRef. This is the advisory fast-fail check; Commit re-checks
// under the write lock and is the authoritative guard.
func (r *Registry) IsDuplicate(sourceRef string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sourceRefs[sourceRef]
	return ok
}

// Commit allocates a file ID and inserts a new record, updating the owner
// list, tag counts and upload count in the same critical section. The
// sourceRef check happens under the write lock, so of two concurrent
// commits with the same sourceRef exactly one succeeds and the other gets
// ErrDuplicateMedia.
func (r *Registry) Commit(ownerID int64, kind MediaKind, sourceRef, downloadLink string, tags []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sourceRefs[sourceRef]; ok {
		return 0, ErrDuplicateMedia
	}

	id := newFileID()
	for {
		if _, taken := r.files[id]; !taken {
			break
		}
		id = newFileID()
	}

	rec := &FileRecord{
		ID:           id,
		OwnerID:      ownerID,
		Kind:         kind,
		SourceRef:    sourceRef,
		DownloadLink: downloadLink,
		Tags:         tags,
		UploadedAt:   time.Now(),
	}

	r.files[id] = rec
	r.order = append(r.order, id)
	r.sourceRefs[sourceRef] = id
	if _, seen := r.uploadCounts[ownerID]; !seen {
		r.uploaderOrder = append(r.uploaderOrder, ownerID)
	}
	r.byOwner[ownerID] = append(r.byOwner[ownerID], rec)
	r.uploadCounts[ownerID]++
	for _, t := range tags {
		r.tagCounts[t]++
	}

	return id, nil
}

// Get returns the record for the ID, or ErrNotFound.
func (r *Registry) Get(fileID int64) (*FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.files[fileID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// ListOwnedBy returns the user's uploads in upload order.
func (r *Registry) ListOwnedBy(userID int64) []*FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owned := r.byOwner[userID]
	out := make([]*FileRecord, len(owned))
	copy(out, owned)
	return out
}

// ListPublicLatest returns up to n of the most recently committed records,
// most recent first.
func (r *Registry) ListPublicLatest(n int) []*FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > len(r.order) {
		n = len(r.order)
	}
	out := make([]*FileRecord, 0, n)
	for i := len(r.order) - 1; i >= len(r.order)-n; i-- {
		out = append(out, r.files[r.order[i]])
	}
	return out
}

// SearchByTag returns every record whose tag set contains the query after
// normalization. Exact match only, in commit order.
func (r *Registry) SearchByTag(query string) []*FileRecord {
	tag := NormalizeTag(query)
	if tag == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*FileRecord
	for _, id := range r.order {
		if rec := r.files[id]; rec.HasTag(tag) {
			out = append(out, rec)
		}
	}
	return out
}

// TagCount returns how many committed records carry the tag.
func (r *Registry) TagCount(tag string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tagCounts[NormalizeTag(tag)]
}

// AddFavorite appends the file to the user's favorites. The file must exist
// and must not already be favorited by this user.
func (r *Registry) AddFavorite(userID, fileID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[fileID]; !ok {
		return ErrNotFound
	}
	for _, fid := range r.favorites[userID] {
		if fid == fileID {
			return ErrAlreadyFavorited
		}
	}
	r.favorites[userID] = append(r.favorites[userID], fileID)
	return nil
}

// ListFavorites resolves the user's favorite IDs against the catalog in the
// order they were added. Unresolvable IDs are skipped; with no delete
// operation that should never happen, but the guard stays.
func (r *Registry) ListFavorites(userID int64) []*FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*FileRecord
	for _, fid := range r.favorites[userID] {
		if rec, ok := r.files[fid]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// TopContributors returns up to n uploaders ordered by upload count
// descending. Ties rank whoever uploaded first higher, which needs a
// stable sort over the first-upload order.
func (r *Registry) TopContributors(n int) []Contributor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	top := make([]Contributor, 0, len(r.uploaderOrder))
	for _, uid := range r.uploaderOrder {
		top = append(top, Contributor{UserID: uid, Uploads: r.uploadCounts[uid]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Uploads > top[j].Uploads
	})
	if n < len(top) {
		top = top[:n]
	}
	return top
}

// Uploaders returns every user with at least one upload, in first-upload
// order with their counts.
func (r *Registry) Uploaders() []Contributor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Contributor, 0, len(r.uploaderOrder))
	for _, uid := range r.uploaderOrder {
		out = append(out, Contributor{UserID: uid, Uploads: r.uploadCounts[uid]})
	}
	return out
}

// Ban blocks the user from new uploads. Idempotent; existing records are
// unaffected.
func (r *Registry) Ban(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banned[userID] = struct{}{}
}

// Unban lifts a ban. Idempotent.
func (r *Registry) Unban(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.banned, userID)
}

func (r *Registry) IsBanned(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.banned[userID]
	return ok
}

// AllKnownUserIDs returns the union of uploaders and favoriters, sorted.
// This is the broadcast target set.
func (r *Registry) AllKnownUserIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(map[int64]struct{}, len(r.byOwner)+len(r.favorites))
	for uid := range r.byOwner {
		set[uid] = struct{}{}
	}
	for uid := range r.favorites {
		set[uid] = struct{}{}
	}
	out := make([]int64, 0, len(set))
	for uid := range set {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of public files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
