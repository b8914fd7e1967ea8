package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"insightsapi/internal/model"
	"insightsapi/internal/remote"
	"insightsapi/internal/slug"
)

var (
	ErrInsightRequired = errors.New("insight data is required")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidInsight  = errors.New("invalid insight data")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotFound        = errors.New("insight not found")
	ErrConflict        = errors.New("insights document changed concurrently")
)

// writeAttempts bounds the read-modify-write loop: the first try plus one
// retry with a refreshed version token.
const writeAttempts = 2

// InsightService defines the use cases over the insights collection, which is
// persisted as a single pretty-printed JSON array in the remote repository.
type InsightService interface {
	// List returns the full collection. A missing document is an expected
	// initial state and yields an empty slice; other read failures also yield
	// an empty slice (fail-soft) and are logged, so callers must tolerate an
	// empty result being ambiguous between "empty" and "unreachable".
	List(ctx context.Context) []model.Insight

	// Published returns the published subset, normalized and sorted newest-first.
	Published(ctx context.Context) []model.Insight

	// FindBySlug returns the published insight with the given slug.
	FindBySlug(ctx context.Context, s string) (*model.Insight, error)

	// Add validates the candidate, assigns id/slug/timestamps, prepends it to
	// the collection and commits. Returns the new record and the refreshed
	// collection sorted newest-first.
	Add(ctx context.Context, input *model.InsightInput) (*model.Insight, []model.Insight, error)

	// Edit merges the patch over the record at index; absent fields are
	// preserved. Slug and URL are regenerated only when the patch carries a slug.
	Edit(ctx context.Context, index int, patch *model.InsightInput) (*model.Insight, []model.Insight, error)

	// Delete removes the record at index and returns it.
	Delete(ctx context.Context, index int) (*model.Insight, []model.Insight, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

// insightService is a concrete implementation of InsightService.
type insightService struct {
	files    remote.FileStore
	path     string
	validate *validator.Validate
	log      zerolog.Logger

	// Injectable for tests.
	now   func() time.Time
	newID func() string
}

// NewInsightService constructs a new InsightService persisting to the given
// file path in the remote store.
func NewInsightService(files remote.FileStore, path string, log zerolog.Logger) InsightService {
	return &insightService{
		files:    files,
		path:     path,
		validate: validator.New(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// load fetches and parses the current document, returning the collection and
// its version token. A missing document maps to an empty collection with an
// empty token.
func (s *insightService) load(ctx context.Context) ([]model.Insight, string, error) {
	f, err := s.files.Get(ctx, s.path)
	if err != nil {
		if errors.Is(err, remote.ErrFileNotFound) {
			return []model.Insight{}, "", nil
		}
		return nil, "", fmt.Errorf("fetch insights: %w", err)
	}

	items := []model.Insight{}
	if len(f.Content) > 0 {
		if err := json.Unmarshal(f.Content, &items); err != nil {
			return nil, "", fmt.Errorf("parse insights: %w", err)
		}
	}
	return items, f.SHA, nil
}

func (s *insightService) List(ctx context.Context) []model.Insight {
	items, _, err := s.load(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to load insights, degrading to empty collection")
		return []model.Insight{}
	}
	return items
}

func (s *insightService) Published(ctx context.Context) []model.Insight {
	items := s.List(ctx)
	out := make([]model.Insight, 0, len(items))
	for _, it := range items {
		if it.IsPublished() {
			out = append(out, s.normalize(it))
		}
	}
	sortNewestFirst(out)
	return out
}

func (s *insightService) FindBySlug(ctx context.Context, wanted string) (*model.Insight, error) {
	for _, it := range s.Published(ctx) {
		if it.Slug == wanted {
			return &it, nil
		}
	}
	return nil, ErrNotFound
}

func (s *insightService) Add(ctx context.Context, input *model.InsightInput) (*model.Insight, []model.Insight, error) {
	if input == nil {
		return nil, nil, ErrInsightRequired
	}
	if trimmed(input.Title) == "" {
		return nil, nil, ErrTitleRequired
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInsight, err)
	}

	var created model.Insight
	items, err := s.mutate(ctx, func(items []model.Insight) ([]model.Insight, string, error) {
		now := s.now()
		base := strValue(input.Slug)
		if base == "" {
			base = strValue(input.Title)
		}
		sl := uniqueSlug(items, slug.Make(base), -1)

		created = model.Insight{
			ID:        s.newID(),
			Title:     trimmed(input.Title),
			Excerpt:   trimmed(input.Excerpt),
			Body:      strValue(input.Body),
			Image:     strValue(input.Image),
			Slug:      sl,
			Date:      orDefault(strValue(input.Date), now.Format("2006-01-02")),
			Featured:  boolValue(input.Featured),
			Status:    orDefault(strValue(input.Status), model.StatusDraft),
			CreatedAt: now.Format(time.RFC3339),
			UpdatedAt: now.Format(time.RFC3339),
			URL:       "/insight/" + sl,
		}

		// Prepend: the collection is kept newest-first.
		next := make([]model.Insight, 0, len(items)+1)
		next = append(next, created)
		next = append(next, items...)
		return next, "Add insight: " + created.Title, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &created, items, nil
}

func (s *insightService) Edit(ctx context.Context, index int, patch *model.InsightInput) (*model.Insight, []model.Insight, error) {
	if patch == nil {
		return nil, nil, ErrInsightRequired
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInsight, err)
	}

	var updated model.Insight
	items, err := s.mutate(ctx, func(items []model.Insight) ([]model.Insight, string, error) {
		if index < 0 || index >= len(items) {
			return nil, "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}

		cur := items[index]
		if patch.Title != nil {
			cur.Title = trimmed(patch.Title)
		}
		if patch.Excerpt != nil {
			cur.Excerpt = trimmed(patch.Excerpt)
		}
		if patch.Body != nil {
			cur.Body = *patch.Body
		}
		if patch.Image != nil {
			cur.Image = *patch.Image
		}
		if patch.Date != nil {
			cur.Date = *patch.Date
		}
		if patch.Featured != nil {
			cur.Featured = *patch.Featured
		}
		if patch.Status != nil {
			cur.Status = *patch.Status
		}
		if patch.Slug != nil {
			sl := uniqueSlug(items, slug.Make(*patch.Slug), index)
			cur.Slug = sl
			cur.URL = "/insight/" + sl
		}
		cur.UpdatedAt = s.now().Format(time.RFC3339)

		items[index] = cur
		updated = cur
		return items, "Update insight: " + cur.Title, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, items, nil
}

func (s *insightService) Delete(ctx context.Context, index int) (*model.Insight, []model.Insight, error) {
	var removed model.Insight
	items, err := s.mutate(ctx, func(items []model.Insight) ([]model.Insight, string, error) {
		if index < 0 || index >= len(items) {
			return nil, "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		removed = items[index]
		next := append(items[:index:index], items[index+1:]...)
		return next, "Delete insight: " + removed.Title, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &removed, items, nil
}

func (s *insightService) Ping(ctx context.Context) error {
	_, err := s.files.Get(ctx, s.path)
	if err != nil && !errors.Is(err, remote.ErrFileNotFound) {
		return err
	}
	return nil
}

// mutate runs a read-modify-write cycle against the remote document. The
// version token is re-read inside each attempt so the sequence is a single
// logical compare-and-swap; a stale token triggers exactly one retry with a
// fresh read before ErrConflict is surfaced. Write failures always propagate,
// a failed commit is never dropped silently.
func (s *insightService) mutate(ctx context.Context, apply func([]model.Insight) ([]model.Insight, string, error)) ([]model.Insight, error) {
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		items, sha, err := s.load(ctx)
		if err != nil {
			return nil, err
		}

		next, message, err := apply(items)
		if err != nil {
			return nil, err
		}

		content, err := json.MarshalIndent(next, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode insights: %w", err)
		}

		if _, err := s.files.Put(ctx, s.path, content, sha, message); err != nil {
			if errors.Is(err, remote.ErrShaMismatch) {
				lastErr = err
				s.log.Warn().Str("path", s.path).Int("attempt", attempt+1).Msg("stale version token, refetching")
				continue
			}
			return nil, fmt.Errorf("write insights: %w", err)
		}

		sorted := make([]model.Insight, len(next))
		copy(sorted, next)
		sortNewestFirst(sorted)
		return sorted, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

// normalize backfills fields that records written by earlier versions of the
// admin tooling may be missing.
func (s *insightService) normalize(it model.Insight) model.Insight {
	if it.ID == "" {
		it.ID = s.newID()
	}
	if it.Title == "" {
		it.Title = "Untitled"
	}
	if it.Slug == "" {
		it.Slug = slug.Make(it.Title)
	}
	if it.Date == "" {
		it.Date = it.CreatedAt
	}
	if it.Status == "" {
		it.Status = model.StatusDraft
	}
	if it.URL == "" {
		it.URL = "/insight/" + it.Slug
	}
	return it
}

// uniqueSlug resolves duplicate slugs by suffixing -2, -3, ... instead of
// rejecting the write, so the admin flow never blocks on a title collision.
// skip is the index of the record being edited, or -1.
func uniqueSlug(items []model.Insight, base string, skip int) string {
	taken := func(candidate string) bool {
		for i, it := range items {
			if i != skip && it.Slug == candidate {
				return true
			}
		}
		return false
	}

	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// sortNewestFirst orders by logical publication date, falling back to
// createdAt for records without one. The sort is stable so records sharing a
// date keep their stored order.
func sortNewestFirst(items []model.Insight) {
	sort.SliceStable(items, func(i, j int) bool {
		return sortKey(items[i]).After(sortKey(items[j]))
	})
}

func sortKey(it model.Insight) time.Time {
	for _, raw := range []string{it.Date, it.CreatedAt} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func boolValue(p *bool) bool {
	return p != nil && *p
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
