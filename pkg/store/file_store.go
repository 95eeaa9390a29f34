package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"rentalai/pkg/domain"
	"rentalai/pkg/query"
)

// fileDocument is the on-disk layout of the file backend.
type fileDocument struct {
	Listings  []domain.Listing        `json:"listings"`
	Settings  []domain.AISettings     `json:"aiSettings"`
	Reviews   []domain.AIReview       `json:"aiReviews"`
	Analytics []domain.AnalyticsPoint `json:"aiAnalytics"`
}

func (d fileDocument) clone() fileDocument {
	return fileDocument{
		Listings:  append([]domain.Listing(nil), d.Listings...),
		Settings:  append([]domain.AISettings(nil), d.Settings...),
		Reviews:   append([]domain.AIReview(nil), d.Reviews...),
		Analytics: append([]domain.AnalyticsPoint(nil), d.Analytics...),
	}
}

// FileStore implements Store on a single JSON document. Every operation runs
// under one mutex; writes go to a copy of the document which replaces the
// in-memory state only after it reached disk.
type FileStore struct {
	mu    sync.Mutex
	path  string
	doc   fileDocument
	index map[string]int
	opts  options
}

// NewFileStore loads the document at path, starting empty if it is missing.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, domain.StorageErr("open file store", errors.New("path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, domain.StorageErr("create data dir", err)
	}
	s := &FileStore{path: path, index: map[string]int{}, opts: buildOptions(opts)}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, domain.StorageErr("read document", err)
	case len(raw) > 0:
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, domain.StorageErr("decode document", err)
		}
	}
	for i, l := range s.doc.Listings {
		s.index[l.ID] = i
	}
	return s, nil
}

// Close is a no-op; every write is flushed when it happens.
func (s *FileStore) Close() error { return nil }

// persist writes doc to a temp file and renames it over the document.
func (s *FileStore) persist(doc fileDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return domain.StorageErr("encode document", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rentalai-*.tmp")
	if err != nil {
		return domain.StorageErr("create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return domain.StorageErr("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return domain.StorageErr("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return domain.StorageErr("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return domain.StorageErr("replace document", err)
	}
	return nil
}

// commit persists next and makes it the live document.
func (s *FileStore) commit(next fileDocument) error {
	if err := s.persist(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// CreateListing builds a listing from the draft and persists it together with
// the AI settings derived from the draft's strategies in one document write.
func (s *FileStore) CreateListing(d domain.ListingDraft) (domain.Listing, error) {
	id, err := s.opts.newID()
	if err != nil {
		return domain.Listing{}, domain.StorageErr("generate id", err)
	}
	now := s.opts.now()
	l, err := domain.NewListing(d, id, now)
	if err != nil {
		return domain.Listing{}, err
	}
	settings, err := domain.DraftSettings(&l, d, now)
	if err != nil {
		return domain.Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc.clone()
	next.Listings = append(next.Listings, l)
	if settings != nil {
		next.Settings = append(next.Settings, cloneSettings(*settings))
	}
	if err := s.commit(next); err != nil {
		return domain.Listing{}, err
	}
	s.index[l.ID] = len(next.Listings) - 1
	return cloneListing(l), nil
}

// InsertListing stores a fully formed listing. Existing ids are rejected.
func (s *FileStore) InsertListing(l domain.Listing) error {
	if err := domain.ValidateListing(l); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[l.ID]; ok {
		return domain.Invalid("id", "already exists")
	}
	return s.appendListing(normalizeListing(l))
}

func (s *FileStore) appendListing(l domain.Listing) error {
	next := s.doc.clone()
	next.Listings = append(next.Listings, l)
	if err := s.commit(next); err != nil {
		return err
	}
	s.index[l.ID] = len(next.Listings) - 1
	return nil
}

// GetListing returns a listing by ID.
func (s *FileStore) GetListing(id string) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return cloneListing(s.doc.Listings[i]), nil
}

// IncrementViews bumps the view counter.
func (s *FileStore) IncrementViews(id string) error {
	return s.updateListing(id, func(l *domain.Listing) { l.Views++ })
}

// IncrementPhoneViews bumps the phone reveal counter.
func (s *FileStore) IncrementPhoneViews(id string) error {
	return s.updateListing(id, func(l *domain.Listing) { l.PhoneViews++ })
}

func (s *FileStore) updateListing(id string, mutate func(*domain.Listing)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return domain.ErrNotFound
	}
	next := s.doc.clone()
	mutate(&next.Listings[i])
	return s.commit(next)
}

// ListListings filters active listings, newest first, one page at a time.
func (s *FileStore) ListListings(f domain.ListingFilter, p domain.Page) (domain.ListingPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := query.Apply(s.doc.Listings, f, p)
	if err != nil {
		return domain.ListingPage{}, err
	}
	res.Items = cloneListings(res.Items)
	return res, nil
}

// SimilarListings samples active listings sharing district and rooms with ref.
func (s *FileStore) SimilarListings(ref domain.Listing, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		return []domain.Listing{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	candidates := make([]domain.Listing, 0)
	for _, l := range s.doc.Listings {
		if l.IsActive && l.ID != ref.ID && l.District == ref.District && l.Rooms == ref.Rooms {
			candidates = append(candidates, l)
		}
	}
	s.opts.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return cloneListings(candidates), nil
}

// PremiumListings returns active premium listings, newest first.
func (s *FileStore) PremiumListings(limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		return []domain.Listing{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Listing, 0)
	for _, l := range s.doc.Listings {
		if l.IsActive && l.IsPremium {
			out = append(out, l)
		}
	}
	query.Sort(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return cloneListings(out), nil
}

// Districts returns distinct non-empty districts in ascending order.
func (s *FileStore) Districts() ([]string, error) {
	return s.distinct(func(l domain.Listing) string { return l.District }), nil
}

// Metros returns distinct non-empty metro stations in ascending order.
func (s *FileStore) Metros() ([]string, error) {
	return s.distinct(func(l domain.Listing) string { return l.Metro }), nil
}

func (s *FileStore) distinct(field func(domain.Listing) string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, l := range s.doc.Listings {
		v := field(l)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ListingCount returns the number of stored listings, active or not.
func (s *FileStore) ListingCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Listings), nil
}

// Overview summarizes active listings for the home page.
func (s *FileStore) Overview() (domain.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		out domain.Overview
		sum float64
	)
	for _, l := range s.doc.Listings {
		if !l.IsActive {
			continue
		}
		out.TotalListings++
		sum += float64(l.Price)
		if l.IsAIEnabled {
			out.AIEnabled++
		}
	}
	if out.TotalListings > 0 {
		out.AveragePrice = int(math.Round(sum / float64(out.TotalListings)))
	}
	out.AISettingsCount = len(s.doc.Settings)
	return out, nil
}

// UpsertAISettings creates or replaces the settings of a listing, mirrors the
// strategies onto the listing and appends analytics in one document write.
func (s *FileStore) UpsertAISettings(id string, in domain.AISettings, analytics []domain.AnalyticsPoint) (domain.AISettings, error) {
	now := s.opts.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	li, ok := s.index[id]
	if !ok {
		return domain.AISettings{}, domain.ErrNotFound
	}
	si := s.settingsIndex(id)
	var prev *domain.AISettings
	if si >= 0 {
		existing := s.doc.Settings[si]
		prev = &existing
	}
	prepared, err := domain.PrepareSettings(id, in, prev, now)
	if err != nil {
		return domain.AISettings{}, err
	}
	prepared.Strategies = append([]domain.Strategy{}, prepared.Strategies...)

	next := s.doc.clone()
	if si >= 0 {
		next.Settings[si] = prepared
	} else {
		next.Settings = append(next.Settings, prepared)
	}
	domain.SyncAIFlags(&next.Listings[li], prepared, now)
	for _, p := range analytics {
		p.ListingID = id
		p.RecordedAt = p.RecordedAt.UTC()
		next.Analytics = append(next.Analytics, p)
	}
	if err := s.commit(next); err != nil {
		return domain.AISettings{}, err
	}
	return cloneSettings(prepared), nil
}

func (s *FileStore) settingsIndex(id string) int {
	for i, st := range s.doc.Settings {
		if st.ListingID == id {
			return i
		}
	}
	return -1
}

// GetAISettings returns the settings of a listing, if any.
func (s *FileStore) GetAISettings(id string) (domain.AISettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.settingsIndex(id)
	if i < 0 {
		return domain.AISettings{}, false, nil
	}
	return cloneSettings(s.doc.Settings[i]), true, nil
}

// AIStats aggregates AI adoption across all listings and settings.
func (s *FileStore) AIStats() (domain.AIStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := domain.AIStats{
		TotalAISettings:    len(s.doc.Settings),
		StrategyPopularity: map[domain.Strategy]int{},
	}
	for _, l := range s.doc.Listings {
		if l.IsAIEnabled {
			out.TotalAIEnabled++
		}
	}
	for _, st := range s.doc.Settings {
		for _, tag := range st.Strategies {
			out.StrategyPopularity[tag]++
		}
	}
	return out, nil
}

// AppendReviews records reviews for an existing listing.
func (s *FileStore) AppendReviews(id string, reviews []domain.AIReview) error {
	for _, r := range reviews {
		if err := validateReview(r); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return domain.ErrNotFound
	}
	if len(reviews) == 0 {
		return nil
	}
	next := s.doc.clone()
	for _, r := range reviews {
		r.ListingID = id
		r.CreatedAt = r.CreatedAt.UTC()
		next.Reviews = append(next.Reviews, r)
	}
	return s.commit(next)
}

// RecentReviews returns up to limit reviews, newest first.
func (s *FileStore) RecentReviews(id string, limit int) ([]domain.AIReview, error) {
	if limit <= 0 {
		return []domain.AIReview{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AIReview, 0)
	for _, r := range s.doc.Reviews {
		if r.ListingID == id {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecentAnalytics returns up to limit points of the given period, newest
// first. An empty period matches every period.
func (s *FileStore) RecentAnalytics(id string, period domain.Period, limit int) ([]domain.AnalyticsPoint, error) {
	if limit <= 0 {
		return []domain.AnalyticsPoint{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AnalyticsPoint, 0)
	for _, p := range s.doc.Analytics {
		if p.ListingID == id && (period == "" || p.Period == period) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func normalizeListing(l domain.Listing) domain.Listing {
	l = cloneListing(l)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	for i := range l.PriceHistory {
		l.PriceHistory[i].Date = l.PriceHistory[i].Date.UTC()
	}
	return l
}

// cloneListing copies the slices of l so callers cannot alias store state.
func cloneListing(l domain.Listing) domain.Listing {
	l.PriceHistory = append([]domain.PricePoint{}, l.PriceHistory...)
	l.Photos = append([]string{}, l.Photos...)
	l.Amenities = append([]string{}, l.Amenities...)
	l.AIStrategies = append([]domain.Strategy{}, l.AIStrategies...)
	return l
}

func cloneListings(in []domain.Listing) []domain.Listing {
	out := make([]domain.Listing, 0, len(in))
	for _, l := range in {
		out = append(out, cloneListing(l))
	}
	return out
}

func cloneSettings(st domain.AISettings) domain.AISettings {
	st.Strategies = append([]domain.Strategy{}, st.Strategies...)
	return st
}
