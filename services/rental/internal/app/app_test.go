package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rentalai/pkg/domain"
	"rentalai/pkg/generator"
	"rentalai/pkg/store"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewGormStore(filepath.Join(t.TempDir(), "rental.db"), store.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestApp(t *testing.T, s store.Store) *App {
	t.Helper()
	a, err := New(Config{Store: s, RandomSeed: 42, Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func testDraft() domain.ListingDraft {
	return domain.ListingDraft{
		Title:      "2-комнатная квартира у метро",
		Price:      55000,
		Rooms:      2,
		Area:       62,
		Address:    "г. Москва, ЦАО, ул. Тверская, д. 7",
		District:   "ЦАО",
		Metro:      "Тверская",
		OwnerName:  "Анна Петрова",
		OwnerPhone: "+7 (916) 123-45-67",
		Amenities:  []string{"Wi-Fi", "Лифт"},
	}
}

func TestSeedTopsUpOnce(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	ctx := context.Background()

	added, err := a.Seed(ctx, 12)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if added != 12 {
		t.Fatalf("expected 12 seeded listings, got %d", added)
	}
	added, err = a.Seed(ctx, 12)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected no-op reseed, got %d", added)
	}

	stats, err := a.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAIEnabled != stats.TotalAISettings {
		t.Fatalf("seeded ai flags out of sync: %+v", stats)
	}
}

func TestSeedResumesWithFixedSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := newTestApp(t, s).Seed(ctx, 5); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	added, err := newTestApp(t, s).Seed(ctx, 10)
	if err != nil {
		t.Fatalf("resume seed: %v", err)
	}
	if added != 5 {
		t.Fatalf("expected 5 more listings, got %d", added)
	}
	count, err := s.ListingCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected 10 listings, got %d", count)
	}
}

func TestSeedHonorsCancelledContext(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Seed(ctx, 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCreateListingDerivesAISettings(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	d := testDraft()
	d.AIStrategies = []domain.Strategy{domain.StrategyReviewGeneration, domain.StrategyAnalytics, domain.StrategyReviewGeneration}

	listing, err := a.CreateListing(context.Background(), d)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !listing.IsAIEnabled || len(listing.AIStrategies) != 2 {
		t.Fatalf("expected ai flags from strategies, got %v %v", listing.IsAIEnabled, listing.AIStrategies)
	}
	if len(listing.Photos) != 1 || listing.Photos[0] != generator.DefaultPhoto() {
		t.Fatalf("expected default photo, got %v", listing.Photos)
	}

	view, err := a.AISettings(listing.ID)
	if err != nil {
		t.Fatalf("ai settings: %v", err)
	}
	if !view.Configured {
		t.Fatalf("expected stored settings")
	}
	s := view.Settings
	if !s.AutoReviews || !s.AnalyticsEnabled || s.AutoMessages || s.PriceOptimization || !s.NotificationsEnabled {
		t.Fatalf("unexpected derived settings: %+v", s)
	}
	if len(view.Strategies) != len(domain.StrategyCatalog) {
		t.Fatalf("expected full strategy catalog, got %d", len(view.Strategies))
	}
}

func TestCreateListingRejectsUnknownStrategy(t *testing.T) {
	s := newTestStore(t)
	a := newTestApp(t, s)
	d := testDraft()
	d.AIStrategies = []domain.Strategy{"mind_reading"}

	if _, err := a.CreateListing(context.Background(), d); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	count, err := s.ListingCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no listing stored, got %d", count)
	}
}

// settingsLockedStore refuses settings writes outside listing creation.
type settingsLockedStore struct {
	store.Store
}

func (settingsLockedStore) UpsertAISettings(string, domain.AISettings, []domain.AnalyticsPoint) (domain.AISettings, error) {
	return domain.AISettings{}, domain.StorageErr("save settings", errors.New("locked"))
}

// failingCreateStore fails every listing creation.
type failingCreateStore struct {
	store.Store
}

func (failingCreateStore) CreateListing(domain.ListingDraft) (domain.Listing, error) {
	return domain.Listing{}, domain.StorageErr("create listing", errors.New("disk full"))
}

func TestCreateListingWritesSettingsWithListing(t *testing.T) {
	a := newTestApp(t, settingsLockedStore{Store: newTestStore(t)})
	d := testDraft()
	d.AIStrategies = []domain.Strategy{domain.StrategyAutoMessaging}

	listing, err := a.CreateListing(context.Background(), d)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, err := a.AISettings(listing.ID)
	if err != nil {
		t.Fatalf("ai settings: %v", err)
	}
	if !view.Configured || !view.Settings.AutoMessages {
		t.Fatalf("expected settings stored with the listing, got %+v", view)
	}
}

func TestCreateListingStorageFailureStoresNothing(t *testing.T) {
	s := newTestStore(t)
	a := newTestApp(t, failingCreateStore{Store: s})
	d := testDraft()
	d.AIStrategies = []domain.Strategy{domain.StrategyAnalytics}

	if _, err := a.CreateListing(context.Background(), d); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	stats, err := s.AIStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	count, err := s.ListingCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 || stats.TotalAISettings != 0 {
		t.Fatalf("expected nothing stored, got count=%d stats=%+v", count, stats)
	}
}

func TestListingDetailCountsView(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	ctx := context.Background()
	listing, err := a.CreateListing(ctx, testDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	twin, err := a.CreateListing(ctx, testDraft())
	if err != nil {
		t.Fatalf("create twin: %v", err)
	}

	detail, err := a.GetListingDetail(ctx, listing.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Listing.Views != 0 {
		t.Fatalf("expected pre-view counter, got %d", detail.Listing.Views)
	}
	if detail.HasSettings || !detail.Settings.AutoMessages || len(detail.Settings.Strategies) != 0 {
		t.Fatalf("expected default settings, got %+v", detail.Settings)
	}
	if len(detail.Similar) != 1 || detail.Similar[0].ID != twin.ID {
		t.Fatalf("expected twin as similar listing, got %+v", detail.Similar)
	}
	if detail.Reviews == nil || detail.Analytics == nil {
		t.Fatalf("expected empty slices, got %v %v", detail.Reviews, detail.Analytics)
	}

	again, err := a.GetListingDetail(ctx, listing.ID)
	if err != nil {
		t.Fatalf("second detail: %v", err)
	}
	if again.Listing.Views != 1 {
		t.Fatalf("expected one recorded view, got %d", again.Listing.Views)
	}
}

func TestListingDetailUnknownID(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	if _, err := a.GetListingDetail(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateAISettingsAppendsAnalytics(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	ctx := context.Background()
	listing, err := a.CreateListing(ctx, testDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := domain.AISettings{
		Strategies:       []domain.Strategy{domain.StrategyPriceOptimization},
		AnalyticsEnabled: true,
	}
	for i := 0; i < 3; i++ {
		if _, err := a.UpdateAISettings(ctx, listing.ID, in); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	detail, err := a.GetListingDetail(ctx, listing.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Analytics) != DetailAnalyticsLimit {
		t.Fatalf("expected %d analytics points, got %d", DetailAnalyticsLimit, len(detail.Analytics))
	}
	for _, p := range detail.Analytics {
		if p.Period != domain.PeriodMonthly {
			t.Fatalf("unexpected period %q", p.Period)
		}
	}
	if !detail.Listing.IsAIEnabled {
		t.Fatalf("expected listing ai flag set")
	}

	in.Strategies = nil
	in.AnalyticsEnabled = false
	saved, err := a.UpdateAISettings(ctx, listing.ID, in)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(saved.Strategies) != 0 {
		t.Fatalf("expected cleared strategies, got %v", saved.Strategies)
	}
	stats, err := a.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAIEnabled != 0 || stats.TotalAISettings != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestUpdateAISettingsUnknownListing(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	_, err := a.UpdateAISettings(context.Background(), "missing", domain.AISettings{AnalyticsEnabled: true})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := a.AISettings("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found from view, got %v", err)
	}
}

func TestRevealPhoneCountsReveal(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	listing, err := a.CreateListing(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	contact, err := a.RevealPhone(listing.ID)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if contact.OwnerPhone != "+7 (916) 123-45-67" || contact.PhoneViews != 1 {
		t.Fatalf("unexpected contact: %+v", contact)
	}
	if _, err := a.RevealPhone("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHomeAndListings(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	if _, err := a.Seed(context.Background(), 30); err != nil {
		t.Fatalf("seed: %v", err)
	}

	home, err := a.Home()
	if err != nil {
		t.Fatalf("home: %v", err)
	}
	if len(home.Premium) > HomePremiumLimit {
		t.Fatalf("too many premium listings: %d", len(home.Premium))
	}
	for _, l := range home.Premium {
		if !l.IsPremium {
			t.Fatalf("non-premium listing on home page: %s", l.ID)
		}
	}
	if home.Overview.TotalListings != 30 {
		t.Fatalf("expected 30 active listings, got %d", home.Overview.TotalListings)
	}

	page, err := a.ListListings(domain.ListingFilter{}, domain.Page{Number: 2, PerPage: 12})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 30 || page.TotalPages != 3 || len(page.Items) != 12 {
		t.Fatalf("unexpected page: total=%d pages=%d items=%d", page.TotalCount, page.TotalPages, len(page.Items))
	}
	if len(page.Districts) == 0 || len(page.Metros) == 0 {
		t.Fatalf("expected filter vocabularies")
	}

	if _, err := a.ListListings(domain.ListingFilter{}, domain.Page{Number: 0, PerPage: 12}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewOpensConfiguredBackend(t *testing.T) {
	a, err := New(Config{
		StoreBackend: store.BackendFile,
		StorePath:    filepath.Join(t.TempDir(), "data", "rental.json"),
		RandomSeed:   7,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	if _, err := a.Seed(context.Background(), 4); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := New(Config{StoreBackend: store.BackendFile}); err == nil {
		t.Fatalf("expected error without store path")
	}
}
