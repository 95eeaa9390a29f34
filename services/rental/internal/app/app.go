package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rentalai/internal/util"
	"rentalai/pkg/domain"
	"rentalai/pkg/generator"
	"rentalai/pkg/query"
	"rentalai/pkg/store"
)

const (
	HomePremiumLimit     = 9
	DetailReviewLimit    = 5
	DetailAnalyticsLimit = 10
	SimilarLimit         = 3
)

// Config holds runtime configuration for the listing service.
type Config struct {
	Store        store.Store
	StoreBackend string
	StorePath    string
	// RandomSeed drives generated listings, analytics and similar-listing
	// sampling. Zero seeds from the clock.
	RandomSeed int64
	Now        func() time.Time
}

// App is the listing service wiring the store to the generator.
type App struct {
	store store.Store
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// HomePage is the landing page payload.
type HomePage struct {
	Premium  []domain.Listing `json:"premium"`
	Overview domain.Overview  `json:"stats"`
}

// ListingsPage is one page of the catalog plus the filter vocabularies.
type ListingsPage struct {
	Items      []domain.Listing `json:"items"`
	Page       int              `json:"page"`
	PerPage    int              `json:"perPage"`
	TotalCount int              `json:"totalCount"`
	TotalPages int              `json:"totalPages"`
	Districts  []string         `json:"districts"`
	Metros     []string         `json:"metros"`
}

// ListingDetail is everything shown on a listing page.
type ListingDetail struct {
	Listing     domain.Listing          `json:"listing"`
	Settings    domain.AISettings       `json:"aiSettings"`
	HasSettings bool                    `json:"hasAiSettings"`
	Reviews     []domain.AIReview       `json:"reviews"`
	Analytics   []domain.AnalyticsPoint `json:"analytics"`
	Similar     []domain.Listing        `json:"similar"`
}

// AISettingsView is the AI settings page payload.
type AISettingsView struct {
	Settings   domain.AISettings     `json:"settings"`
	Configured bool                  `json:"configured"`
	Strategies []domain.StrategyInfo `json:"strategies"`
}

// Contact is the owner contact revealed on request.
type Contact struct {
	ListingID  string `json:"listingId"`
	OwnerName  string `json:"ownerName"`
	OwnerPhone string `json:"ownerPhone"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
	PhoneViews int    `json:"phoneViews"`
}

// New constructs the service. Without a Store it opens the configured backend.
func New(cfg Config) (*App, error) {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.StorePath == "" {
			return nil, fmt.Errorf("store path required")
		}
		var err error
		// *rand.Rand is not goroutine safe; the store gets its own source.
		dataStore, err = store.Open(cfg.StoreBackend, cfg.StorePath,
			store.WithClock(now),
			store.WithRand(rand.New(rand.NewSource(seed+1))),
		)
		if err != nil {
			return nil, fmt.Errorf("init %s store: %w", cfg.StoreBackend, err)
		}
	}
	return &App{
		store: dataStore,
		now:   now,
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}

// Seed tops the store up to count listings with generated data. Stores that
// already hold count or more listings are left alone.
func (a *App) Seed(ctx context.Context, count int) (int, error) {
	existing, err := a.store.ListingCount()
	if err != nil {
		return 0, err
	}
	missing := count - existing
	if missing <= 0 {
		return 0, nil
	}

	// Generate the full batch and skip what already exists so a fixed seed
	// resumes a partial run instead of repeating its ids.
	a.mu.Lock()
	seeds, err := generator.New(generator.Config{Rand: a.rng, Now: a.now()}).Batch(count)
	a.mu.Unlock()
	if err != nil {
		return 0, err
	}
	seeds = seeds[existing:]

	for i, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := a.store.InsertListing(seed.Listing); err != nil {
			return i, fmt.Errorf("seed listing %s: %w", seed.Listing.ID, err)
		}
		if seed.Settings != nil {
			if _, err := a.store.UpsertAISettings(seed.Listing.ID, *seed.Settings, nil); err != nil {
				return i, fmt.Errorf("seed ai settings %s: %w", seed.Listing.ID, err)
			}
		}
		if len(seed.Reviews) > 0 {
			if err := a.store.AppendReviews(seed.Listing.ID, seed.Reviews); err != nil {
				return i, fmt.Errorf("seed reviews %s: %w", seed.Listing.ID, err)
			}
		}
	}
	util.LoggerFromContext(ctx).Info("store_seeded", "existing", existing, "added", len(seeds))
	return len(seeds), nil
}

// Home returns the premium showcase and the catalog overview.
func (a *App) Home() (HomePage, error) {
	premium, err := a.store.PremiumListings(HomePremiumLimit)
	if err != nil {
		return HomePage{}, err
	}
	overview, err := a.store.Overview()
	if err != nil {
		return HomePage{}, err
	}
	return HomePage{Premium: premium, Overview: overview}, nil
}

// ListListings returns one filtered page with district and metro choices.
func (a *App) ListListings(f domain.ListingFilter, p domain.Page) (ListingsPage, error) {
	page, err := a.store.ListListings(f, p)
	if err != nil {
		return ListingsPage{}, err
	}
	districts, err := a.store.Districts()
	if err != nil {
		return ListingsPage{}, err
	}
	metros, err := a.store.Metros()
	if err != nil {
		return ListingsPage{}, err
	}
	return ListingsPage{
		Items:      page.Items,
		Page:       p.Number,
		PerPage:    p.PerPage,
		TotalCount: page.Total,
		TotalPages: query.TotalPages(page.Total, p.PerPage),
		Districts:  districts,
		Metros:     metros,
	}, nil
}

// GetListingDetail loads a listing page and counts the view. The returned
// listing carries the counters as read before this view.
func (a *App) GetListingDetail(ctx context.Context, id string) (ListingDetail, error) {
	listing, err := a.store.GetListing(id)
	if err != nil {
		return ListingDetail{}, err
	}

	detail := ListingDetail{Listing: listing}
	var g errgroup.Group
	g.Go(func() error {
		return a.store.IncrementViews(id)
	})
	g.Go(func() error {
		settings, ok, err := a.store.GetAISettings(id)
		if err != nil {
			return err
		}
		if !ok {
			settings = domain.DefaultAISettings(id)
		}
		detail.Settings, detail.HasSettings = settings, ok
		return nil
	})
	g.Go(func() error {
		reviews, err := a.store.RecentReviews(id, DetailReviewLimit)
		detail.Reviews = reviews
		return err
	})
	g.Go(func() error {
		points, err := a.store.RecentAnalytics(id, domain.PeriodMonthly, DetailAnalyticsLimit)
		detail.Analytics = points
		return err
	})
	g.Go(func() error {
		similar, err := a.store.SimilarListings(listing, SimilarLimit)
		detail.Similar = similar
		return err
	})
	if err := g.Wait(); err != nil {
		return ListingDetail{}, err
	}
	util.LoggerFromContext(ctx).Debug("listing_viewed", "listing_id", id, "similar", len(detail.Similar))
	return detail, nil
}

// CreateListing stores a new listing. Strategies on the draft become its AI
// settings in the same write.
func (a *App) CreateListing(ctx context.Context, draft domain.ListingDraft) (domain.Listing, error) {
	if _, err := domain.NormalizeStrategies(draft.AIStrategies); err != nil {
		return domain.Listing{}, err
	}
	if len(draft.Photos) == 0 {
		draft.Photos = []string{generator.DefaultPhoto()}
	}
	listing, err := a.store.CreateListing(draft)
	if err != nil {
		util.LoggerFromContext(ctx).Error("listing_create_failed", "err", err)
		return domain.Listing{}, err
	}
	util.LoggerFromContext(ctx).Info("listing_created", "listing_id", listing.ID, "ai_enabled", listing.IsAIEnabled)
	return listing, nil
}

// AISettings returns stored settings, or defaults for listings without any.
func (a *App) AISettings(id string) (AISettingsView, error) {
	if _, err := a.store.GetListing(id); err != nil {
		return AISettingsView{}, err
	}
	settings, ok, err := a.store.GetAISettings(id)
	if err != nil {
		return AISettingsView{}, err
	}
	if !ok {
		settings = domain.DefaultAISettings(id)
	}
	return AISettingsView{Settings: settings, Configured: ok, Strategies: a.Strategies()}, nil
}

// UpdateAISettings replaces a listing's AI settings. With analytics enabled
// each save appends a fresh monthly analytics batch.
func (a *App) UpdateAISettings(ctx context.Context, id string, in domain.AISettings) (domain.AISettings, error) {
	var batch []domain.AnalyticsPoint
	if in.AnalyticsEnabled {
		a.mu.Lock()
		batch = generator.New(generator.Config{Rand: a.rng, Now: a.now()}).AnalyticsBatch(id, a.now())
		a.mu.Unlock()
	}
	saved, err := a.store.UpsertAISettings(id, in, batch)
	if err != nil {
		return domain.AISettings{}, err
	}
	util.LoggerFromContext(ctx).Info("ai_settings_saved",
		"listing_id", id,
		"strategies", len(saved.Strategies),
		"analytics_points", len(batch),
	)
	return saved, nil
}

// RevealPhone counts a phone reveal and returns the owner contact.
func (a *App) RevealPhone(id string) (Contact, error) {
	if err := a.store.IncrementPhoneViews(id); err != nil {
		return Contact{}, err
	}
	l, err := a.store.GetListing(id)
	if err != nil {
		return Contact{}, err
	}
	return Contact{
		ListingID:  l.ID,
		OwnerName:  l.OwnerName,
		OwnerPhone: l.OwnerPhone,
		OwnerEmail: l.OwnerEmail,
		PhoneViews: l.PhoneViews,
	}, nil
}

// Stats reports AI adoption across the catalog.
func (a *App) Stats() (domain.AIStats, error) {
	return a.store.AIStats()
}

// Strategies returns the strategy catalog in display order.
func (a *App) Strategies() []domain.StrategyInfo {
	return append([]domain.StrategyInfo(nil), domain.StrategyCatalog...)
}
