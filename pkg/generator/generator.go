// Package generator produces synthetic listings for seeding and demos.
// Output is a pure function of the configured random source and clock.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"rentalai/pkg/domain"
)

const (
	defaultPremiumRate = 0.3
	defaultAIRate      = 0.5
	defaultReviewRate  = 0.4
	historyPoints      = 5
)

// Config controls a Generator. Zero rates fall back to the defaults.
type Config struct {
	Rand        *rand.Rand
	Now         time.Time
	PremiumRate float64
	AIRate      float64
	ReviewRate  float64
}

// Seed is one generated listing with its optional AI companions.
type Seed struct {
	Listing  domain.Listing     `json:"listing"`
	Settings *domain.AISettings `json:"aiSettings,omitempty"`
	Reviews  []domain.AIReview  `json:"reviews,omitempty"`
}

// Generator is not safe for concurrent use.
type Generator struct {
	rng         *rand.Rand
	now         time.Time
	premiumRate float64
	aiRate      float64
	reviewRate  float64
}

// New returns a Generator. A nil Rand is seeded from the clock and a zero Now
// means the current time.
func New(cfg Config) *Generator {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	g := &Generator{
		rng:         rng,
		now:         now.UTC(),
		premiumRate: cfg.PremiumRate,
		aiRate:      cfg.AIRate,
		reviewRate:  cfg.ReviewRate,
	}
	if g.premiumRate <= 0 {
		g.premiumRate = defaultPremiumRate
	}
	if g.aiRate <= 0 {
		g.aiRate = defaultAIRate
	}
	if g.reviewRate <= 0 {
		g.reviewRate = defaultReviewRate
	}
	return g
}

// Batch generates n seeds.
func (g *Generator) Batch(n int) ([]Seed, error) {
	out := make([]Seed, 0, max(n, 0))
	for i := 0; i < n; i++ {
		s, err := g.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Next generates a single listing, plus settings when it is AI enabled and
// reviews for a share of listings.
func (g *Generator) Next() (Seed, error) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return Seed{}, fmt.Errorf("generate id: %w", err)
	}
	d := districts[g.rng.Intn(len(districts))]
	metro := pick(g.rng, d.Metros)
	rooms := pick(g.rng, roomWeights)
	price := int(25000*float64(rooms)*d.Multiplier) + g.between(-3000, 8000)
	created := g.now.Add(-time.Duration(g.between(0, 90)) * 24 * time.Hour)

	history := make([]domain.PricePoint, 0, historyPoints)
	for j := historyPoints - 1; j >= 0; j-- {
		history = append(history, domain.PricePoint{
			Date:  created.Add(-time.Duration(j*7) * 24 * time.Hour),
			Price: price + g.between(-2000, 2000),
		})
	}

	l := domain.Listing{
		ID:            id.String(),
		Title:         fmt.Sprintf("%d-комнатная квартира, %s, м. %s", rooms, d.Name, metro),
		Description:   g.description(rooms, d.Name, metro),
		Price:         price,
		PriceHistory:  history,
		Rooms:         rooms,
		Area:          float64(rooms*25 + g.between(10, 30)),
		Address:       fmt.Sprintf("г. Москва, %s, ул. %s, д. %d", d.Name, pick(g.rng, streets), g.between(1, 150)),
		District:      d.Name,
		Metro:         metro,
		MetroDistance: fmt.Sprintf("%d минут пешком", pick(g.rng, walkMinutes)),
		Photos:        sample(g.rng, photoPool, g.between(3, len(photoPool))),
		Amenities:     sample(g.rng, amenityPool, g.between(4, 12)),
		IsActive:      true,
		IsPremium:     g.rng.Float64() < g.premiumRate,
		AIStrategies:  []domain.Strategy{},
		Views:         g.between(50, 500),
		PhoneViews:    g.between(5, 50),
		OwnerName:     pick(g.rng, ownerNames),
		OwnerPhone:    fmt.Sprintf("+7 (9%02d) %03d-%02d-%02d", g.between(10, 99), g.between(100, 999), g.between(10, 99), g.between(10, 99)),
		OwnerEmail:    fmt.Sprintf("owner%d@example.com", g.between(1, 1000)),
		CreatedAt:     created,
		UpdatedAt:     g.now,
	}
	seed := Seed{Listing: l}

	if g.rng.Float64() < g.aiRate {
		strategies := sample(g.rng, seedStrategies, g.between(1, 3))
		settings := domain.AISettings{
			ListingID:            l.ID,
			Strategies:           strategies,
			AutoReviews:          g.rng.Float64() > 0.3,
			AutoMessages:         g.rng.Float64() > 0.2,
			AnalyticsEnabled:     g.rng.Float64() > 0.1,
			NotificationsEnabled: g.rng.Float64() > 0.1,
			PriceOptimization:    domain.HasStrategy(strategies, domain.StrategyPriceOptimization),
			CompetitorAnalysis:   domain.HasStrategy(strategies, domain.StrategyCompetitorAnalysis),
			CreatedAt:            created,
			UpdatedAt:            g.now,
		}
		domain.SyncAIFlags(&seed.Listing, settings, g.now)
		seed.Settings = &settings
	}

	if g.rng.Float64() < g.reviewRate {
		n := g.between(1, 4)
		seed.Reviews = make([]domain.AIReview, 0, n)
		for i := 0; i < n; i++ {
			at := created.Add(time.Duration(g.between(1, 30)) * 24 * time.Hour)
			if at.After(g.now) {
				at = g.now
			}
			seed.Reviews = append(seed.Reviews, domain.AIReview{
				ListingID:     l.ID,
				Text:          pick(g.rng, reviewTexts),
				Rating:        g.between(4, 5),
				AuthorName:    pick(g.rng, reviewAuthors),
				IsAIGenerated: true,
				CreatedAt:     at,
			})
		}
	}
	return seed, nil
}

// AnalyticsBatch returns one monthly point per metric recorded at at.
func (g *Generator) AnalyticsBatch(listingID string, at time.Time) []domain.AnalyticsPoint {
	values := map[domain.Metric]float64{
		domain.MetricViews:             float64(g.between(50, 200)),
		domain.MetricContacts:          float64(g.between(5, 20)),
		domain.MetricConversion:        g.uniform(0.1, 0.3),
		domain.MetricAvgResponseTime:   g.uniform(1, 12),
		domain.MetricSatisfactionScore: g.uniform(3.5, 5.0),
	}
	out := make([]domain.AnalyticsPoint, 0, len(domain.Metrics))
	for _, m := range domain.Metrics {
		out = append(out, domain.AnalyticsPoint{
			ListingID:  listingID,
			Metric:     m,
			Value:      values[m],
			Period:     domain.PeriodMonthly,
			RecordedAt: at.UTC(),
		})
	}
	return out
}

func (g *Generator) description(rooms int, districtName, metro string) string {
	switch g.rng.Intn(3) {
	case 0:
		return fmt.Sprintf("Просторная %d-комнатная квартира с современным ремонтом в районе %s. Рядом станция метро %s (%d минут пешком). Идеально подходит для %s.",
			rooms, districtName, metro, pick(g.rng, walkMinutes), pick(g.rng, audiences))
	case 1:
		return fmt.Sprintf("Уютная %d-комнатная квартира в экологически чистом районе. Современная планировка, все необходимое для комфортного проживания. Развитая инфраструктура, хорошая транспортная доступность.", rooms)
	default:
		return fmt.Sprintf("Светлая %d-комнатная квартира с панорамными окнами. Качественный евроремонт, новая техника. %s. Отличный вариант для постоянного проживания.",
			rooms, pick(g.rng, yards))
	}
}

// between returns a uniform int in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

// sample draws n distinct items, keeping draw order.
func sample[T any](rng *rand.Rand, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	idx := rng.Perm(len(items))[:n]
	out := make([]T, 0, n)
	for _, i := range idx {
		out = append(out, items[i])
	}
	return out
}
