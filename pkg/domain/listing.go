package domain

import (
	"strings"
	"time"
)

// StrategyInfo describes a strategy for display.
type StrategyInfo struct {
	ID          Strategy `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

// StrategyCatalog is the closed strategy vocabulary in display order.
var StrategyCatalog = []StrategyInfo{
	{ID: StrategyPriceOptimization, Name: "Оптимизация цены", Description: "Автоматическая корректировка цены на основе спроса"},
	{ID: StrategyCompetitorAnalysis, Name: "Анализ конкурентов", Description: "Мониторинг цен конкурентов в районе"},
	{ID: StrategyDemandPrediction, Name: "Прогноз спроса", Description: "Предсказание лучшего времени для аренды"},
	{ID: StrategyReviewGeneration, Name: "Генерация отзывов", Description: "Автоматическое создание позитивных отзывов"},
	{ID: StrategyAutoMessaging, Name: "Автоответы на сообщения", Description: "ИИ отвечает на вопросы арендаторов"},
	{ID: StrategyAnalytics, Name: "Подробная аналитика", Description: "Ежемесячные отчеты и рекомендации"},
}

// IsKnownStrategy reports whether s belongs to the strategy vocabulary.
func IsKnownStrategy(s Strategy) bool {
	for _, info := range StrategyCatalog {
		if info.ID == s {
			return true
		}
	}
	return false
}

// NormalizeStrategies trims and de-duplicates tags, keeping first occurrence.
// Unknown tags are rejected.
func NormalizeStrategies(in []Strategy) ([]Strategy, error) {
	out := make([]Strategy, 0, len(in))
	seen := make(map[Strategy]struct{}, len(in))
	for _, raw := range in {
		s := Strategy(strings.TrimSpace(string(raw)))
		if s == "" {
			continue
		}
		if !IsKnownStrategy(s) {
			return nil, Invalid("strategy", "unknown: "+string(s))
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// HasStrategy reports whether list contains s.
func HasStrategy(list []Strategy, s Strategy) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// ValidateListing checks the rules every stored listing must satisfy.
func ValidateListing(l Listing) error {
	if strings.TrimSpace(l.ID) == "" {
		return Invalid("id", "is required")
	}
	if l.Price < 0 {
		return Invalid("price", "must be >= 0")
	}
	if l.Rooms < 1 {
		return Invalid("rooms", "must be >= 1")
	}
	if l.Area <= 0 {
		return Invalid("area", "must be > 0")
	}
	if l.Views < 0 || l.PhoneViews < 0 {
		return Invalid("views", "must be >= 0")
	}
	if l.UpdatedAt.Before(l.CreatedAt) {
		return Invalid("updatedAt", "must not precede createdAt")
	}
	for _, s := range l.AIStrategies {
		if !IsKnownStrategy(s) {
			return Invalid("strategy", "unknown: "+string(s))
		}
	}
	return nil
}

// NewListing builds a fresh active listing from a draft.
// AI flags start cleared; they are set only through AI settings.
func NewListing(d ListingDraft, id string, now time.Time) (Listing, error) {
	if _, err := NormalizeStrategies(d.AIStrategies); err != nil {
		return Listing{}, err
	}
	now = now.UTC()
	l := Listing{
		ID:            id,
		Title:         strings.TrimSpace(d.Title),
		Description:   strings.TrimSpace(d.Description),
		Price:         d.Price,
		PriceHistory:  []PricePoint{{Date: now, Price: d.Price}},
		Rooms:         d.Rooms,
		Area:          d.Area,
		Address:       strings.TrimSpace(d.Address),
		District:      strings.TrimSpace(d.District),
		Metro:         strings.TrimSpace(d.Metro),
		MetroDistance: strings.TrimSpace(d.MetroDistance),
		Photos:        nonNil(d.Photos),
		Amenities:     nonNil(d.Amenities),
		IsActive:      true,
		AIStrategies:  []Strategy{},
		OwnerName:     strings.TrimSpace(d.OwnerName),
		OwnerPhone:    strings.TrimSpace(d.OwnerPhone),
		OwnerEmail:    strings.TrimSpace(d.OwnerEmail),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := ValidateListing(l); err != nil {
		return Listing{}, err
	}
	return l, nil
}

// SyncAIFlags mirrors settings onto the listing's denormalized AI fields.
// Every write path touching AI settings goes through here.
func SyncAIFlags(l *Listing, s AISettings, now time.Time) {
	l.AIStrategies = append([]Strategy{}, s.Strategies...)
	l.IsAIEnabled = len(s.Strategies) > 0
	now = now.UTC()
	if now.Before(l.CreatedAt) {
		now = l.CreatedAt
	}
	l.UpdatedAt = now
}

// DefaultAISettings returns the settings shown for listings that have none.
func DefaultAISettings(listingID string) AISettings {
	return AISettings{
		ListingID:            listingID,
		Strategies:           []Strategy{},
		AutoMessages:         true,
		AnalyticsEnabled:     true,
		NotificationsEnabled: true,
	}
}

// SettingsFromStrategies derives sub-options from the chosen strategies.
func SettingsFromStrategies(listingID string, strategies []Strategy) AISettings {
	return AISettings{
		ListingID:            listingID,
		Strategies:           strategies,
		AutoReviews:          HasStrategy(strategies, StrategyReviewGeneration),
		AutoMessages:         HasStrategy(strategies, StrategyAutoMessaging),
		AnalyticsEnabled:     HasStrategy(strategies, StrategyAnalytics),
		NotificationsEnabled: true,
		PriceOptimization:    HasStrategy(strategies, StrategyPriceOptimization),
		CompetitorAnalysis:   HasStrategy(strategies, StrategyCompetitorAnalysis),
	}
}

// DraftSettings returns the AI settings a listing created from d starts with
// and syncs l's AI fields to them. It returns nil when d picks no strategies.
func DraftSettings(l *Listing, d ListingDraft, now time.Time) (*AISettings, error) {
	strategies, err := NormalizeStrategies(d.AIStrategies)
	if err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		return nil, nil
	}
	prepared, err := PrepareSettings(l.ID, SettingsFromStrategies(l.ID, strategies), nil, now)
	if err != nil {
		return nil, err
	}
	SyncAIFlags(l, prepared, now)
	return &prepared, nil
}

// PrepareSettings normalizes strategies and stamps timestamps for an upsert.
// prev is the existing row, if any, whose CreatedAt is preserved.
func PrepareSettings(listingID string, s AISettings, prev *AISettings, now time.Time) (AISettings, error) {
	strategies, err := NormalizeStrategies(s.Strategies)
	if err != nil {
		return AISettings{}, err
	}
	now = now.UTC()
	s.ListingID = listingID
	s.Strategies = strategies
	s.CreatedAt = now
	if prev != nil && !prev.CreatedAt.IsZero() {
		s.CreatedAt = prev.CreatedAt
	}
	s.UpdatedAt = now
	return s, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
