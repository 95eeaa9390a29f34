package domain

import (
	"errors"
	"testing"
	"time"
)

func validDraft() ListingDraft {
	return ListingDraft{
		Title:      "2-комнатная квартира",
		Price:      50000,
		Rooms:      2,
		Area:       54.5,
		District:   "ЦАО",
		Metro:      "Арбатская",
		OwnerName:  "Анна Петрова",
		OwnerPhone: "+7 (916) 123-45-67",
	}
}

func TestNewListingInitializesCounters(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l, err := NewListing(validDraft(), "id-1", now)
	if err != nil {
		t.Fatalf("new listing: %v", err)
	}
	if !l.IsActive || l.Views != 0 || l.PhoneViews != 0 {
		t.Fatalf("unexpected initial state: %+v", l)
	}
	if !l.CreatedAt.Equal(now) || !l.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not set to now")
	}
	if len(l.PriceHistory) != 1 || l.PriceHistory[0].Price != 50000 {
		t.Fatalf("unexpected price history: %+v", l.PriceHistory)
	}
	if l.IsAIEnabled || len(l.AIStrategies) != 0 {
		t.Fatalf("AI flags must start cleared")
	}
}

func TestNewListingRejectsOutOfRange(t *testing.T) {
	cases := map[string]func(*ListingDraft){
		"negative price": func(d *ListingDraft) { d.Price = -100 },
		"zero rooms":     func(d *ListingDraft) { d.Rooms = 0 },
		"zero area":      func(d *ListingDraft) { d.Area = 0 },
		"bad strategy":   func(d *ListingDraft) { d.AIStrategies = []Strategy{"mind_reading"} },
	}
	for name, mutate := range cases {
		d := validDraft()
		mutate(&d)
		if _, err := NewListing(d, "id", time.Now()); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestNormalizeStrategiesDeduplicates(t *testing.T) {
	got, err := NormalizeStrategies([]Strategy{"analytics", " analytics ", "", "auto_messaging"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(got) != 2 || got[0] != StrategyAnalytics || got[1] != StrategyAutoMessaging {
		t.Fatalf("unexpected strategies: %v", got)
	}
}

func TestSyncAIFlags(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := Listing{CreatedAt: created, UpdatedAt: created}
	SyncAIFlags(&l, AISettings{Strategies: []Strategy{StrategyAnalytics}}, created.Add(time.Hour))
	if !l.IsAIEnabled || len(l.AIStrategies) != 1 {
		t.Fatalf("expected AI enabled, got %+v", l)
	}
	SyncAIFlags(&l, AISettings{}, created.Add(-time.Hour))
	if l.IsAIEnabled || len(l.AIStrategies) != 0 {
		t.Fatalf("expected AI disabled, got %+v", l)
	}
	if l.UpdatedAt.Before(l.CreatedAt) {
		t.Fatalf("updatedAt precedes createdAt")
	}
}

func TestSettingsFromStrategies(t *testing.T) {
	s := SettingsFromStrategies("id", []Strategy{StrategyReviewGeneration, StrategyPriceOptimization})
	if !s.AutoReviews || !s.PriceOptimization || s.AutoMessages || s.CompetitorAnalysis || s.AnalyticsEnabled {
		t.Fatalf("unexpected derived settings: %+v", s)
	}
	if !s.NotificationsEnabled {
		t.Fatalf("notifications should default on")
	}
}
