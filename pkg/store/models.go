package store

import (
	"time"

	"gorm.io/datatypes"

	"rentalai/pkg/domain"
)

// GORM models used for persistence.
type ListingModel struct {
	ID            string                                 `gorm:"primaryKey"`
	Title         string                                 `gorm:"not null"`
	Description   string                                 `gorm:"type:text"`
	Price         int                                    `gorm:"not null;index"`
	PriceHistory  datatypes.JSONSlice[domain.PricePoint] `gorm:"column:price_history"`
	Rooms         int                                    `gorm:"not null;index"`
	Area          float64                                `gorm:"not null"`
	Address       string                                 `gorm:"column:address"`
	District      string                                 `gorm:"index"`
	Metro         string                                 `gorm:"column:metro"`
	MetroDistance string                                 `gorm:"column:metro_distance"`
	Photos        datatypes.JSONSlice[string]            `gorm:"column:photos"`
	Amenities     datatypes.JSONSlice[string]            `gorm:"column:amenities"`
	IsActive      bool                                   `gorm:"not null;index"`
	IsPremium     bool                                   `gorm:"not null"`
	IsAIEnabled   bool                                   `gorm:"column:is_ai_enabled;not null"`
	AIStrategies  datatypes.JSONSlice[domain.Strategy]   `gorm:"column:ai_strategies"`
	Views         int                                    `gorm:"not null"`
	PhoneViews    int                                    `gorm:"not null"`
	OwnerName     string                                 `gorm:"column:owner_name"`
	OwnerPhone    string                                 `gorm:"column:owner_phone"`
	OwnerEmail    string                                 `gorm:"column:owner_email"`
	CreatedAt     time.Time                              `gorm:"not null;index"`
	UpdatedAt     time.Time                              `gorm:"not null"`
}

type AISettingsModel struct {
	ListingID            string                               `gorm:"primaryKey"`
	Strategies           datatypes.JSONSlice[domain.Strategy] `gorm:"not null"`
	AutoReviews          bool                                 `gorm:"not null"`
	AutoMessages         bool                                 `gorm:"not null"`
	AnalyticsEnabled     bool                                 `gorm:"not null"`
	NotificationsEnabled bool                                 `gorm:"not null"`
	PriceOptimization    bool                                 `gorm:"not null"`
	CompetitorAnalysis   bool                                 `gorm:"not null"`
	CreatedAt            time.Time                            `gorm:"not null"`
	UpdatedAt            time.Time                            `gorm:"not null"`
}

type AIReviewModel struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	ListingID     string    `gorm:"not null;index"`
	Text          string    `gorm:"type:text;not null"`
	Rating        int       `gorm:"not null"`
	AuthorName    string    `gorm:"not null"`
	IsAIGenerated bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

type AnalyticsModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ListingID  string    `gorm:"not null;index"`
	Metric     string    `gorm:"not null"`
	Value      float64   `gorm:"not null"`
	Period     string    `gorm:"not null;index"`
	RecordedAt time.Time `gorm:"not null;index"`
}

func listingToModel(l domain.Listing) ListingModel {
	return ListingModel{
		ID:            l.ID,
		Title:         l.Title,
		Description:   l.Description,
		Price:         l.Price,
		PriceHistory:  datatypes.JSONSlice[domain.PricePoint](l.PriceHistory),
		Rooms:         l.Rooms,
		Area:          l.Area,
		Address:       l.Address,
		District:      l.District,
		Metro:         l.Metro,
		MetroDistance: l.MetroDistance,
		Photos:        datatypes.JSONSlice[string](l.Photos),
		Amenities:     datatypes.JSONSlice[string](l.Amenities),
		IsActive:      l.IsActive,
		IsPremium:     l.IsPremium,
		IsAIEnabled:   l.IsAIEnabled,
		AIStrategies:  datatypes.JSONSlice[domain.Strategy](l.AIStrategies),
		Views:         l.Views,
		PhoneViews:    l.PhoneViews,
		OwnerName:     l.OwnerName,
		OwnerPhone:    l.OwnerPhone,
		OwnerEmail:    l.OwnerEmail,
		CreatedAt:     l.CreatedAt.UTC(),
		UpdatedAt:     l.UpdatedAt.UTC(),
	}
}

func listingFromModel(m ListingModel) domain.Listing {
	history := []domain.PricePoint(m.PriceHistory)
	if history == nil {
		history = []domain.PricePoint{}
	}
	strategies := []domain.Strategy(m.AIStrategies)
	if strategies == nil {
		strategies = []domain.Strategy{}
	}
	return domain.Listing{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		Price:         m.Price,
		PriceHistory:  history,
		Rooms:         m.Rooms,
		Area:          m.Area,
		Address:       m.Address,
		District:      m.District,
		Metro:         m.Metro,
		MetroDistance: m.MetroDistance,
		Photos:        stringsOrEmpty(m.Photos),
		Amenities:     stringsOrEmpty(m.Amenities),
		IsActive:      m.IsActive,
		IsPremium:     m.IsPremium,
		IsAIEnabled:   m.IsAIEnabled,
		AIStrategies:  strategies,
		Views:         m.Views,
		PhoneViews:    m.PhoneViews,
		OwnerName:     m.OwnerName,
		OwnerPhone:    m.OwnerPhone,
		OwnerEmail:    m.OwnerEmail,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

func settingsToModel(s domain.AISettings) AISettingsModel {
	strategies := s.Strategies
	if strategies == nil {
		strategies = []domain.Strategy{}
	}
	return AISettingsModel{
		ListingID:            s.ListingID,
		Strategies:           datatypes.JSONSlice[domain.Strategy](strategies),
		AutoReviews:          s.AutoReviews,
		AutoMessages:         s.AutoMessages,
		AnalyticsEnabled:     s.AnalyticsEnabled,
		NotificationsEnabled: s.NotificationsEnabled,
		PriceOptimization:    s.PriceOptimization,
		CompetitorAnalysis:   s.CompetitorAnalysis,
		CreatedAt:            s.CreatedAt.UTC(),
		UpdatedAt:            s.UpdatedAt.UTC(),
	}
}

func settingsFromModel(m AISettingsModel) domain.AISettings {
	strategies := []domain.Strategy(m.Strategies)
	if strategies == nil {
		strategies = []domain.Strategy{}
	}
	return domain.AISettings{
		ListingID:            m.ListingID,
		Strategies:           strategies,
		AutoReviews:          m.AutoReviews,
		AutoMessages:         m.AutoMessages,
		AnalyticsEnabled:     m.AnalyticsEnabled,
		NotificationsEnabled: m.NotificationsEnabled,
		PriceOptimization:    m.PriceOptimization,
		CompetitorAnalysis:   m.CompetitorAnalysis,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
}

func reviewToModel(r domain.AIReview) AIReviewModel {
	return AIReviewModel{
		ListingID:     r.ListingID,
		Text:          r.Text,
		Rating:        r.Rating,
		AuthorName:    r.AuthorName,
		IsAIGenerated: r.IsAIGenerated,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

func reviewFromModel(m AIReviewModel) domain.AIReview {
	return domain.AIReview{
		ListingID:     m.ListingID,
		Text:          m.Text,
		Rating:        m.Rating,
		AuthorName:    m.AuthorName,
		IsAIGenerated: m.IsAIGenerated,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func analyticsToModel(p domain.AnalyticsPoint) AnalyticsModel {
	return AnalyticsModel{
		ListingID:  p.ListingID,
		Metric:     string(p.Metric),
		Value:      p.Value,
		Period:     string(p.Period),
		RecordedAt: p.RecordedAt.UTC(),
	}
}

func analyticsFromModel(m AnalyticsModel) domain.AnalyticsPoint {
	return domain.AnalyticsPoint{
		ListingID:  m.ListingID,
		Metric:     domain.Metric(m.Metric),
		Value:      m.Value,
		Period:     domain.Period(m.Period),
		RecordedAt: m.RecordedAt.UTC(),
	}
}

func stringsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
