package domain

import "time"

type Strategy string

const (
	StrategyPriceOptimization  Strategy = "price_optimization"
	StrategyCompetitorAnalysis Strategy = "competitor_analysis"
	StrategyDemandPrediction   Strategy = "demand_prediction"
	StrategyReviewGeneration   Strategy = "review_generation"
	StrategyAutoMessaging      Strategy = "auto_messaging"
	StrategyAnalytics          Strategy = "analytics"
)

type Metric string

const (
	MetricViews             Metric = "views"
	MetricContacts          Metric = "contacts"
	MetricConversion        Metric = "conversion"
	MetricAvgResponseTime   Metric = "avg_response_time"
	MetricSatisfactionScore Metric = "satisfaction_score"
)

// Metrics lists every analytics metric in batch order.
var Metrics = []Metric{
	MetricViews,
	MetricContacts,
	MetricConversion,
	MetricAvgResponseTime,
	MetricSatisfactionScore,
}

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

type PricePoint struct {
	Date  time.Time `json:"date"`
	Price int       `json:"price"`
}

type Listing struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Price         int          `json:"price"`
	PriceHistory  []PricePoint `json:"priceHistory"`
	Rooms         int          `json:"rooms"`
	Area          float64      `json:"area"`
	Address       string       `json:"address"`
	District      string       `json:"district"`
	Metro         string       `json:"metro"`
	MetroDistance string       `json:"metroDistance,omitempty"`
	Photos        []string     `json:"photos"`
	Amenities     []string     `json:"amenities"`
	IsActive      bool         `json:"isActive"`
	IsPremium     bool         `json:"isPremium"`
	IsAIEnabled   bool         `json:"isAiEnabled"`
	AIStrategies  []Strategy   `json:"aiStrategies"`
	Views         int          `json:"views"`
	PhoneViews    int          `json:"phoneViews"`
	OwnerName     string       `json:"ownerName"`
	OwnerPhone    string       `json:"ownerPhone"`
	OwnerEmail    string       `json:"ownerEmail,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// ListingDraft is the user-supplied part of a new listing.
type ListingDraft struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         int        `json:"price"`
	Rooms         int        `json:"rooms"`
	Area          float64    `json:"area"`
	Address       string     `json:"address"`
	District      string     `json:"district"`
	Metro         string     `json:"metro"`
	MetroDistance string     `json:"metroDistance,omitempty"`
	Photos        []string   `json:"photos"`
	Amenities     []string   `json:"amenities"`
	OwnerName     string     `json:"ownerName"`
	OwnerPhone    string     `json:"ownerPhone"`
	OwnerEmail    string     `json:"ownerEmail,omitempty"`
	AIStrategies  []Strategy `json:"aiStrategies"`
}

type AISettings struct {
	ListingID            string     `json:"listingId"`
	Strategies           []Strategy `json:"strategies"`
	AutoReviews          bool       `json:"autoReviews"`
	AutoMessages         bool       `json:"autoMessages"`
	AnalyticsEnabled     bool       `json:"analyticsEnabled"`
	NotificationsEnabled bool       `json:"notificationsEnabled"`
	PriceOptimization    bool       `json:"priceOptimization"`
	CompetitorAnalysis   bool       `json:"competitorAnalysis"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type AIReview struct {
	ListingID     string    `json:"listingId"`
	Text          string    `json:"text"`
	Rating        int       `json:"rating"`
	AuthorName    string    `json:"authorName"`
	IsAIGenerated bool      `json:"isAiGenerated"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AnalyticsPoint struct {
	ListingID  string    `json:"listingId"`
	Metric     Metric    `json:"metric"`
	Value      float64   `json:"value"`
	Period     Period    `json:"period"`
	RecordedAt time.Time `json:"recordedAt"`
}

// ListingFilter holds optional predicates; nil means no constraint.
type ListingFilter struct {
	MinPrice  *int
	MaxPrice  *int
	Rooms     *int
	District  *string
	Metro     *string
	AIEnabled *bool
}

type Page struct {
	Number  int
	PerPage int
}

type ListingPage struct {
	Items []Listing
	Total int
}

type AIStats struct {
	TotalAIEnabled     int              `json:"totalAiEnabled"`
	TotalAISettings    int              `json:"totalAiSettings"`
	StrategyPopularity map[Strategy]int `json:"strategyPopularity"`
}

// Overview summarizes active listings for the home page.
type Overview struct {
	TotalListings   int `json:"totalListings"`
	AIEnabled       int `json:"aiEnabled"`
	AveragePrice    int `json:"averagePrice"`
	AISettingsCount int `json:"aiSettingsCount"`
}
