package store

import (
	"fmt"
	"strings"

	"rentalai/pkg/domain"
)

// Store defines persistence operations for listings and their AI companions.
// Implementations return errors wrapping domain.ErrValidation,
// domain.ErrNotFound or domain.ErrStorage.
type Store interface {
	// listings
	CreateListing(draft domain.ListingDraft) (domain.Listing, error)
	InsertListing(l domain.Listing) error
	GetListing(id string) (domain.Listing, error)
	IncrementViews(id string) error
	IncrementPhoneViews(id string) error
	ListListings(f domain.ListingFilter, p domain.Page) (domain.ListingPage, error)
	SimilarListings(ref domain.Listing, limit int) ([]domain.Listing, error)
	PremiumListings(limit int) ([]domain.Listing, error)
	Districts() ([]string, error)
	Metros() ([]string, error)
	ListingCount() (int, error)
	Overview() (domain.Overview, error)

	// ai settings
	UpsertAISettings(id string, s domain.AISettings, analytics []domain.AnalyticsPoint) (domain.AISettings, error)
	GetAISettings(id string) (domain.AISettings, bool, error)
	AIStats() (domain.AIStats, error)

	// logs
	AppendReviews(id string, reviews []domain.AIReview) error
	RecentReviews(id string, limit int) ([]domain.AIReview, error)
	RecentAnalytics(id string, period domain.Period, limit int) ([]domain.AnalyticsPoint, error)

	Close() error
}

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Open builds the backend named by kind at path.
func Open(kind, path string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case BackendSQLite, "sql", "gorm":
		return NewGormStore(path, opts...)
	case BackendFile, "json", "document":
		return NewFileStore(path, opts...)
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}
