package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"rentalai/pkg/domain"
	"rentalai/pkg/query"
)

// GormStore implements Store using GORM + SQLite.
type GormStore struct {
	db   *gorm.DB
	opts options
}

// NewGormStore opens the SQLite database at path and runs auto-migrations.
// An empty path opens a private in-memory database.
func NewGormStore(path string, opts ...Option) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, domain.StorageErr("open db", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, domain.StorageErr("get sql db", err)
	}
	// SQLite allows one writer; a single connection serializes access and
	// keeps in-memory databases alive for the lifetime of the store.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&ListingModel{}, &AISettingsModel{}, &AIReviewModel{}, &AnalyticsModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, domain.StorageErr("auto migrate", err)
	}
	return &GormStore{db: db, opts: buildOptions(opts)}, nil
}

func sqliteDSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000"
}

// Close releases the underlying database handle.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return domain.StorageErr("get sql db", err)
	}
	return domain.StorageErr("close db", sqlDB.Close())
}

// CreateListing builds a listing from the draft and persists it together with
// the AI settings derived from the draft's strategies.
func (s *GormStore) CreateListing(d domain.ListingDraft) (domain.Listing, error) {
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
	err = s.db.Transaction(func(tx *gorm.DB) error {
		model := listingToModel(l)
		if err := tx.Create(&model).Error; err != nil {
			return domain.StorageErr("create listing", err)
		}
		if settings == nil {
			return nil
		}
		sm := settingsToModel(*settings)
		if err := tx.Create(&sm).Error; err != nil {
			return domain.StorageErr("create settings", err)
		}
		return nil
	})
	if err != nil {
		return domain.Listing{}, txErr("create listing", err)
	}
	return l, nil
}

// InsertListing stores a fully formed listing. Existing ids are rejected.
func (s *GormStore) InsertListing(l domain.Listing) error {
	if err := domain.ValidateListing(l); err != nil {
		return err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ListingModel{}).Where("id = ?", l.ID).Count(&count).Error; err != nil {
			return domain.StorageErr("check listing", err)
		}
		if count > 0 {
			return domain.Invalid("id", "already exists")
		}
		model := listingToModel(l)
		if err := tx.Create(&model).Error; err != nil {
			return domain.StorageErr("insert listing", err)
		}
		return nil
	})
	return txErr("insert listing", err)
}

// GetListing returns a listing by ID.
func (s *GormStore) GetListing(id string) (domain.Listing, error) {
	var model ListingModel
	if err := s.db.Take(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, domain.StorageErr("get listing", err)
	}
	return listingFromModel(model), nil
}

// IncrementViews bumps the view counter in a single UPDATE.
func (s *GormStore) IncrementViews(id string) error {
	return s.increment(id, "views")
}

// IncrementPhoneViews bumps the phone reveal counter in a single UPDATE.
func (s *GormStore) IncrementPhoneViews(id string) error {
	return s.increment(id, "phone_views")
}

func (s *GormStore) increment(id, column string) error {
	res := s.db.Model(&ListingModel{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return domain.StorageErr("increment "+column, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func filterScope(f domain.ListingFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("is_active = ?", true)
		if f.MinPrice != nil {
			db = db.Where("price >= ?", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			db = db.Where("price <= ?", *f.MaxPrice)
		}
		if f.Rooms != nil {
			db = db.Where("rooms = ?", *f.Rooms)
		}
		if f.District != nil {
			db = db.Where("district = ?", *f.District)
		}
		if f.Metro != nil {
			// instr is case-sensitive and treats the needle literally.
			db = db.Where("instr(metro, ?) > 0", *f.Metro)
		}
		if f.AIEnabled != nil {
			db = db.Where("is_ai_enabled = ?", *f.AIEnabled)
		}
		return db
	}
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("rowid ASC")
}

// ListListings filters active listings, newest first, one page at a time.
func (s *GormStore) ListListings(f domain.ListingFilter, p domain.Page) (domain.ListingPage, error) {
	if err := query.Validate(p); err != nil {
		return domain.ListingPage{}, err
	}
	var (
		total  int64
		models []ListingModel
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ListingModel{}).Scopes(filterScope(f)).Count(&total).Error; err != nil {
			return err
		}
		offset, ok := query.Offset(p)
		if !ok || int64(offset) >= total {
			return nil
		}
		return tx.Model(&ListingModel{}).
			Scopes(filterScope(f), newestFirst).
			Offset(offset).
			Limit(p.PerPage).
			Find(&models).Error
	})
	if err != nil {
		return domain.ListingPage{}, domain.StorageErr("list listings", err)
	}
	return domain.ListingPage{Items: listingsFromModels(models), Total: int(total)}, nil
}

// SimilarListings samples active listings sharing district and rooms with ref.
func (s *GormStore) SimilarListings(ref domain.Listing, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		return []domain.Listing{}, nil
	}
	var models []ListingModel
	if err := s.db.
		Where("is_active = ? AND district = ? AND rooms = ? AND id <> ?", true, ref.District, ref.Rooms, ref.ID).
		Order("RANDOM()").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, domain.StorageErr("similar listings", err)
	}
	return listingsFromModels(models), nil
}

// PremiumListings returns active premium listings, newest first.
func (s *GormStore) PremiumListings(limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		return []domain.Listing{}, nil
	}
	var models []ListingModel
	if err := s.db.
		Where("is_active = ? AND is_premium = ?", true, true).
		Scopes(newestFirst).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, domain.StorageErr("premium listings", err)
	}
	return listingsFromModels(models), nil
}

// Districts returns distinct non-empty districts in ascending order.
func (s *GormStore) Districts() ([]string, error) {
	return s.distinct("district")
}

// Metros returns distinct non-empty metro stations in ascending order.
func (s *GormStore) Metros() ([]string, error) {
	return s.distinct("metro")
}

func (s *GormStore) distinct(column string) ([]string, error) {
	out := []string{}
	if err := s.db.Model(&ListingModel{}).
		Where(column + " <> ''").
		Distinct().
		Order(column+" ASC").
		Pluck(column, &out).Error; err != nil {
		return nil, domain.StorageErr("distinct "+column, err)
	}
	return out, nil
}

// ListingCount returns the number of stored listings, active or not.
func (s *GormStore) ListingCount() (int, error) {
	var count int64
	if err := s.db.Model(&ListingModel{}).Count(&count).Error; err != nil {
		return 0, domain.StorageErr("count listings", err)
	}
	return int(count), nil
}

// Overview summarizes active listings for the home page.
func (s *GormStore) Overview() (domain.Overview, error) {
	var (
		total, aiEnabled, settings int64
		avg                        sql.NullFloat64
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ListingModel{}).Where("is_active = ?", true).Count(&total).Error; err != nil {
			return err
		}
		if err := tx.Model(&ListingModel{}).Where("is_active = ? AND is_ai_enabled = ?", true, true).Count(&aiEnabled).Error; err != nil {
			return err
		}
		if err := tx.Model(&ListingModel{}).Where("is_active = ?", true).Select("AVG(price)").Row().Scan(&avg); err != nil {
			return err
		}
		return tx.Model(&AISettingsModel{}).Count(&settings).Error
	})
	if err != nil {
		return domain.Overview{}, domain.StorageErr("overview", err)
	}
	out := domain.Overview{
		TotalListings:   int(total),
		AIEnabled:       int(aiEnabled),
		AISettingsCount: int(settings),
	}
	if avg.Valid {
		out.AveragePrice = int(math.Round(avg.Float64))
	}
	return out, nil
}

// UpsertAISettings creates or replaces the settings of a listing, mirrors the
// strategies onto the listing and appends analytics, all in one transaction.
func (s *GormStore) UpsertAISettings(id string, in domain.AISettings, analytics []domain.AnalyticsPoint) (domain.AISettings, error) {
	now := s.opts.now()
	var out domain.AISettings
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var lm ListingModel
		if err := tx.Take(&lm, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return domain.StorageErr("load listing", err)
		}
		var prev *domain.AISettings
		var pm AISettingsModel
		if err := tx.Take(&pm, "listing_id = ?", id).Error; err == nil {
			existing := settingsFromModel(pm)
			prev = &existing
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.StorageErr("load settings", err)
		}
		prepared, err := domain.PrepareSettings(id, in, prev, now)
		if err != nil {
			return err
		}
		model := settingsToModel(prepared)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}},
			UpdateAll: true,
		}).Create(&model).Error; err != nil {
			return domain.StorageErr("save settings", err)
		}

		l := listingFromModel(lm)
		domain.SyncAIFlags(&l, prepared, now)
		if err := tx.Model(&ListingModel{}).Where("id = ?", id).UpdateColumns(map[string]any{
			"is_ai_enabled": l.IsAIEnabled,
			"ai_strategies": datatypes.JSONSlice[domain.Strategy](l.AIStrategies),
			"updated_at":    l.UpdatedAt,
		}).Error; err != nil {
			return domain.StorageErr("sync listing flags", err)
		}

		if len(analytics) > 0 {
			models := make([]AnalyticsModel, 0, len(analytics))
			for _, p := range analytics {
				p.ListingID = id
				models = append(models, analyticsToModel(p))
			}
			if err := tx.Create(&models).Error; err != nil {
				return domain.StorageErr("append analytics", err)
			}
		}
		out = prepared
		return nil
	})
	if err != nil {
		return domain.AISettings{}, txErr("upsert settings", err)
	}
	return out, nil
}

// GetAISettings returns the settings of a listing, if any.
func (s *GormStore) GetAISettings(id string) (domain.AISettings, bool, error) {
	var model AISettingsModel
	if err := s.db.Take(&model, "listing_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AISettings{}, false, nil
		}
		return domain.AISettings{}, false, domain.StorageErr("get settings", err)
	}
	return settingsFromModel(model), true, nil
}

// AIStats aggregates AI adoption across all listings and settings.
func (s *GormStore) AIStats() (domain.AIStats, error) {
	var (
		enabled int64
		models  []AISettingsModel
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ListingModel{}).Where("is_ai_enabled = ?", true).Count(&enabled).Error; err != nil {
			return err
		}
		return tx.Select("listing_id", "strategies").Find(&models).Error
	})
	if err != nil {
		return domain.AIStats{}, domain.StorageErr("ai stats", err)
	}
	popularity := map[domain.Strategy]int{}
	for _, m := range models {
		for _, st := range m.Strategies {
			popularity[st]++
		}
	}
	return domain.AIStats{
		TotalAIEnabled:     int(enabled),
		TotalAISettings:    len(models),
		StrategyPopularity: popularity,
	}, nil
}

// AppendReviews records reviews for an existing listing.
func (s *GormStore) AppendReviews(id string, reviews []domain.AIReview) error {
	for _, r := range reviews {
		if err := validateReview(r); err != nil {
			return err
		}
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ListingModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return domain.StorageErr("check listing", err)
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		if len(reviews) == 0 {
			return nil
		}
		models := make([]AIReviewModel, 0, len(reviews))
		for _, r := range reviews {
			r.ListingID = id
			models = append(models, reviewToModel(r))
		}
		if err := tx.CreateInBatches(&models, 200).Error; err != nil {
			return domain.StorageErr("append reviews", err)
		}
		return nil
	})
	return txErr("append reviews", err)
}

// RecentReviews returns up to limit reviews, newest first.
func (s *GormStore) RecentReviews(id string, limit int) ([]domain.AIReview, error) {
	if limit <= 0 {
		return []domain.AIReview{}, nil
	}
	var models []AIReviewModel
	if err := s.db.Where("listing_id = ?", id).
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, domain.StorageErr("recent reviews", err)
	}
	out := make([]domain.AIReview, 0, len(models))
	for _, m := range models {
		out = append(out, reviewFromModel(m))
	}
	return out, nil
}

// RecentAnalytics returns up to limit points of the given period, newest
// first. An empty period matches every period.
func (s *GormStore) RecentAnalytics(id string, period domain.Period, limit int) ([]domain.AnalyticsPoint, error) {
	if limit <= 0 {
		return []domain.AnalyticsPoint{}, nil
	}
	tx := s.db.Where("listing_id = ?", id)
	if period != "" {
		tx = tx.Where("period = ?", string(period))
	}
	var models []AnalyticsModel
	if err := tx.Order("recorded_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, domain.StorageErr("recent analytics", err)
	}
	out := make([]domain.AnalyticsPoint, 0, len(models))
	for _, m := range models {
		out = append(out, analyticsFromModel(m))
	}
	return out, nil
}

func listingsFromModels(models []ListingModel) []domain.Listing {
	out := make([]domain.Listing, 0, len(models))
	for _, m := range models {
		out = append(out, listingFromModel(m))
	}
	return out
}

func validateReview(r domain.AIReview) error {
	if r.Rating < 1 || r.Rating > 5 {
		return domain.Invalid("rating", fmt.Sprintf("must be within 1..5, got %d", r.Rating))
	}
	return nil
}

// txErr keeps classified errors and wraps anything else (such as a failed
// commit) as a storage failure.
func txErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStorage) {
		return err
	}
	return domain.StorageErr(op, err)
}
