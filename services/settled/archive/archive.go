package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"intentsettle/core/events"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// EventRecord is one archived settlement event.
type EventRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type       string    `gorm:"size:64;index"`
	Trader     string    `gorm:"size:42;index"`
	Digest     string    `gorm:"size:66;index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
}

// TableName pins the table name independent of gorm's pluralisation.
func (EventRecord) TableName() string { return "settlement_events" }

// Decoded returns the attribute map stored with the record.
func (r EventRecord) Decoded() (map[string]string, error) {
	attrs := map[string]string{}
	if strings.TrimSpace(r.Attributes) == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
		return nil, fmt.Errorf("archive: decode attributes: %w", err)
	}
	return attrs, nil
}

// AutoMigrate performs the schema migration for the archive.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{})
}

// Open connects to the archive database for the given driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("archive: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", driver, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return db, nil
}

// Store persists emitted events. It implements events.Emitter; write failures
// are logged because emitters cannot fail the operation that produced them.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewStore wraps an opened database.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, nowFn: func() time.Time { return time.Now().UTC() }}
}

// Emit implements events.Emitter.
func (s *Store) Emit(evt events.Event) {
	if s == nil || s.db == nil || evt == nil {
		return
	}
	if err := s.Append(context.Background(), evt); err != nil {
		s.logger.Error("archive event failed",
			slog.String("type", evt.EventType()),
			slog.Any("error", err))
	}
}

// Append stores a single event.
func (s *Store) Append(ctx context.Context, evt events.Event) error {
	payload := events.ToPayload(evt)
	if payload == nil {
		return nil
	}
	encoded, err := json.Marshal(payload.Attributes)
	if err != nil {
		return fmt.Errorf("archive: encode attributes: %w", err)
	}
	record := EventRecord{
		ID:         uuid.New(),
		Type:       payload.Type,
		Trader:     strings.ToLower(payload.Attributes["trader"]),
		Digest:     strings.ToLower(payload.Attributes["digest"]),
		Attributes: string(encoded),
		CreatedAt:  s.nowFn(),
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Type   string
	Trader string
	Digest string
	Before time.Time
	Limit  int
}

// Query returns archived events, newest first.
func (s *Store) Query(ctx context.Context, filter Filter) ([]EventRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("archive: not configured")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	query := s.db.WithContext(ctx).Model(&EventRecord{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Trader != "" {
		query = query.Where("trader = ?", strings.ToLower(filter.Trader))
	}
	if filter.Digest != "" {
		query = query.Where("digest = ?", strings.ToLower(filter.Digest))
	}
	if !filter.Before.IsZero() {
		query = query.Where("created_at < ?", filter.Before)
	}
	var records []EventRecord
	if err := query.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
