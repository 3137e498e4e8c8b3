// Package journal persists fills and engine errors to SQLite.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gaptrader-go/internal/engine"
	"gaptrader-go/internal/execution"
)

// FillModel is one executed fill.
type FillModel struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"index"`
	Symbol    string `gorm:"index"`
	Side      string
	Qty       float64
	Price     float64
	Fee       float64
	FilledAt  time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (FillModel) TableName() string { return "fills" }

// ErrorModel is one engine error record.
type ErrorModel struct {
	ID         uint   `gorm:"primaryKey"`
	Kind       string `gorm:"index"`
	Symbol     string
	Message    string
	OccurredAt time.Time `gorm:"index"`
}

func (ErrorModel) TableName() string { return "engine_errors" }

// Store writes journal rows. Write failures are logged and never block trading.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open creates or migrates the database at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&FillModel{}, &ErrorModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return &Store{db: db, log: log}, nil
}

// Record stores a fill. It satisfies paper.FillRecorder.
func (s *Store) Record(fill execution.Fill) {
	row := FillModel{
		OrderID:  fill.OrderID,
		Symbol:   fill.Symbol,
		Side:     string(fill.Side),
		Qty:      fill.Qty,
		Price:    fill.Price,
		Fee:      fill.Fee,
		FilledAt: fill.Ts,
	}
	if err := s.db.Create(&row).Error; err != nil {
		s.log.Error().Err(err).Str("sym", fill.Symbol).Msg("journal fill write failed")
	}
}

// ObserveError stores an engine error. It satisfies engine.ErrorObserver.
func (s *Store) ObserveError(rec engine.ErrorRecord) {
	msg := ""
	if rec.Err != nil {
		msg = rec.Err.Error()
	}
	row := ErrorModel{Kind: string(rec.Kind), Symbol: rec.Symbol, Message: msg, OccurredAt: rec.At}
	if err := s.db.Create(&row).Error; err != nil {
		s.log.Error().Err(err).Str("kind", string(rec.Kind)).Msg("journal error write failed")
	}
}

// Fills returns fills since the given time, oldest first.
func (s *Store) Fills(ctx context.Context, since time.Time) ([]FillModel, error) {
	var rows []FillModel
	err := s.db.WithContext(ctx).Where("filled_at >= ?", since).Order("filled_at, id").Find(&rows).Error
	return rows, err
}

// Errors returns the most recent error rows, newest first.
func (s *Store) Errors(ctx context.Context, limit int) ([]ErrorModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ErrorModel
	err := s.db.WithContext(ctx).Order("occurred_at desc, id desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
