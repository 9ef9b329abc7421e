package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"payoutor/internal/payout"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordModel is the persisted shape of one calculation. The full result
// is stored as JSON; the indexed columns exist for listing and filtering.
type recordModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RequestID  string `gorm:"column:request_id;size:64;uniqueIndex"`
	Kind       string `gorm:"column:kind;size:16;index"`
	USDAmount  string `gorm:"column:usd_amount;size:64"`
	Recipient  string `gorm:"column:recipient;size:64;index"`
	ResultJSON string `gorm:"column:result_json;type:text"`
	CreatedAt  time.Time
}

func (recordModel) TableName() string { return "payout_records" }

// Record is one past calculation as returned to API consumers.
type Record struct {
	RequestID string          `json:"requestId"`
	Kind      string          `json:"kind"`
	USDAmount string          `json:"usdAmount"`
	Recipient string          `json:"recipient"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Store persists calculation results in SQLite.
type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("history store: path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save persists a finished calculation. Saving is best-effort from the
// caller's point of view; it never mutates the result.
func (s *Store) Save(ctx context.Context, res *payout.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("history store: marshal result: %w", err)
	}
	rec := recordModel{
		RequestID:  res.RequestID,
		Kind:       string(res.Kind),
		USDAmount:  res.USDAmount.StringFixed(2),
		Recipient:  res.Recipient,
		ResultJSON: string(payload),
		CreatedAt:  res.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// ListRecent returns up to limit records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []recordModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record{
			RequestID: row.RequestID,
			Kind:      row.Kind,
			USDAmount: row.USDAmount,
			Recipient: row.Recipient,
			Result:    json.RawMessage(row.ResultJSON),
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// Get returns the record for one request id.
func (s *Store) Get(ctx context.Context, requestID string) (*Record, bool, error) {
	var row recordModel
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &Record{
		RequestID: row.RequestID,
		Kind:      row.Kind,
		USDAmount: row.USDAmount,
		Recipient: row.Recipient,
		Result:    json.RawMessage(row.ResultJSON),
		CreatedAt: row.CreatedAt,
	}, true, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
