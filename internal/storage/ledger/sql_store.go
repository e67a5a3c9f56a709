package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

const DefaultSQLitePath = "./data/ledger.db"

type tradeModel struct {
	ID     uint64    `gorm:"primaryKey;autoIncrement"`
	TS     time.Time `gorm:"index"`
	Symbol string    `gorm:"size:32;index"`
	Side   string    `gorm:"size:4"`
	Qty    int64
	// Price is stored as text to keep decimal precision.
	Price string `gorm:"size:64"`
	Note  string
}

func (tradeModel) TableName() string { return "trades" }

type stateModel struct {
	Key string `gorm:"primaryKey;size:64"`
	Val string
}

func (stateModel) TableName() string { return "state" }

// SQLStore keeps the ledger in SQLite through gorm. Every append is a
// single transaction; the row id is the sequence.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens (or creates) the SQLite ledger at path.
func NewSQLStore(path string) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, walDirPermissions); err != nil {
			return nil, errors.Wrapf(err, "failed to ensure ledger directory %s", dir)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite ledger")
	}
	if err := db.AutoMigrate(&tradeModel{}, &stateModel{}); err != nil {
		return nil, errors.Wrap(err, "migrate sqlite ledger")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "sqlite handle")
	}
	// one writer keeps appends serialized
	sqlDB.SetMaxOpenConns(1)

	return &SQLStore{db: db}, nil
}

// Append inserts the trade in its own transaction.
func (s *SQLStore) Append(ctx context.Context, trade domain.TradeRecord) (uint64, error) {
	row := tradeModel{
		TS:     trade.Time,
		Symbol: trade.Symbol,
		Side:   trade.Side.String(),
		Qty:    trade.Quantity,
		Price:  trade.Price.String(),
		Note:   trade.Note,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "insert trade")
	}
	return row.ID, nil
}

// Trades returns every trade ordered by id.
func (s *SQLStore) Trades(ctx context.Context) ([]domain.TradeRecord, error) {
	var rows []tradeModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "select trades")
	}
	return toRecords(rows)
}

// Recent returns up to limit trades, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	var rows []tradeModel
	err := s.db.WithContext(ctx).Order("id DESC").Limit(ClampLimit(limit)).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "select recent trades")
	}
	return toRecords(rows)
}

// Flag returns the value stored under key.
func (s *SQLStore) Flag(ctx context.Context, key string) (string, bool, error) {
	var rows []stateModel
	if err := s.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&rows).Error; err != nil {
		return "", false, errors.Wrapf(err, "select state %s", key)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Val, true, nil
}

// SetFlag upserts value under key.
func (s *SQLStore) SetFlag(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("state key is required")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"val"}),
	}).Create(&stateModel{Key: key, Val: value}).Error
	return errors.Wrapf(err, "upsert state %s", key)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecords(rows []tradeModel) ([]domain.TradeRecord, error) {
	out := make([]domain.TradeRecord, 0, len(rows))
	for _, r := range rows {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "decode price of trade %d", r.ID)
		}
		out = append(out, domain.TradeRecord{
			Seq:      r.ID,
			Time:     r.TS.UTC(),
			Symbol:   r.Symbol,
			Side:     domain.Side(r.Side),
			Quantity: r.Qty,
			Price:    price,
			Note:     r.Note,
		})
	}
	return out, nil
}
