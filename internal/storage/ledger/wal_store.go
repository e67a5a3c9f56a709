package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

const (
	DefaultWALDir = "./wal/ledger"

	walSegmentThreshold = 1000
	walMaxSegments      = 100000
	walDirPermissions   = 0o755

	tradeKeyPrefix = "trade_"
	stateKeyPrefix = "state_"
)

// WALStore keeps the ledger in a write-ahead log. The log is replayed on open
// into an in-memory view, so reads never touch disk and always match a full
// rescan of the log.
type WALStore struct {
	mu     sync.RWMutex
	wal    *gowal.Wal
	trades []domain.TradeRecord
	state  map[string]string
}

// NewWALStore opens (or creates) the ledger WAL under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultWALDir
	}
	if err := os.MkdirAll(dir, walDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure ledger directory %s", dir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "ledger_",
		SegmentThreshold: walSegmentThreshold,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init ledger WAL")
	}

	s := &WALStore{
		wal:    wal,
		trades: make([]domain.TradeRecord, 0),
		state:  make(map[string]string),
	}
	if err := s.replay(); err != nil {
		_ = wal.Close()
		return nil, err
	}

	return s, nil
}

func (s *WALStore) replay() error {
	for msg := range s.wal.Iterator() {
		switch {
		case strings.HasPrefix(msg.Key, tradeKeyPrefix):
			var trade domain.TradeRecord
			if err := json.Unmarshal(msg.Value, &trade); err != nil {
				return errors.Wrapf(err, "decode trade %s", msg.Key)
			}
			s.trades = append(s.trades, trade)
		case strings.HasPrefix(msg.Key, stateKeyPrefix):
			s.state[strings.TrimPrefix(msg.Key, stateKeyPrefix)] = string(msg.Value)
		}
	}
	return nil
}

// Append writes the trade as a single WAL entry.
func (s *WALStore) Append(_ context.Context, trade domain.TradeRecord) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return 0, ErrClosed
	}

	trade.Seq = s.nextSeq()
	payload, err := json.Marshal(trade)
	if err != nil {
		return 0, errors.Wrap(err, "marshal trade")
	}

	key := fmt.Sprintf("%s%d", tradeKeyPrefix, trade.Seq)
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, payload); err != nil {
		return 0, errors.Wrap(err, "write trade to WAL")
	}

	s.trades = append(s.trades, trade)
	return trade.Seq, nil
}

func (s *WALStore) nextSeq() uint64 {
	if len(s.trades) == 0 {
		return 1
	}
	return s.trades[len(s.trades)-1].Seq + 1
}

// Trades returns a copy of all trades in sequence order.
func (s *WALStore) Trades(_ context.Context) ([]domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal == nil {
		return nil, ErrClosed
	}

	out := make([]domain.TradeRecord, len(s.trades))
	copy(out, s.trades)
	return out, nil
}

// Recent returns up to limit trades, newest first.
func (s *WALStore) Recent(_ context.Context, limit int) ([]domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal == nil {
		return nil, ErrClosed
	}

	return newestFirst(s.trades, limit), nil
}

// Flag returns the latest value written under key.
func (s *WALStore) Flag(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal == nil {
		return "", false, ErrClosed
	}

	v, ok := s.state[key]
	return v, ok, nil
}

// SetFlag appends a new value for key; replay keeps the last one.
func (s *WALStore) SetFlag(_ context.Context, key, value string) error {
	if key == "" {
		return errors.New("state key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return ErrClosed
	}

	if err := s.wal.Write(s.wal.CurrentIndex()+1, stateKeyPrefix+key, []byte(value)); err != nil {
		return errors.Wrapf(err, "write state %s to WAL", key)
	}
	s.state[key] = value
	return nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return nil
	}
	err := s.wal.Close()
	s.wal = nil
	return err
}
