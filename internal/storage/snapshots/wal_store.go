// Package snapshots records the book state after every appended trade so the
// dashboard can chart it without replaying the ledger.
package snapshots

import (
	"github.com/pkg/errors"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/storage/journal"
)

const DefaultDir = "./wal/portfolio"

type WALStore struct {
	j *journal.Journal[domain.PortfolioSnapshot]
}

// NewWALStore opens the snapshot journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	j, err := journal.Open[domain.PortfolioSnapshot](dir, "portfolio_snapshot_", journal.Options{
		SegmentThreshold: 1000,
		MaxSegments:      100,
	})
	if err != nil {
		return nil, err
	}
	return &WALStore{j: j}, nil
}

func (s *WALStore) Save(snapshot domain.PortfolioSnapshot) error {
	if s == nil {
		return journal.ErrClosed
	}
	if snapshot.Symbol == "" {
		return errors.New("portfolio snapshot symbol is required")
	}
	_, err := s.j.Append(snapshot.Symbol, snapshot)
	return err
}

func (s *WALStore) SnapshotsAfter(index uint64) ([]domain.PortfolioSnapshotRecord, error) {
	if s == nil {
		return nil, journal.ErrClosed
	}
	entries, err := s.j.After(index)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PortfolioSnapshotRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.PortfolioSnapshotRecord{Index: e.Index, Snapshot: e.Value})
	}
	return out, nil
}

func (s *WALStore) CurrentIndex() uint64 {
	if s == nil {
		return 0
	}
	return s.j.Head()
}

func (s *WALStore) Close() error {
	if s == nil {
		return journal.ErrClosed
	}
	return s.j.Close()
}
