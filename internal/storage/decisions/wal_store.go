// Package decisions keeps an audit trail of signal decisions.
package decisions

import (
	"github.com/pkg/errors"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/storage/journal"
)

const DefaultDir = "./wal/decisions"

var ErrNotInitialized = journal.ErrClosed

// WALStore is a rotating journal of decision events. Only the newest ~1000 survive rotation.
type WALStore struct {
	j *journal.Journal[domain.DecisionEvent]
}

func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	j, err := journal.Open[domain.DecisionEvent](dir, "decision_", journal.Options{
		SegmentThreshold: 100,
		MaxSegments:      10,
	})
	if err != nil {
		return nil, err
	}
	return &WALStore{j: j}, nil
}

func (s *WALStore) Save(event domain.DecisionEvent) error {
	if s == nil {
		return ErrNotInitialized
	}
	if event.Symbol == "" {
		return errors.New("decision event symbol is required")
	}
	_, err := s.j.Append(event.Symbol, event)
	return err
}

// EventsAfter returns decision events written after index, oldest first.
func (s *WALStore) EventsAfter(index uint64) ([]domain.DecisionEventRecord, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	entries, err := s.j.After(index)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DecisionEventRecord, len(entries))
	for i, e := range entries {
		out[i] = domain.DecisionEventRecord{Index: e.Index, Event: e.Value}
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
		return ErrNotInitialized
	}
	return s.j.Close()
}
