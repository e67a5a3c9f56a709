// Package journal is an append-only, index-addressed log of JSON entries on top of gowal.
// Readers poll with After(lastSeen) to tail it.
package journal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

var ErrClosed = errors.New("journal is not open")

// Options tune segment rotation. Entries in rotated-away segments are gone for good.
type Options struct {
	SegmentThreshold int
	MaxSegments      int
}

// Entry is a stored value with the log index it was written under.
type Entry[T any] struct {
	Index uint64 `json:"index"`
	Value T      `json:"value"`
}

type Journal[T any] struct {
	mu     sync.RWMutex
	wal    *gowal.Wal
	prefix string
}

// Open opens (or creates) the journal in dir. prefix namespaces both segment files and keys.
func Open[T any](dir, prefix string, opts Options) (*Journal[T], error) {
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           prefix,
		SegmentThreshold: opts.SegmentThreshold,
		MaxSegments:      opts.MaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s journal in %s", strings.TrimSuffix(prefix, "_"), dir)
	}
	return &Journal[T]{wal: wal, prefix: prefix}, nil
}

// Append writes v under the next index and returns it. key is informational only.
func (j *Journal[T]) Append(key string, v T) (uint64, error) {
	if j == nil {
		return 0, ErrClosed
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.wal == nil {
		return 0, ErrClosed
	}
	idx := j.wal.CurrentIndex() + 1
	// gowal does not hand the index back on iteration, so it travels in the payload.
	payload, err := json.Marshal(Entry[T]{Index: idx, Value: v})
	if err != nil {
		return 0, errors.Wrap(err, "encode journal entry")
	}
	if err := j.wal.Write(idx, j.prefix+key, payload); err != nil {
		return 0, errors.Wrap(err, "write journal entry")
	}
	return idx, nil
}

// After returns entries with Index > index, oldest first.
func (j *Journal[T]) After(index uint64) ([]Entry[T], error) {
	if j == nil {
		return nil, ErrClosed
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.wal == nil {
		return nil, ErrClosed
	}
	head := j.wal.CurrentIndex()
	if head <= index {
		return nil, nil
	}

	out := make([]Entry[T], 0, head-index)
	for msg := range j.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, j.prefix) {
			continue
		}
		var e Entry[T]
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, errors.Wrapf(err, "decode journal entry %q", msg.Key)
		}
		if e.Index > index {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *Journal[T]) Head() uint64 {
	if j == nil {
		return 0
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.wal == nil {
		return 0
	}
	return j.wal.CurrentIndex()
}

// Close is idempotent. Every later call on the journal returns ErrClosed.
func (j *Journal[T]) Close() error {
	if j == nil {
		return ErrClosed
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.wal == nil {
		return nil
	}
	err := j.wal.Close()
	j.wal = nil
	return err
}
