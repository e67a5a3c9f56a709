package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	streamPollInterval = 2 * time.Second
	heartbeatInterval  = 20 * time.Second
	thinKeepLast       = 100
	thinBucket         = 12
)

func (s *Server) handlePortfolioStream(c *gin.Context) {
	if s.cfg.Snapshots == nil {
		c.String(http.StatusServiceUnavailable, "snapshot store not available")
		return
	}

	lastIndex := resumeIndex(c.GetHeader("Last-Event-ID"), c.Query("last_event_id"))
	firstLoad := lastIndex == 0

	send := func() error {
		records, err := s.cfg.Snapshots.SnapshotsAfter(lastIndex)
		if err != nil {
			return err
		}
		if firstLoad && len(records) > thinKeepLast {
			records = thinHistory(records, thinKeepLast)
		}
		firstLoad = false

		for _, record := range records {
			if err := writeEvent(c, record.Index, "portfolio", record.Snapshot); err != nil {
				return err
			}
			lastIndex = record.Index
		}
		return nil
	}

	s.stream(c, "portfolio", send, func() {
		// lets the client leave its loading state
		if lastIndex == 0 {
			fmt.Fprint(c.Writer, "event: no_data\ndata: {}\n\n")
			c.Writer.Flush()
		}
	})
}

func (s *Server) handleDecisionStream(c *gin.Context) {
	if s.cfg.Decisions == nil {
		c.String(http.StatusServiceUnavailable, "decision store not available")
		return
	}

	lastIndex := resumeIndex(c.GetHeader("Last-Event-ID"), c.Query("last_event_id"))
	send := func() error {
		records, err := s.cfg.Decisions.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := writeEvent(c, record.Index, "decision", record.Event); err != nil {
				return err
			}
			lastIndex = record.Index
		}
		return nil
	}

	s.stream(c, "decision", send, nil)
}

// stream sends the backlog, then polls for new records until the client leaves.
func (s *Server) stream(c *gin.Context, name string, send func() error, afterInitial func()) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("Access-Control-Allow-Origin", "*")

	if err := send(); err != nil {
		s.logger.Error("stream initial load", zap.String("stream", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to load %s events", name)
		return
	}
	c.Writer.WriteHeaderNow()
	if afterInitial != nil {
		afterInitial()
	}
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	poll := time.NewTicker(streamPollInterval)
	defer poll.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case <-poll.C:
			if err := send(); err != nil {
				s.logger.Warn("stream poll", zap.String("stream", name), zap.Error(err))
			}
		}
	}
}

func writeEvent(c *gin.Context, id uint64, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Writer, "id: %d\nevent: %s\ndata: %s\n\n", id, event, payload)
	c.Writer.Flush()
	return nil
}

// resumeIndex returns the event index a reconnecting client has already seen.
// The first non-blank source wins; garbage there means "start over".
func resumeIndex(sources ...string) uint64 {
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		idx, err := strconv.ParseUint(src, 10, 64)
		if err != nil {
			return 0
		}
		return idx
	}
	return 0
}

// thinHistory keeps the newest keepLast records and samples the older ones with
// a stride that doubles after every thinBucket samples, walking back in time.
// The oldest record always survives so a chart keeps its starting point.
func thinHistory[T any](records []T, keepLast int) []T {
	if len(records) <= keepLast {
		return records
	}

	older := records[:len(records)-keepLast]
	sampled := make([]T, 0, 4*thinBucket)
	stride := 1
	for i := len(older) - 1; i > 0; i -= stride {
		sampled = append(sampled, older[i])
		if len(sampled)%thinBucket == 0 {
			stride *= 2
		}
	}
	sampled = append(sampled, older[0])
	slices.Reverse(sampled)

	return append(sampled, records[len(records)-keepLast:]...)
}
