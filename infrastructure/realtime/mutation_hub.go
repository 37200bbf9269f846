package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"course-service/domain/model"
	"course-service/domain/repository"

	"github.com/gin-gonic/gin"
)

const (
	historySize = 32
	retainFor   = 5 * time.Minute
)

type stream struct {
	subs     map[chan model.MutationEvent]struct{}
	history  []model.MutationEvent
	finished time.Time
}

// MutationHub fans stage transitions out to SSE subscribers keyed by mutation id.
// A late subscriber first receives the stages it missed.
type MutationHub struct {
	mu      sync.Mutex
	streams map[string]*stream
	now     func() time.Time
}

var _ repository.IMutationEvents = (*MutationHub)(nil)

func NewMutationHub() *MutationHub {
	return &MutationHub{streams: make(map[string]*stream), now: time.Now}
}

// Serve streams events for the :mutationId path parameter until the mutation
// finishes or the client goes away.
func (h *MutationHub) Serve(c *gin.Context) {
	mutationID := c.Param("mutationId")
	if mutationID == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch, backlog := h.subscribe(mutationID)
	defer h.unsubscribe(mutationID, ch)

	// Initial comment to keep connection open
	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for _, evt := range backlog {
		writeEvent(c, evt)
		if terminal(evt) {
			return
		}
	}
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(c, evt)
			if terminal(evt) {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

// Publish records the event and delivers it to current subscribers.
func (h *MutationHub) Publish(evt model.MutationEvent) {
	if evt.MutationID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.prune()
	s := h.stream(evt.MutationID)
	if len(s.history) == historySize {
		s.history = s.history[1:]
	}
	s.history = append(s.history, evt)
	if terminal(evt) {
		s.finished = h.now()
	}
	for ch := range s.subs {
		deliver(ch, evt)
	}
}

// deliver never blocks. A slow subscriber loses intermediate stages, but a
// terminal stage evicts the oldest buffered one so the stream can end.
// Caller holds mu, so Publish is the only sender.
func deliver(ch chan model.MutationEvent, evt model.MutationEvent) {
	for {
		select {
		case ch <- evt:
			return
		default:
		}
		if !terminal(evt) {
			return
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (h *MutationHub) subscribe(mutationID string) (chan model.MutationEvent, []model.MutationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.stream(mutationID)
	ch := make(chan model.MutationEvent, 16)
	s.subs[ch] = struct{}{}
	backlog := make([]model.MutationEvent, len(s.history))
	copy(backlog, s.history)
	return ch, backlog
}

func (h *MutationHub) unsubscribe(mutationID string, ch chan model.MutationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s := h.streams[mutationID]; s != nil {
		delete(s.subs, ch)
		close(ch)
		if len(s.subs) == 0 && len(s.history) == 0 {
			delete(h.streams, mutationID)
		}
	}
}

func (h *MutationHub) stream(mutationID string) *stream {
	s := h.streams[mutationID]
	if s == nil {
		s = &stream{subs: make(map[chan model.MutationEvent]struct{})}
		h.streams[mutationID] = s
	}
	return s
}

// prune drops finished mutations nobody is listening to. Caller holds mu.
func (h *MutationHub) prune() {
	cutoff := h.now().Add(-retainFor)
	for id, s := range h.streams {
		if !s.finished.IsZero() && s.finished.Before(cutoff) && len(s.subs) == 0 {
			delete(h.streams, id)
		}
	}
}

func terminal(evt model.MutationEvent) bool {
	return evt.Stage == model.StageFailed || evt.Stage == model.StageCacheInvalidated
}

func writeEvent(c *gin.Context, evt model.MutationEvent) {
	data, _ := json.Marshal(evt)
	_, _ = c.Writer.Write([]byte("event: mutation_stage\n"))
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(data)
	_, _ = c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
