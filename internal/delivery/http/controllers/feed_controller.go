package controllers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"weddingmemories/internal/delivery/http/helpers"
	"weddingmemories/internal/domain"
)

// feedQueueSize bounds the per-viewer delivery queue. Commits never wait on
// a slow viewer: when the queue is full the stream is closed and the client
// reconnects for a fresh snapshot.
const feedQueueSize = 64

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

type FeedController struct {
	Logger *slog.Logger
	Broker domain.FeedBroker
}

func NewFeedController(logger *slog.Logger, broker domain.FeedBroker) *FeedController {
	return &FeedController{Logger: logger, Broker: broker}
}

// feedQueue adapts the broker's synchronous delivery callback to the SSE
// writer goroutine. push never blocks the committing goroutine.
type feedQueue struct {
	mu     sync.Mutex
	ch     chan domain.ChangeEvent
	closed bool
}

func newFeedQueue() *feedQueue {
	return &feedQueue{ch: make(chan domain.ChangeEvent, feedQueueSize)}
}

// push enqueues a change, or closes the queue when the viewer cannot keep
// up. Closing forces the client to reconnect and resync from a snapshot.
func (q *feedQueue) push(change domain.ChangeEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- change:
	default:
		q.closed = true
		close(q.ch)
	}
}

func (q *feedQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Stream godoc
// @Summary Stream an event's live feed
// @Description Server-sent events stream. The first event is a "snapshot" carrying the full current state; every later event is a "change" carrying one committed increment, in commit order with no gaps or duplicates relative to the snapshot. Clients that fall behind are disconnected and should reconnect.
// @Tags feed
// @Produce text/event-stream
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {string} string "SSE stream"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/feed [get]
func (c *FeedController) Stream(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if !uuidRegex.MatchString(eventID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "streaming unsupported")
		return
	}

	queue := newFeedQueue()
	snapshot, unsubscribe, err := c.Broker.Subscribe(r.Context(), eventID, queue.push)
	if err != nil {
		writeDomainError(c.Logger, w, r, err)
		return
	}
	defer unsubscribe()
	defer queue.close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, "snapshot", snapshot); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, open := <-queue.ch:
			if !open {
				c.Logger.Info("feed viewer dropped", "event_id", eventID, "reason", "queue overflow or event removed")
				return
			}
			if err := writeSSE(w, "change", change); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
