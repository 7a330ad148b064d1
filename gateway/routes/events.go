package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"ideacapital/core/state"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
	wsWriteTimeout    = 10 * time.Second
	wsBuffer          = 256
)

func (a *api) mountEvents(r chi.Router) {
	r.Get("/events", a.listEvents)
	r.Get("/events/ws", a.streamEvents)
	r.Get("/archive/events", a.archivedEvents)
}

type eventPage struct {
	Events []state.Record `json:"events"`
	Next   uint64         `json:"next"`
}

func pageParams(r *http.Request) (uint64, int, error) {
	q := r.URL.Query()
	var after uint64
	if raw := q.Get("after"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, invalid("after must be an unsigned integer")
		}
		after = v
	}
	limit := defaultEventLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return 0, 0, invalid("limit must be a positive integer")
		}
		limit = min(v, maxEventLimit)
	}
	return after, limit, nil
}

func page(records []state.Record, after uint64) eventPage {
	next := after
	if len(records) > 0 {
		next = records[len(records)-1].Seq
	}
	if records == nil {
		records = []state.Record{}
	}
	return eventPage{Events: records, Next: next}
}

func (a *api) listEvents(w http.ResponseWriter, r *http.Request) {
	after, limit, err := pageParams(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	records, err := a.node.State().EventsSince(after, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page(records, after))
}

func (a *api) archivedEvents(w http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		a.writeError(w, r, errUnavailable)
		return
	}
	after, limit, err := pageParams(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	records, err := a.archive.Events(r.Context(), after, r.URL.Query().Get("type"), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page(records, after))
}

// streamEvents replays the outbox after the requested cursor and then follows
// new commits. A subscriber that falls behind is caught up from the outbox.
func (a *api) streamEvents(w http.ResponseWriter, r *http.Request) {
	after, _, err := pageParams(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := a.followEvents(ctx, conn, after); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			a.logger.Warn("event stream failed", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (a *api) followEvents(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	mgr := a.node.State()
	for {
		feed, cancel := mgr.Subscribe(wsBuffer)
		var err error
		cursor, err = a.catchUp(ctx, conn, cursor)
		if err != nil {
			cancel()
			return err
		}
		cursor, err = a.drain(ctx, conn, feed, cursor)
		cancel()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (a *api) catchUp(ctx context.Context, conn *websocket.Conn, cursor uint64) (uint64, error) {
	for {
		records, err := a.node.State().EventsSince(cursor, maxEventLimit)
		if err != nil {
			return cursor, err
		}
		if len(records) == 0 {
			return cursor, nil
		}
		for _, rec := range records {
			if err := writeRecord(ctx, conn, rec); err != nil {
				return cursor, err
			}
			cursor = rec.Seq
		}
	}
}

// drain forwards live records until the feed closes or ctx ends.
func (a *api) drain(ctx context.Context, conn *websocket.Conn, feed <-chan state.Record, cursor uint64) (uint64, error) {
	for {
		select {
		case <-ctx.Done():
			return cursor, nil
		case rec, ok := <-feed:
			if !ok {
				return cursor, nil
			}
			if rec.Seq <= cursor {
				continue
			}
			if err := writeRecord(ctx, conn, rec); err != nil {
				return cursor, err
			}
			cursor = rec.Seq
		}
	}
}

func writeRecord(ctx context.Context, conn *websocket.Conn, rec state.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
