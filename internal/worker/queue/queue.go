// Package queue records mutating requests that could not reach the network
// and replays them once a sync is triggered.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/netx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/store"
)

// Action is a queued mutation. Timestamp is Unix milliseconds.
type Action struct {
	ID        int64       `json:"id"`
	URL       string      `json:"url"`
	Method    string      `json:"method"`
	Header    http.Header `json:"headers"`
	Body      []byte      `json:"body"`
	Timestamp int64       `json:"timestamp"`
}

// DrainReport summarises one drain.
type DrainReport struct {
	Attempted int `json:"attempted"`
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
}

type Queue struct {
	st     *store.Store
	client *http.Client
	origin *url.URL
	logger logging.Logger
	now    func() time.Time

	// drainMu keeps two drains from replaying the same action at once.
	drainMu sync.Mutex
}

// New builds a queue over st. Relative action URLs are replayed against
// origin.
func New(st *store.Store, client *http.Client, origin *url.URL, l logging.Logger) *Queue {
	if client == nil {
		client = http.DefaultClient
	}
	return &Queue{
		st:     st,
		client: client,
		origin: origin,
		logger: l.With("module", "queue"),
		now:    time.Now,
	}
}

var replaySkipHeaders = []string{"Connection", "Keep-Alive", "Transfer-Encoding", "Content-Length", "Te", "Upgrade", "Proxy-Connection"}

func cleanHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, k := range replaySkipHeaders {
		out.Del(k)
	}
	return out
}

// Enqueue persists a and returns its id. ID and Timestamp are assigned here.
func (q *Queue) Enqueue(ctx context.Context, a Action) (int64, error) {
	headers, err := json.Marshal(cleanHeader(a.Header))
	if err != nil {
		return 0, fmt.Errorf("encode headers: %w", err)
	}
	body := a.Body
	if body == nil {
		body = []byte{}
	}

	res, err := q.st.DB().ExecContext(ctx,
		`INSERT INTO offline_actions (url, method, headers, body, timestamp) VALUES (?, ?, ?, ?, ?)`,
		a.URL, a.Method, string(headers), body, q.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("enqueue %s %s: %w", a.Method, a.URL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	q.logger.Info(ctx, "queued offline action", "id", id, "method", a.Method, "url", a.URL)
	return id, nil
}

// List returns queued actions in insertion order.
func (q *Queue) List(ctx context.Context) ([]Action, error) {
	rows, err := q.st.DB().QueryContext(ctx,
		`SELECT id, url, method, headers, body, timestamp FROM offline_actions ORDER BY timestamp, id`)
	if err != nil {
		return nil, fmt.Errorf("list offline actions: %w", err)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var (
			a       Action
			headers string
		)
		if err := rows.Scan(&a.ID, &a.URL, &a.Method, &headers, &a.Body, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan offline action: %w", err)
		}
		a.Header = http.Header{}
		if err := json.Unmarshal([]byte(headers), &a.Header); err != nil {
			return nil, fmt.Errorf("decode headers of action %d: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count offline actions: %w", err)
	}
	return n, nil
}

func (q *Queue) Delete(ctx context.Context, id int64) error {
	if _, err := q.st.DB().ExecContext(ctx, `DELETE FROM offline_actions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete offline action %d: %w", id, err)
	}
	return nil
}

// Drain replays every action queued when it starts. A 2xx answer deletes
// the action; anything else leaves it queued and moves on to the next one.
// Actions enqueued during a drain wait for the next one.
func (q *Queue) Drain(ctx context.Context) (DrainReport, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	var report DrainReport

	actions, err := q.List(ctx)
	if err != nil {
		return report, err
	}

	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++

		if err := q.replay(ctx, a); err != nil {
			report.Failed++
			q.logger.Warn(ctx, "replay failed", "id", a.ID, "method", a.Method, "url", a.URL, "error", err)
			continue
		}

		if err := q.Delete(ctx, a.ID); err != nil {
			report.Failed++
			q.logger.Error(ctx, "replayed action not removed", "id", a.ID, "error", err)
			continue
		}
		report.Replayed++
	}

	if report.Attempted > 0 {
		q.logger.Info(ctx, "drain finished", "attempted", report.Attempted, "replayed", report.Replayed, "failed", report.Failed)
	}
	return report, nil
}

func (q *Queue) target(raw string) string {
	if q.origin == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return q.origin.ResolveReference(ref).String()
}

func (q *Queue) replay(ctx context.Context, a Action) error {
	req, err := http.NewRequestWithContext(ctx, a.Method, q.target(a.URL), bytes.NewReader(a.Body))
	if err != nil {
		return err
	}
	req.Header = cleanHeader(a.Header)

	resp, err := netx.Do(q.client, req)
	if err != nil {
		return err
	}
	// only the status matters here
	if _, err := netx.ReadAndClose(resp); err != nil && !errors.Is(err, netx.ErrBodyTooLarge) {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
