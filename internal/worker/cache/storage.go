package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/dbx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/store"
)

// Storage enumerates and opens partitions. A partition exists once it holds
// at least one entry.
type Storage struct {
	st *store.Store
}

func NewStorage(st *store.Store) *Storage {
	return &Storage{st: st}
}

// Open returns a handle to the named partition. It does not touch the store.
func (s *Storage) Open(name string) *Partition {
	return &Partition{name: name, st: s.st}
}

func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.st.DB().QueryRowContext(ctx, `SELECT 1 FROM cache_entries WHERE partition = ? LIMIT 1`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check partition %s: %w", name, err)
	}
	return true, nil
}

// Keys lists partition names in ascending order.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.st.DB().QueryContext(ctx, `SELECT DISTINCT partition FROM cache_entries ORDER BY partition`)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan partition: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Delete drops a partition and reports whether it existed. Deleting an
// absent partition is a no-op.
func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.st.DB().ExecContext(ctx, `DELETE FROM cache_entries WHERE partition = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete partition %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Partition holds at most one response per URL.
type Partition struct {
	name string
	st   *store.Store
}

func (p *Partition) Name() string { return p.name }

// Match returns the stored response for url or common.ErrorNotFound.
func (p *Partition) Match(ctx context.Context, url string) (*Response, error) {
	var (
		status   int
		headers  string
		body     []byte
		storedAt int64
	)
	err := p.st.DB().QueryRowContext(ctx,
		`SELECT status, headers, body, stored_at FROM cache_entries WHERE partition = ? AND url = ?`,
		p.name, url).Scan(&status, &headers, &body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("match %s in %s: %w", url, p.name, err)
	}

	h := http.Header{}
	if err := json.Unmarshal([]byte(headers), &h); err != nil {
		return nil, fmt.Errorf("decode headers of %s: %w", url, err)
	}
	return &Response{Status: status, Header: h, Body: body, StoredAt: time.UnixMilli(storedAt)}, nil
}

// Put stores resp under url, overwriting any previous entry.
func (p *Partition) Put(ctx context.Context, url string, resp *Response) error {
	return put(ctx, p.st.DB(), p.name, url, resp)
}

// PutAll stores every entry in one transaction: either all land or none do.
func (p *Partition) PutAll(ctx context.Context, entries map[string]*Response) error {
	return p.st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for url, resp := range entries {
			if err := put(ctx, tx, p.name, url, resp); err != nil {
				return err
			}
		}
		return nil
	})
}

func put(ctx context.Context, db dbx.DBTX, partition, url string, resp *Response) error {
	h := resp.Header
	if h == nil {
		h = http.Header{}
	}
	headers, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode headers of %s: %w", url, err)
	}
	storedAt := resp.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO cache_entries (partition, url, status, headers, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(partition, url) DO UPDATE SET
			status = excluded.status,
			headers = excluded.headers,
			body = excluded.body,
			stored_at = excluded.stored_at
	`, partition, url, resp.Status, string(headers), body, storedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put %s into %s: %w", url, partition, err)
	}
	return nil
}

// URLs lists the keys stored in the partition in ascending order.
func (p *Partition) URLs(ctx context.Context) ([]string, error) {
	rows, err := p.st.DB().QueryContext(ctx, `SELECT url FROM cache_entries WHERE partition = ? ORDER BY url`, p.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p.name, err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
