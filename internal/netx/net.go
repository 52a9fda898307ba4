// Package netx contains HTTP plumbing shared by the worker and the session
// client.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
)

// MaxBodySize bounds how much of a request or response body is buffered in
// memory.
var MaxBodySize int64 = 16 << 20

// ErrBodyTooLarge is returned when a body exceeds MaxBodySize. Nothing is
// returned in that case, never a truncated prefix.
var ErrBodyTooLarge = errors.New("body too large")

func readLimited(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > MaxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, MaxBodySize)
	}
	return b, nil
}

// ReadAndClose reads the whole response body and closes it. Bodies over
// MaxBodySize fail with ErrBodyTooLarge.
func ReadAndClose(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

// BufferRequestBody reads r.Body fully and replaces it with a rewindable
// copy, so the same bytes can be forwarded and later persisted. Bodies over
// MaxBodySize fail with ErrBodyTooLarge.
func BufferRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	b, err := readLimited(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(b))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	return b, nil
}

// Do sends req and classifies transport failures as
// common.ErrNetworkUnavailable. Context cancellation by the caller is
// returned unchanged.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) && req.Context().Err() != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
}

// IsMutating reports whether method changes server state.
func IsMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
