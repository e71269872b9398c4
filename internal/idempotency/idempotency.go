// Package idempotency records purchase responses by Idempotency-Key so a
// retried request replays the first answer instead of buying twice.
package idempotency

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInProgress is returned by Begin while another request holds the key.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// Response is a recorded HTTP answer.
type Response struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// Store reserves keys and records responses.
//
// Begin returns (nil, nil) when the caller now owns key, the recorded
// response when key already completed, or ErrInProgress.
type Store interface {
	Begin(ctx context.Context, key string) (*Response, error)
	Complete(ctx context.Context, key string, resp Response) error
	Abort(ctx context.Context, key string) error
}

// Key scopes a client key to the caller and resource it was sent for. Each
// part is length-prefixed, so parts containing ':' cannot collide.
func Key(parts ...string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

type entry struct {
	resp    *Response
	expires time.Time
}

// Memory is a process-local Store used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Begin(_ context.Context, key string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expires) {
		if e.resp == nil {
			return nil, ErrInProgress
		}
		r := *e.resp
		return &r, nil
	}
	m.entries[key] = entry{expires: now.Add(m.ttl)}
	m.sweep(now)
	return nil, nil
}

func (m *Memory) Complete(_ context.Context, key string, resp Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{resp: &resp, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Abort(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// sweep drops expired entries; callers hold mu.
func (m *Memory) sweep(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
}
