// Package idempotency replays stored responses for repeated POSTs that carry
// the same Idempotency-Key.
package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/cinemalab/cinema-data/internal/adapters/redis"
)

type Backend interface {
	Get(ctx context.Context, key string) (*redisadapter.IdempResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error
}

type Idempotency struct {
	backend Backend
	ttl     time.Duration
}

func NewIdempotency(backend Backend, ttl time.Duration) *Idempotency {
	return &Idempotency{backend: backend, ttl: ttl}
}

type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.backend.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, ContentType: stored.ContentType, Body: stored.Body}, nil
}

// Set keeps resp for the configured TTL. 5xx responses are not stored.
func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if resp.Status >= 500 {
		return nil
	}
	return i.backend.Set(ctx, key, redisadapter.IdempResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
	}, i.ttl)
}
