package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const (
	runsKey = "ingest:runs"
	maxRuns = 100
)

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	return errors.Wrap(c.client.Ping(ctx).Err(), "ping redis")
}

// RunRecord is one orchestrator run as kept in the run ledger.
type RunRecord struct {
	ID        string        `json:"id"`
	Mode      string        `json:"mode"`
	Jobs      []JobRecord   `json:"jobs"`
	Success   bool          `json:"success"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

type JobRecord struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration_ns"`
}

// RecordRun prepends run to the ledger and trims it to the newest entries.
func (c *Cache) RecordRun(ctx context.Context, run RunRecord) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, runsKey, data)
	pipe.LTrim(ctx, runsKey, 0, maxRuns-1)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "record run")
}

// RecentRuns returns up to n runs, newest first.
func (c *Cache) RecentRuns(ctx context.Context, n int64) ([]RunRecord, error) {
	vals, err := c.client.LRange(ctx, runsKey, 0, n-1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read runs")
	}
	runs := make([]RunRecord, 0, len(vals))
	for _, v := range vals {
		var r RunRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			continue
		}
		runs = append(runs, r)
	}
	return runs, nil
}
