package rateLimit

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisadapter "github.com/cinemalab/cinema-data/internal/adapters/redis"
)

func TestRateLimiter_Allow(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	defer c.Terminate(ctx)

	addr, err := c.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		t.Fatal(err)
	}
	client := redisadapter.NewClient(addr)
	defer client.Close()

	rl := NewRateLimiter(redisadapter.NewCache(client), 3, time.Minute)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "ip:10.0.0.1")
		if err != nil || !ok {
			t.Fatalf("request %d: expected allowed, got %v %v", i+1, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, "ip:10.0.0.1"); ok {
		t.Error("fourth request in the window should be limited")
	}
	if ok, _ := rl.Allow(ctx, "ip:10.0.0.2"); !ok {
		t.Error("other keys have their own budget")
	}

	rl.now = func() time.Time { return fixed.Add(time.Minute) }
	if ok, _ := rl.Allow(ctx, "ip:10.0.0.1"); !ok {
		t.Error("a new window resets the count")
	}
}
