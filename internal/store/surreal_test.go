package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ashureev/chatrelay/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startSurreal runs a throwaway SurrealDB container.
// Skips in short mode or when no container runtime is reachable.
func startSurreal(t *testing.T) config.SurrealConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	// Ryuk's reaper container is flaky in some CI environments.
	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v2.3.7",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("SurrealDB container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "8000")
	require.NoError(t, err)

	return config.SurrealConfig{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, port.Port()),
		Namespace: "test",
		Database:  "chat",
		Username:  "root",
		Password:  "root",
	}
}

func TestSurrealRepositoryContract(t *testing.T) {
	cfg := startSurreal(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewSurreal(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	testRepositoryContract(t, repo)
}

func TestSurrealNextSeqStrictlyIncreases(t *testing.T) {
	s := &SurrealStore{}
	s.lastSeq.Store(time.Now().Add(time.Hour).UnixNano())

	prev := s.nextSeq()
	for i := 0; i < 1000; i++ {
		next := s.nextSeq()
		require.Greater(t, next, prev)
		prev = next
	}
}
