//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// pgConnString returns a DSN for an empty test database. When
// REVIEWLENS_TEST_PG_HOST is set that server is used; otherwise a
// postgres:16-alpine container is started for the test.
func pgConnString(t *testing.T) string {
	t.Helper()
	if os.Getenv("REVIEWLENS_TEST_PG_HOST") != "" {
		host := envOrDefault("REVIEWLENS_TEST_PG_HOST", "localhost")
		port := envOrDefault("REVIEWLENS_TEST_PG_PORT", "5432")
		db := envOrDefault("REVIEWLENS_TEST_PG_DATABASE", "reviewlens_test")
		user := envOrDefault("REVIEWLENS_TEST_PG_USER", "postgres")
		pass := envOrDefault("REVIEWLENS_TEST_PG_PASSWORD", "postgres")
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db)
	}
	return startPostgres(t)
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "reviewlens_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
	})
	if err != nil {
		t.Skipf("skipping: cannot start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pg.Terminate(context.Background()); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/reviewlens_test?sslmode=disable", host, port.Port())
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
