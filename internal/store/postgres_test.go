package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPostgres needs a scratch database; it truncates the efile tables.
func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	b, err := Open(ctx, url, PoolConfig{MaxConns: 4})
	require.NoError(t, err)
	defer b.Close()

	pg := b.(*Postgres)
	require.NoError(t, pg.Migrate(ctx))
	require.NoError(t, pg.Truncate(ctx))
	t.Cleanup(func() { _ = pg.Truncate(context.Background()) })

	testBackend(t, b)
}
