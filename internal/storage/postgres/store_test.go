package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hongminglow/storefront-accounts/internal/storage/storetest"
)

func TestStore(t *testing.T) {
	if os.Getenv("RUN_STORE_INTEGRATION") != "true" {
		t.Skip("set RUN_STORE_INTEGRATION=true and DATABASE_URL to run this integration test")
	}
	url := os.Getenv("DATABASE_URL")
	require.NotEmpty(t, url, "DATABASE_URL is required")

	store, err := NewStore(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Ping(context.Background()))
	storetest.Run(t, store)
}
