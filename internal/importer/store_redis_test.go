// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package importer_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psu-triup/portal/internal/backend"
	"github.com/psu-triup/portal/internal/importer"
	"github.com/psu-triup/portal/internal/platform/redis"
)

/*
TestRedisStatusStore runs against a real Redis when PORTAL_TEST_REDIS_URL is set.
*/
func TestRedisStatusStore(t *testing.T) {
	url := os.Getenv("PORTAL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PORTAL_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := redis.NewClient(ctx, url, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := importer.NewRedisStatusStore(client)
	require.NoError(t, client.Del(ctx, "portal:import:last:import-server-fix", "portal:import:last:fetch-all").Err())

	finished := time.Date(2026, 3, 1, 2, 0, 5, 0, time.UTC)
	require.NoError(t, store.Save(ctx, importer.Result{
		Script:     backend.ScriptImportFix,
		Success:    true,
		Report:     []byte(`{"updated":3}`),
		StartedAt:  finished.Add(-5 * time.Second),
		FinishedAt: finished,
	}))

	loaded, err := store.Load(ctx, []backend.Script{backend.ScriptFetchAll, backend.ScriptImportFix})
	require.NoError(t, err)
	assert.NotContains(t, loaded, backend.ScriptFetchAll)
	require.Contains(t, loaded, backend.ScriptImportFix)
	assert.True(t, finished.Equal(loaded[backend.ScriptImportFix].FinishedAt))
	assert.JSONEq(t, `{"updated":3}`, string(loaded[backend.ScriptImportFix].Report))
}
