package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	appconfig "smartatm/backend/services/atm-service/internal/config"
	redisstore "smartatm/backend/services/atm-service/internal/redis"
)

func testConfig() *appconfig.Config {
	cfg := appconfig.Default()
	cfg.HTTP.Enabled = false
	cfg.Store.BcryptCost = bcrypt.MinCost
	return cfg
}

func TestAppRunsConsoleSession(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	script := "insert 1234\nbio B1\npin 4321\nwithdraw 50\n"
	var out bytes.Buffer
	ctx := context.Background()
	a, err := New(ctx, cfg, strings.NewReader(script), &out, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Run(ctx))
	assert.Contains(t, out.String(), "Withdrawn: 50.00")
	assert.Contains(t, out.String(), "Balance: 50.00")

	raw, err := mr.Get(redisstore.SessionKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"state":"authenticated"`)
	assert.NotContains(t, raw, `"1234"`)
}

func TestAppWithSQLiteStorePersistsSeeds(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = appconfig.DriverSQLite
	cfg.Store.DSN = filepath.Join(t.TempDir(), "atm.db")
	ctx := context.Background()

	var out bytes.Buffer
	a, err := New(ctx, cfg, strings.NewReader("insert 1234\nbio B1\npin 4321\ndeposit 10\n"), &out, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, a.Run(ctx))
	a.Close()
	assert.Contains(t, out.String(), "Balance: 110.00")

	out.Reset()
	a, err = New(ctx, cfg, strings.NewReader("insert 1234\nbio B1\npin 4321\nbalance\n"), &out, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Run(ctx))
	assert.Contains(t, out.String(), "Balance: 110.00", "seed must not reset an existing account")
}

func TestAppClearsStaleMirroredSession(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set(redisstore.SessionKey, `{"session_id":"old","card":"****","state":"pin_pending"}`))
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	core, logs := observer.New(zapcore.WarnLevel)
	a, err := New(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}, zap.New(core))
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, mr.Exists(redisstore.SessionKey))
	entries := logs.FilterMessage("clearing stale mirrored session").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].ContextMap()["session_id"])
	assert.Equal(t, "pin_pending", entries[0].ContextMap()["state"])
}

func TestAppSurvivesMissingRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Addr = "127.0.0.1:1"

	a, err := New(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.redis)
}
