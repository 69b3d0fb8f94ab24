package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/innkeep/internal/app"
	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/monitoring"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		Server: app.ServerConfig{
			LoginRateLimit: app.RateLimitRule{Requests: 5, Window: time.Minute},
		},
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "innkeep.sqlite"),
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: "bootstrap-test-secret", Issuer: "innkeep"},
		},
		Maintenance: app.MaintenanceConfig{AuditRetentionDays: 30, Schedule: "@daily"},
		Bootstrap: app.BootstrapConfig{
			Username: "owner",
			Email:    "owner@example.com",
			Password: "first-start-pass",
		},
	}
}

func TestBootstrapRuntimeCreatesSuperadmin(t *testing.T) {
	cfg := testConfig(t)
	log := zap.NewNop()

	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	defer stack.Shutdown(context.Background(), log)

	require.NotNil(t, stack.Router)
	require.NotNil(t, stack.Hub)
	require.NotNil(t, stack.RateStore)
	require.Nil(t, stack.Redis)
	require.Nil(t, stack.Broker)

	var owner models.User
	require.NoError(t, stack.DB.Preload("GlobalRole").Where("username = ?", "owner").First(&owner).Error)
	require.True(t, owner.MustResetPassword)
	require.NotNil(t, owner.GlobalRole)
	require.Equal(t, models.RoleSuperadmin, owner.GlobalRole.Name)

	var permissionCount int64
	require.NoError(t, stack.DB.Model(&models.Permission{}).Count(&permissionCount).Error)
	require.NotZero(t, permissionCount)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBootstrapRuntimeIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	log := zap.NewNop()

	first, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	first.Shutdown(context.Background(), log)

	cfg.Bootstrap.Password = "a-different-pass"
	second, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	defer second.Shutdown(context.Background(), log)

	var count int64
	require.NoError(t, second.DB.Model(&models.User{}).Where("username = ?", "owner").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestBootstrapRuntimeFallsBackWhenRedisIsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Redis = app.RedisCacheConfig{Enabled: true, Address: "127.0.0.1:1", Timeout: 200 * time.Millisecond}
	log := zap.NewNop()

	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	defer stack.Shutdown(context.Background(), log)

	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.RateStore)

	report := stack.Health.Evaluate(context.Background())
	require.True(t, report.Ready)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
}

func TestShutdownNilStack(t *testing.T) {
	var stack *runtimeStack
	stack.Shutdown(context.Background(), zap.NewNop())
}

func TestLoadApplicationConfig(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9191\n"), 0o600))

	cfg, err := loadApplicationConfig(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
}
