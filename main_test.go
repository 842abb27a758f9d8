package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sp-export/config"
	"sp-export/logger"
	"sp-export/models"
	"sp-export/services"
)

func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCmd_MasksSecrets(t *testing.T) {
	t.Setenv("DB_SERVER", "sql.internal")
	t.Setenv("DB_PASSWORD", "hunter2")

	out, err := executeCmd(t, "config", "--bucket", "from-flag")
	require.NoError(t, err)
	assert.Contains(t, out, "sql.internal")
	assert.Contains(t, out, "from-flag")
	assert.NotContains(t, out, "hunter2")
}

func TestRunCmd_ReportsConfigurationError(t *testing.T) {
	t.Setenv("SP_EXPORT_STORAGE_LOCAL_PATH", t.TempDir())

	out, err := executeCmd(t, "run", "--storage-type", "local", "--bucket", "exports", "--log-level", "error")
	require.Error(t, err)

	var resp models.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Body, "Configuration error")
}

func TestRunCmd_RejectsBadEvent(t *testing.T) {
	_, err := executeCmd(t, "run", "--event", "{not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestServeCmd_PortFlag(t *testing.T) {
	cmd := newServeCmd(&rootOptions{})
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9090"}))

	cfg, err := config.Load("", cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestNewApp_Routes(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Type = config.StorageLocal
	cfg.Storage.LocalPath = t.TempDir()
	rt := &runtime{cfg: cfg, log: logger.Discard()}

	app := newApp(rt, services.NewExportService(cfg, rt.log, nil))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/api/export/enqueue", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/export/invoke", http.StatusInternalServerError},
		{http.MethodGet, "/swagger/doc.json", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
