package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
}

func TestLoad_File(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, "lattice.yaml", `
agent:
  name: echo
  instructions: Repeat the user.
  max_iterations: 4
openai:
  base_url: http://localhost:11434/v1
  timeout: 5s
tools_file: tools.yaml
store:
  backend: redis
  redis:
    addr: redis:6379
    ttl: 1h
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "echo", cfg.Agent.Name)
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.Model, "unset keys keep their defaults")
	assert.Equal(t, 4, cfg.Agent.MaxIterations)
	assert.Equal(t, 5*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "tools.yaml", cfg.ToolsFile)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LATTICE_MODEL", "gpt-4o")
	t.Setenv("LATTICE_STORE", "sqlite")
	t.Setenv("LATTICE_SQLITE_PATH", "/tmp/runs.db")
	t.Setenv("LATTICE_MAX_ITERATIONS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Agent.Model)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.SQLite.Path)
	assert.Equal(t, 7, cfg.Agent.MaxIterations)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LATTICE_ADDR=127.0.0.1:9090\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("LATTICE_ADDR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown backend", "store:\n  backend: mongo\n", "store.backend must be one of"},
		{"redis without addr", "store:\n  backend: redis\n  redis:\n    addr: \"\"\n", "store.redis.addr is required"},
		{"bad addr", "server:\n  addr: nope\n", "server.addr failed \"hostname_port\" validation"},
		{"bad level", "log:\n  level: loud\n", "log.level must be one of"},
		{"unknown key", "agent:\n  temperature: 2\n", "field temperature not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
