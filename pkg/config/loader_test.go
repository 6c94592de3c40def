package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mondrian.yaml"), []byte(contents), 0o644))
}

func TestInitialize_BuiltinAdvisorsOnly(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "advisors: {}\n")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Contains(t, cfg.AdvisorRegistry.GetAll(), "ansel")
	assert.Equal(t, 1, cfg.Queue.WorkerCount)
	assert.Equal(t, 0.25, cfg.Retrieval.MinStdDev)
}

func TestInitialize_UserAdvisorOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
advisors:
  ansel:
    display_name: "Ansel Overridden"
    prompt_body: "custom prompt"
  custom:
    display_name: "Custom"
    prompt_body: "custom prompt body"
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	ansel, err := cfg.GetAdvisor("ansel")
	require.NoError(t, err)
	assert.Equal(t, "Ansel Overridden", ansel.DisplayName)

	_, err = cfg.GetAdvisor("custom")
	require.NoError(t, err)

	_, err = cfg.GetAdvisor("nonexistent")
	assert.ErrorIs(t, err, ErrAdvisorNotFound)
}

func TestInitialize_QueueMergeOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
advisors: {}
queue:
  worker_count: 3
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Queue.WorkerCount)
	assert.Equal(t, DefaultQueueConfig().PollInterval, cfg.Queue.PollInterval)
}

func TestInitialize_MissingPromptBodyFailsValidation(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
advisors:
  broken:
    display_name: "Broken"
`)

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitialize_MissingFileReturnsLoadError(t *testing.T) {
	_, err := Initialize(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
