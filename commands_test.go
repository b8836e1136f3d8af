package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freemirror/yatube/cache"
	"github.com/freemirror/yatube/config"
	"github.com/freemirror/yatube/storage"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "app:\n  JWTSecret: cli-secret\n" +
		"database:\n  Driver: sqlite\n  DatabaseURI: " + filepath.Join(dir, "cli.db") + "\n" +
		"storage:\n  MediaRoot: " + filepath.Join(dir, "media") + "\n" +
		"log:\n  Level: silent\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGroupCommands(t *testing.T) {
	path, _ := writeConfig(t)

	out, err := run(t, "--config", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")

	out, err = run(t, "--config", path, "group", "create", "--title", "Cats", "--slug", "cats")
	require.NoError(t, err)
	assert.Contains(t, out, "cats (Cats)")

	_, err = run(t, "--config", path, "group", "create", "--title", "Again", "--slug", "cats")
	assert.ErrorContains(t, err, "slug already exists")

	_, err = run(t, "--config", path, "group", "create", "--title", "Bad", "--slug", "no spaces")
	assert.Error(t, err)

	out, err = run(t, "--config", path, "group", "delete", "cats")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted group cats")

	_, err = run(t, "--config", path, "group", "delete", "cats")
	assert.ErrorContains(t, err, "not found")
}

func TestUserDelete_Unknown(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := run(t, "--config", path, "user", "delete", "nobody")
	assert.ErrorContains(t, err, "not found")
}

func TestCacheClear_MemoryBackendRefused(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := run(t, "--config", path, "cache", "clear")
	assert.ErrorContains(t, err, "/admin/cache/clear/")
}

func TestOpenBackends_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.WithDefaults(config.AppConfig{JWTSecret: "x", MediaRoot: filepath.Join(dir, "media")})
	require.NoError(t, err)

	store, closer, err := openCache(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryStore{}, store)
	assert.NoError(t, closer.Close())

	files, err := openStorage(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, files)
	assert.DirExists(t, filepath.Join(dir, "media"))
}
