package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	MaxPages int    `json:"max_pages"`
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed in json5
		username: "alice",
		password: "secret",
		max_pages: 10,
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ password: "override" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Username: "alice",
		Password: "override",
		MaxPages: 10,
	}, cfg)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ username: "bob" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "bob", cfg.Username)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "dir/config.local.json5", localName("dir/config.json5"))
	require.Equal(t, "telemetry.local.json5", localName("telemetry.json5"))
}
