package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add rubro index", "add_rubro_index"},
		{"Add-Rubro-Index", "add_rubro_index"},
		{"ADD_RUBRO_INDEX", "add_rubro_index"},
		{"add__rubro__index", "add_rubro_index"},
		{"Baseline 2025", "baseline_2025"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000001_create_entity_items.up.sql",
		"000001_create_entity_items.down.sql",
		"000002_scan_keyset_index.up.sql",
		"000002_scan_keyset_index.down.sql",
	)

	mf, err := CreateMigration(dir, "add audit ttl", "Expire archived audit rows")
	require.NoError(t, err)
	assert.Equal(t, "000003", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000003_add_audit_ttl.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000003_add_audit_ttl.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add audit ttl")
	assert.Contains(t, string(up), "Expire archived audit rows")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")
	assert.NotContains(t, string(down), "entity_items")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(nested, "init", "first")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestCreateMigration_RejectsNonNumericVersion(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "latest_schema.up.sql")

	_, err := CreateMigration(dir, "next", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000002_b.up.sql", "000002_b.down.sql",
		"000001_a.up.sql", "000001_a.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_a", "000002_b"}, names)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	names, err := ListMigrations(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedVersions(t *testing.T) {
	names, err := EmbeddedVersions()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_create_entity_items", names[0])
	for _, n := range names {
		_, err := parseVersion(n)
		assert.NoError(t, err, n)
	}
}
