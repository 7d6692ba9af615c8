package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// scaffold renders both halves of a pair; Up selects the half.
var scaffold = template.Must(template.New("migration").Parse(`-- {{.Version}} {{.Name}}{{if not .Up}} (rollback){{end}}
-- created {{.Timestamp}}
{{- if and .Up .Description}}
-- {{.Description}}
{{- end}}
{{- if .Up}}

-- entity_items(pk, sk, kind, project_id, baseline_id, version, data,
--              expires_at, created_at, updated_at)
{{- end}}

`))

const versionWidth = 6

// MigrationFile describes a scaffolded up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes the next sequentially numbered up/down pair into
// migrationsDir. Numbers follow the highest existing version.
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}
	existing, err := ListMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}
	next, err := nextVersion(existing)
	if err != nil {
		return nil, err
	}

	version := fmt.Sprintf("%0*d", versionWidth, next)
	stem := filepath.Join(migrationsDir, version+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		UpPath:      stem + ".up.sql",
		DownPath:    stem + ".down.sql",
	}

	var written []string
	for _, half := range []struct {
		path string
		up   bool
	}{{mf.UpPath, true}, {mf.DownPath, false}} {
		if err := writeHalf(half.path, mf, half.up); err != nil {
			for _, p := range written {
				err = errors.Join(err, os.Remove(p))
			}
			return nil, err
		}
		written = append(written, half.path)
	}
	return mf, nil
}

// writeHalf refuses to overwrite, so two concurrent creates cannot share a
// version.
func writeHalf(path string, mf *MigrationFile, up bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	data := struct {
		*MigrationFile
		Up bool
	}{mf, up}
	return errors.Join(scaffold.Execute(f, data), f.Close())
}

func nextVersion(existing []string) (int, error) {
	highest := 0
	for _, base := range existing {
		n, err := parseVersion(base)
		if err != nil {
			return 0, err
		}
		highest = max(highest, n)
	}
	return highest + 1, nil
}

func parseVersion(base string) (int, error) {
	prefix, _, _ := strings.Cut(base, "_")
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %q has a non-numeric version", base)
	}
	return n, nil
}

// sanitizeName converts a migration name to lower snake case
func sanitizeName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ListMigrations returns the sorted stems of the up migrations in
// migrationsDir. A missing directory lists nothing.
func ListMigrations(migrationsDir string) ([]string, error) {
	names, err := listUpFiles(os.DirFS(migrationsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	return names, err
}

func listUpFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if stem, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok && !entry.IsDir() {
			names = append(names, stem)
		}
	}
	slices.Sort(names)
	return names, nil
}
