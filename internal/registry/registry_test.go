package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := Load(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return r
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"prisma", FormatPrisma, false},
		{" Prisma ", FormatPrisma, false},
		{"yaml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	r := newRegistry(t)
	assert.Empty(t, r.Databases())
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, r.Databases())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{nope"},
		{"missing url", `[{"name": "app", "disk_mappings": []}]`},
		{"bad format", `[{"name": "app", "db_url": "mysql://x", "disk_mappings": [{"format": "yaml", "path": "a"}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	r, err := Load(path)
	require.NoError(t, err)

	added, err := r.Add(Database{Name: "shop", URL: "mysql://root@localhost/shop"})
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, r.SetMapping("shop", FormatPrisma, "schema.prisma"))
	require.NoError(t, r.SetMapping("shop", FormatJSON, "schema.json"))
	require.NoError(t, r.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"db_url": "mysql://root@localhost/shop"`)
	assert.Contains(t, string(data), `"disk_mappings"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.Databases(), loaded.Databases())
}

func TestSaveEmptyWritesArray(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Save())

	data, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestAdd(t *testing.T) {
	r := newRegistry(t)

	added, err := r.Add(Database{Name: "a", URL: "mysql://a"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Add(Database{Name: "empty"})
	require.NoError(t, err)
	assert.False(t, added, "empty url is skipped")

	added, err = r.Add(Database{Name: "b", URL: "mysql://a"})
	require.NoError(t, err)
	assert.False(t, added, "duplicate url is skipped")

	_, err = r.Add(Database{Name: "a", URL: "mysql://other"})
	assert.Error(t, err, "duplicate name is rejected")

	_, err = r.Add(Database{URL: "mysql://noname"})
	assert.Error(t, err)

	assert.Len(t, r.Databases(), 1)
}

func TestDatabasesSorted(t *testing.T) {
	r := newRegistry(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := r.Add(Database{Name: name, URL: "mysql://" + name})
		require.NoError(t, err)
	}

	var names []string
	for _, db := range r.Databases() {
		names = append(names, db.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestDatabasesKeepsPointersStable(t *testing.T) {
	r := newRegistry(t)
	for _, name := range []string{"zeta", "alpha"} {
		_, err := r.Add(Database{Name: name, URL: "mysql://" + name})
		require.NoError(t, err)
	}

	zeta, err := r.Get("zeta")
	require.NoError(t, err)

	databases := r.Databases()
	require.Len(t, databases, 2)
	assert.Equal(t, "alpha", databases[0].Name)
	assert.Equal(t, "zeta", zeta.Name)
	assert.Equal(t, "mysql://zeta", zeta.URL)

	databases[0].Name = "changed"
	databases[1].DiskMappings = append(databases[1].DiskMappings, DiskMapping{Format: FormatJSON, Path: "x.json"})
	assert.NotNil(t, r.Find("alpha"))
	assert.Empty(t, zeta.DiskMappings)
}

func TestRemove(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Add(Database{Name: "a", URL: "mysql://a"})
	require.NoError(t, err)

	require.NoError(t, r.Remove("a"))
	assert.Nil(t, r.Find("a"))
	assert.ErrorIs(t, r.Remove("a"), ErrNotFound)
}

func TestRename(t *testing.T) {
	r := newRegistry(t)
	for _, name := range []string{"a", "b"} {
		_, err := r.Add(Database{Name: name, URL: "mysql://" + name})
		require.NoError(t, err)
	}

	require.NoError(t, r.Rename("a", "c"))
	assert.NotNil(t, r.Find("c"))
	assert.Nil(t, r.Find("a"))

	assert.Error(t, r.Rename("c", "b"))
	assert.Error(t, r.Rename("c", " "))
	assert.ErrorIs(t, r.Rename("missing", "d"), ErrNotFound)
}

func TestMappings(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Add(Database{Name: "a", URL: "mysql://a"})
	require.NoError(t, err)

	db, err := r.Get("a")
	require.NoError(t, err)
	_, err = db.Mapping(FormatPrisma)
	assert.ErrorIs(t, err, ErrNoMapping)

	require.NoError(t, r.SetMapping("a", FormatPrisma, "one.prisma"))
	require.NoError(t, r.SetMapping("a", FormatPrisma, "two.prisma"))

	m, err := db.Mapping(FormatPrisma)
	require.NoError(t, err)
	assert.Equal(t, DiskMapping{Format: FormatPrisma, Path: "two.prisma"}, m)
	assert.Len(t, db.DiskMappings, 1)

	assert.Error(t, r.SetMapping("a", Format("yaml"), "x"))
	assert.Error(t, r.SetMapping("a", FormatJSON, ""))
	assert.ErrorIs(t, r.SetMapping("missing", FormatJSON, "x"), ErrNotFound)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
