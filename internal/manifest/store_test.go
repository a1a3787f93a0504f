package manifest_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bpsdk-setup/internal/manifest"
)

func TestStore_ReadMissing(t *testing.T) {
	store := manifest.NewStore(afero.NewMemMapFs())

	_, err := store.Read("/p/package.json")
	assert.ErrorIs(t, err, manifest.ErrNotFound)

	m, err := store.ReadOptional("/p/package.json")
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestStore_ReadMalformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/package.json", []byte("{nope"), 0644))
	store := manifest.NewStore(fs)

	_, err := store.Read("/p/package.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, manifest.ErrNotFound)

	_, err = store.ReadOptional("/p/package.json")
	assert.Error(t, err)
}

func TestStore_WriteThenRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := manifest.NewStore(fs)
	m := mustParse(t, `{"name": "ui", "scripts": {"build": "vite build"}}`)

	require.NoError(t, store.Write("/p/ui/package.json", m))

	data, err := afero.ReadFile(fs, "/p/ui/package.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"ui\",\n  \"scripts\": {\n    \"build\": \"vite build\"\n  }\n}\n", string(data))

	back, err := store.Read("/p/ui/package.json")
	require.NoError(t, err)
	assert.Equal(t, "ui", *back.Name)
}

func TestStore_WriteKeepsMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/package.json", []byte(`{}`), 0600))
	store := manifest.NewStore(fs)

	require.NoError(t, store.Write("/p/package.json", mustParse(t, `{"name": "p"}`)))

	info, err := fs.Stat("/p/package.json")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())
}
