package presetstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nategarelik/ox-board-sub009/internal/gesture"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	return store
}

func userDocument(id string) gesture.PresetDocument {
	builtin := gesture.BuiltinPresets()[0]
	doc := gesture.DocumentFromPreset(builtin)
	doc.ID = id
	doc.Name = "User Preset"
	return doc
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := newStore(t)
	doc := userDocument("my-preset")

	require.NoError(t, store.Save(doc))

	loaded, err := store.Load("my-preset")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, loaded.ID)
	assert.Equal(t, doc.Name, loaded.Name)
	assert.Len(t, loaded.Mappings, len(doc.Mappings))
}

func TestStoreLoadBuiltins(t *testing.T) {
	store := newStore(t)

	for _, builtin := range gesture.BuiltinPresets() {
		doc, err := store.Load(builtin.ID)
		require.NoError(t, err)
		assert.Equal(t, builtin.ID, doc.ID)
		assert.Equal(t, gesture.PresetSchemaVersion, doc.SchemaVersion)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newStore(t)
	_, err := store.Load("nope")
	assert.ErrorIs(t, err, ErrPresetNotFound)
}

func TestStoreBuiltinsAreReadOnly(t *testing.T) {
	store := newStore(t)
	builtinID := gesture.BuiltinPresets()[0].ID

	doc := userDocument(builtinID)
	assert.ErrorIs(t, store.Save(doc), ErrPresetReadOnly)
	assert.ErrorIs(t, store.Delete(builtinID), ErrPresetReadOnly)
}

func TestStoreDelete(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Save(userDocument("ephemeral")))
	require.NoError(t, store.Delete("ephemeral"))

	_, err := store.Load("ephemeral")
	assert.ErrorIs(t, err, ErrPresetNotFound)
	assert.ErrorIs(t, store.Delete("ephemeral"), ErrPresetNotFound)
}

func TestStoreRejectsPathEscapes(t *testing.T) {
	store := newStore(t)

	for _, id := range []string{"", "../escape", "a/b", `a\b`, "x..y"} {
		_, err := store.Load(id)
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}
}

func TestStoreListSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(userDocument("valid")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	infos := store.List()
	builtinCount := len(gesture.BuiltinPresets())
	require.Len(t, infos, builtinCount+1)

	// Built-ins come first
	for i := 0; i < builtinCount; i++ {
		assert.True(t, infos[i].BuiltIn)
	}
	assert.Equal(t, "valid", infos[builtinCount].ID)
	assert.False(t, infos[builtinCount].BuiltIn)
}

func TestStoreSaveOverwritesAtomically(t *testing.T) {
	store := newStore(t)

	doc := userDocument("overwrite")
	require.NoError(t, store.Save(doc))

	doc.Name = "Renamed"
	require.NoError(t, store.Save(doc))

	loaded, err := store.Load("overwrite")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
}
