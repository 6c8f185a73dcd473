package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wevolve/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	fp, err := NewFilePersister(path)
	require.NoError(t, err)

	_, found, err := fp.Load(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, fp.Save(ctx, "a", []byte(`{"x":1}`)))
	require.NoError(t, fp.Save(ctx, "b", []byte(`[1,2]`)))

	data, found, err := fp.Load(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"x":1}`, string(data))

	require.NoError(t, fp.Delete(ctx, "a"))
	_, found, err = fp.Load(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	data, found, err = fp.Load(ctx, "b")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `[1,2]`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFilePersisterRejectsInvalidJSON(t *testing.T) {
	fp, err := NewFilePersister(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	assert.Error(t, fp.Save(context.Background(), "a", []byte("not json")))
}

func TestFilePersisterCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o644))

	fp, err := NewFilePersister(path)
	require.NoError(t, err)

	_, _, err = fp.Load(context.Background(), "a")
	assert.Error(t, err)

	require.NoError(t, fp.Save(context.Background(), "a", []byte(`"ok"`)))
	data, found, err := fp.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `"ok"`, string(data))
}

func TestNewFilePersisterEmptyPath(t *testing.T) {
	_, err := NewFilePersister("")
	assert.Error(t, err)
}

func TestStoreSurvivesRestartWithFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fp, err := NewFilePersister(path)
	require.NoError(t, err)
	s := New(WithPersister(fp))
	s.SetProfile(sampleProfile())

	fp2, err := NewFilePersister(path)
	require.NoError(t, err)
	restarted := New(WithPersister(fp2))
	restarted.Hydrate(context.Background())

	p, ok := restarted.Profile()
	require.True(t, ok)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
}

func TestFileWatcherReloadsExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fp, err := NewFilePersister(path)
	require.NoError(t, err)
	s := New(WithPersister(fp))
	s.SetProfile(sampleProfile())

	w := NewFileWatcher(path, s, 20*time.Millisecond, nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start())

	other, err := NewFilePersister(path)
	require.NoError(t, err)
	changed := sampleProfile()
	changed.Name = "Edited From CLI"
	data, err := json.Marshal(changed)
	require.NoError(t, err)
	require.NoError(t, other.Save(context.Background(), s.Key(), data))

	assert.Eventually(t, func() bool {
		p, ok := s.Profile()
		return ok && p.Name == "Edited From CLI"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, other.Delete(context.Background(), s.Key()))
	assert.Eventually(t, func() bool { return !s.HasProfile() }, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	w := NewFileWatcher(path, New(), 0, nil)

	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

func TestJobStoreToggleAndPersist(t *testing.T) {
	mp := NewMemoryPersister()
	js := NewJobStore(WithPersister(mp))
	js.SetJobs("go", []types.JobPosting{
		{JobID: "J1", Title: "Go Dev"},
		{JobID: "J2", Title: "SRE"},
	})

	saved, err := js.ToggleSaveJob("J2")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, js.IsSaved("J2"))

	list := js.Jobs()
	assert.Equal(t, "go", list.Query)
	assert.Len(t, list.Jobs, 2)
	assert.Equal(t, []string{"J2"}, list.Saved)

	_, err = js.ToggleSaveJob("missing")
	assert.Error(t, err)

	restarted := NewJobStore(WithPersister(mp))
	restarted.Hydrate(context.Background())
	savedList := restarted.SavedJobs()
	require.Len(t, savedList.Jobs, 1)
	assert.Equal(t, "SRE", savedList.Jobs[0].Title)

	// a saved posting can be unsaved even after the result list changed
	restarted.SetJobs("", nil)
	saved, err = restarted.ToggleSaveJob("J2")
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, restarted.SavedJobs().Jobs)
	assert.NotNil(t, restarted.Jobs().Jobs)
}
