package storage

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpenRoundtrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("reports/job-1.csv", []byte("Task,Status\n"))
	require.NoError(t, err)
	assert.Equal(t, "reports/job-1.csv", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	data := make([]byte, 12)
	n, _ := file.Read(data)
	assert.Equal(t, "Task,Status\n", string(data[:n]))
}

func TestCleanupOlderThanRemovesOnlyExpiredFiles(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("reports/old.csv", []byte("stale"))
	require.NoError(t, err)
	_, err = store.Save("reports/new.csv", []byte("fresh"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("reports/old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/old.csv"}, deleted)

	_, err = os.Stat(store.Path("reports/old.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.Path("reports/new.csv"))
	assert.NoError(t, err)
}
