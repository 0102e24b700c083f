package evidence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"SafeTrail/internal/models"
)

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestAppendAndVerify(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "evidence.db"))
	chain, err := Open(db)
	require.NoError(t, err)

	entry, err := chain.Append("123456789012", "login", map[string]string{"session": "conn_1"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.EntryID)
	assert.NotEmpty(t, entry.Hash)
	assert.Equal(t, "123456789012", entry.Subject)

	_, err = chain.Append("123456789012", "sos_triggered", map[string]string{"sos_id": "s1"})
	require.NoError(t, err)

	bad, err := chain.Verify(context.Background())
	require.NoError(t, err)
	assert.Nil(t, bad)

	n, err := chain.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestVerifyDetectsTamperedEntry(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "evidence.db"))
	chain, err := Open(db)
	require.NoError(t, err)

	first, err := chain.Append("sub", "login", nil)
	require.NoError(t, err)
	tampered, err := chain.Append("sub", "zone_breach", map[string]string{"zone": "1"})
	require.NoError(t, err)
	_, err = chain.Append("sub", "sos_triggered", nil)
	require.NoError(t, err)

	// rewrite one field behind the chain's back
	require.NoError(t, db.Model(&models.EvidenceEntry{}).
		Where("entry_id = ?", tampered.EntryID).
		Update("payload", `{"zone":"99"}`).Error)

	bad, err := chain.Verify(context.Background())
	require.NoError(t, err)
	require.NotNil(t, bad)
	assert.Equal(t, tampered.EntryID, bad.EntryID)
	assert.NotEqual(t, first.EntryID, bad.EntryID)
}

func TestVerifyDetectsTamperedTimestamp(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "evidence.db"))
	chain, err := Open(db)
	require.NoError(t, err)

	entry, err := chain.Append("sub", "login", nil)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.EvidenceEntry{}).
		Where("entry_id = ?", entry.EntryID).
		Update("timestamp", entry.Timestamp+1).Error)

	bad, err := chain.Verify(context.Background())
	require.NoError(t, err)
	require.NotNil(t, bad)
	assert.Equal(t, entry.EntryID, bad.EntryID)
}

func TestVerifySurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.db")

	chain, err := Open(openTestDB(t, path))
	require.NoError(t, err)
	_, err = chain.Append("sub", "login", map[string]string{"k": "v"})
	require.NoError(t, err)
	_, err = chain.Append("sub", "session_issued", nil)
	require.NoError(t, err)

	// a fresh process over the same file must still verify
	reloaded, err := Open(openTestDB(t, path))
	require.NoError(t, err)

	bad, err := reloaded.Verify(context.Background())
	require.NoError(t, err)
	assert.Nil(t, bad)

	n, err := reloaded.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBySubject(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "evidence.db"))
	chain, err := Open(db)
	require.NoError(t, err)

	_, err = chain.Append("alice", "login", nil)
	require.NoError(t, err)
	_, err = chain.Append("bob", "login", nil)
	require.NoError(t, err)
	_, err = chain.Append("alice", "sos_triggered", nil)
	require.NoError(t, err)

	entries, err := chain.BySubject(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "login", entries[0].EventType)
	assert.Equal(t, "sos_triggered", entries[1].EventType)
}
