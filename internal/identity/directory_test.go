package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"SafeTrail/pkg/cache"
	"SafeTrail/pkg/errors"
)

func openSeededDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "identity.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Seed(db))
	return db
}

func TestLookupSeededIdentity(t *testing.T) {
	directory, err := NewDirectory(openSeededDB(t), nil)
	require.NoError(t, err)

	ident, err := directory.Lookup(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", ident.Name)
	assert.Equal(t, "Mumbai, India", ident.HomeLocation)
	assert.Equal(t, "en", ident.Language)
}

func TestLookupUnknownIdentity(t *testing.T) {
	directory, err := NewDirectory(openSeededDB(t), nil)
	require.NoError(t, err)

	_, err = directory.Lookup(context.Background(), "000000000000")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIdentityUnknown))
}

func TestLookupServesRepeatHitsFromCache(t *testing.T) {
	db := openSeededDB(t)
	c := cache.NewLocalCache(cache.LocalConfig{DefaultExpiration: time.Minute, CleanupInterval: time.Minute})
	defer c.Close()

	directory, err := NewDirectory(db, c)
	require.NoError(t, err)

	first, err := directory.Lookup(context.Background(), "987654321098")
	require.NoError(t, err)

	// drop the row; the cached profile must still resolve
	require.NoError(t, db.Exec("DELETE FROM tourist_identities WHERE id = ?", "987654321098").Error)

	second, err := directory.Lookup(context.Background(), "987654321098")
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openSeededDB(t)
	require.NoError(t, Seed(db))

	directory, err := NewDirectory(db, nil)
	require.NoError(t, err)
	_, err = directory.Lookup(context.Background(), "456789012345")
	assert.NoError(t, err)
}

func TestEmergencyServices(t *testing.T) {
	services := EmergencyServices()
	assert.Equal(t, "100", services["police"].Phone)
	assert.Equal(t, "108", services["ambulance"].Phone)
	assert.Equal(t, "101", services["fire"].Phone)
	assert.Equal(t, "1363", services["tourist_helpline"].Phone)
}
