package alerts

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/db/controller/setting"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	require.NoError(t, db.AutoMigrate(&models.Setting{}), "failed to migrate test database")

	return db
}

func TestLoadBeforeSave(t *testing.T) {
	db := setupTestDB(t)

	var s Settings
	assert.ErrorIs(t, s.Load(db), setting.ErrSettingNotFound)
}

func TestSaveAndLoad(t *testing.T) {
	db := setupTestDB(t)

	in := Settings{
		WarnDaysBefore: 7,
		NotifyEmail:    "ops@example.com",
		IncludeAssets:  true,
		IncludeIAM:     true,
	}
	require.NoError(t, in.Save(db))

	var out Settings
	require.NoError(t, out.Load(db))
	assert.Equal(t, in, out)

	// Saving again overwrites the blob in place.
	in.WarnDaysBefore = 1
	require.NoError(t, in.Save(db))

	require.NoError(t, out.Load(db))
	assert.Equal(t, 1, out.WarnDaysBefore)
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, 3, d.WarnDaysBefore)
	assert.True(t, d.IncludeAssets)
	assert.True(t, d.IncludeVMs)
	assert.True(t, d.IncludeIAM)
}
