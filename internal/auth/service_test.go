package auth

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedRole creates a role carrying the given catalog permission ids.
func seedRole(t *testing.T, db *gorm.DB, name string, permissionIDs ...string) models.Role {
	t.Helper()

	role := models.Role{Name: name}
	require.NoError(t, db.Create(&role).Error)

	for _, id := range permissionIDs {
		perm := models.Permission{Name: id}
		require.NoError(t, db.Where("name = ?", id).FirstOrCreate(&perm, perm).Error)
		require.NoError(t, db.Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error)
	}

	return role
}

func TestSnapshot_ResolvesRoleGrid(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	role := seedRole(t, db, "Asset Manager", "assets.view", "assets.checkout")

	user := models.User{Username: "alice", Email: "alice@example.com", Active: true, RoleID: &role.ID}
	require.NoError(t, db.Create(&user).Error)

	subject, err := svc.Snapshot(user.ID)
	require.NoError(t, err)

	assert.Equal(t, user.ID, subject.ID)
	assert.False(t, subject.IsAdmin)
	require.NotNil(t, subject.RoleID)
	assert.Equal(t, role.ID, *subject.RoleID)
	assert.True(t, subject.Permissions.Allowed(ResourceAssets, ActionView))
	assert.True(t, subject.Permissions.Allowed(ResourceAssets, ActionCheckout))
	assert.False(t, subject.Permissions.Allowed(ResourceAssets, ActionDelete))
}

func TestSnapshot_UnknownUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	_, err := svc.Snapshot(999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetSubjectAuthority_RoleClearsAdminFlag(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	role := seedRole(t, db, "Read-Only", "assets.view")

	user := models.User{Username: "bob", Email: "bob@example.com", Active: true, IsAdmin: true}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, svc.SetSubjectAuthority(user.ID, RoleAuthority(role.ID)))

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.False(t, got.IsAdmin)
	require.NotNil(t, got.RoleID)
	assert.Equal(t, role.ID, *got.RoleID)
}

func TestSetSubjectAuthority_AdminClearsRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	role := seedRole(t, db, "User Manager")

	user := models.User{Username: "carol", Email: "carol@example.com", Active: true, RoleID: &role.ID}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, svc.SetSubjectAuthority(user.ID, AdminAuthority()))

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.True(t, got.IsAdmin)
	assert.Nil(t, got.RoleID)
}

func TestSetSubjectAuthority_UnknownSubject(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	err := svc.SetSubjectAuthority(12345, AdminAuthority())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestToggleAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	role := seedRole(t, db, "Read-Only")

	user := models.User{Username: "dave", Email: "dave@example.com", Active: true, RoleID: &role.ID}
	require.NoError(t, db.Create(&user).Error)

	// Turning admin on clears the role.
	require.NoError(t, svc.ToggleAdmin(user.ID, true))

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.True(t, got.IsAdmin)
	assert.Nil(t, got.RoleID)

	// Turning admin off leaves the subject without authority.
	require.NoError(t, svc.ToggleAdmin(user.ID, false))

	require.NoError(t, db.First(&got, user.ID).Error)
	assert.False(t, got.IsAdmin)
	assert.Nil(t, got.RoleID)
}

func TestMFAStatusAndEnrollment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	user := models.User{Username: "erin", Email: "erin@example.com", Active: true}
	require.NoError(t, db.Create(&user).Error)

	st, err := svc.MFAStatus(user.ID)
	require.NoError(t, err)
	assert.False(t, st.Enabled)

	key, err := GenerateMFAKey("GoAssetDesk", "erin")
	require.NoError(t, err)

	require.NoError(t, svc.EnableMFA(user.ID, key.Secret()))

	st, err = svc.MFAStatus(user.ID)
	require.NoError(t, err)
	assert.True(t, st.Enabled)

	// A current code validates; garbage does not.
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	assert.NoError(t, svc.VerifyMFALogin(user.ID, code))
	assert.ErrorIs(t, svc.VerifyMFALogin(user.ID, "000000"), ErrInvalidMFACode)

	require.NoError(t, svc.DisableMFA(user.ID))
	assert.ErrorIs(t, svc.VerifyMFALogin(user.ID, code), ErrMFANotEnrolled)
}

func TestLocalProvider_AuthenticateReportsChallenge(t *testing.T) {
	db := setupTestDB(t)
	lp := NewLocalProvider(db)

	user, err := lp.CreateUser("frank", "frank@example.com", "secret", "Frank", "Doe", nil)
	require.NoError(t, err)

	_, result, err := lp.Authenticate("frank", "secret")
	require.NoError(t, err)
	assert.False(t, RequiresMFAChallenge(result))

	// After enrollment the same login demands a one-time code.
	svc := NewService(db)
	key, err := GenerateMFAKey("GoAssetDesk", "frank")
	require.NoError(t, err)
	require.NoError(t, svc.EnableMFA(user.ID, key.Secret()))

	_, result, err = lp.Authenticate("frank", "secret")
	require.NoError(t, err)
	assert.True(t, RequiresMFAChallenge(result))

	// Wrong password still fails regardless.
	_, _, err = lp.Authenticate("frank", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}
