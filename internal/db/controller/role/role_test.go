package role

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
	))

	// Seed the permission catalog the way the daemon does at startup.
	for _, e := range auth.Catalog() {
		require.NoError(t, db.Create(&models.Permission{
			Name:     e.ID,
			Resource: string(e.Resource),
			Action:   string(e.Action),
			Category: e.Category,
		}).Error)
	}

	return db
}

func TestCreateAndGet(t *testing.T) {
	db := setupTestDB(t)

	created, err := Create(db, "Helpdesk", "First-line support.", []string{"assets.view", "assets.checkout"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := Get(db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Helpdesk", got.Name)
	assert.False(t, got.IsSystem)
	assert.ElementsMatch(t, []string{"assets.view", "assets.checkout"}, got.Permissions)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	db := setupTestDB(t)

	_, err := Create(db, "", "", nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestCreateRejectsUnknownPermission(t *testing.T) {
	db := setupTestDB(t)

	_, err := Create(db, "Helpdesk", "", []string{"assets.view", "warp.drive"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "permissions", verr.Field)

	// Nothing was persisted.
	var count int64
	require.NoError(t, db.Model(&models.Role{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateReplacesGrid(t *testing.T) {
	db := setupTestDB(t)

	created, err := Create(db, "Helpdesk", "", []string{"assets.view"})
	require.NoError(t, err)

	require.NoError(t, Update(db, created.ID, "Second-line.", []string{"assets.view", "assets.checkin"}))

	got, err := Get(db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second-line.", got.Description)
	assert.ElementsMatch(t, []string{"assets.view", "assets.checkin"}, got.Permissions)
}

func TestUpdateUnknownRole(t *testing.T) {
	db := setupTestDB(t)

	assert.ErrorIs(t, Update(db, 999, "", nil), ErrRoleNotFound)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)

	created, err := Create(db, "Helpdesk", "", []string{"assets.view"})
	require.NoError(t, err)

	require.NoError(t, Delete(db, created.ID))

	_, err = Get(db, created.ID)
	assert.ErrorIs(t, err, ErrRoleNotFound)

	// Junction rows are cleaned up.
	var count int64
	require.NoError(t, db.Model(&models.RolePermission{}).Where("role_id = ?", created.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteRefusesSystemRole(t *testing.T) {
	db := setupTestDB(t)

	system := models.Role{Name: "Read-Only", IsSystem: true}
	require.NoError(t, db.Create(&system).Error)

	assert.ErrorIs(t, Delete(db, system.ID), ErrRoleIsSystem)
}

func TestDeleteRefusesAssignedRole(t *testing.T) {
	db := setupTestDB(t)

	created, err := Create(db, "Helpdesk", "", []string{"assets.view"})
	require.NoError(t, err)

	user := models.User{Username: "alice", Email: "alice@example.com", Active: true, RoleID: &created.ID}
	require.NoError(t, db.Create(&user).Error)

	var verr *ValidationError
	require.ErrorAs(t, Delete(db, created.ID), &verr)
}

func TestListFromServer(t *testing.T) {
	db := setupTestDB(t)

	_, err := Create(db, "Helpdesk", "", []string{"assets.view"})
	require.NoError(t, err)

	roles, source, err := List(db)
	require.NoError(t, err)
	assert.Equal(t, SourceServer, source)
	require.Len(t, roles, 1)
	assert.Equal(t, "Helpdesk", roles[0].Name)
}

func TestListFallsBackToBuiltinWhenUnseeded(t *testing.T) {
	db := setupTestDB(t)

	// No roles seeded yet: the picker still gets the predefined set.
	roles, source, err := List(db)
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, source)
	assert.NotEmpty(t, roles)
}

func TestBuiltinIncludesAdministrator(t *testing.T) {
	var admin *Role

	for _, r := range Builtin() {
		if r.Name == "Administrator" {
			admin = &r
			break
		}
	}

	require.NotNil(t, admin, "Administrator must be a predefined role")
	assert.True(t, admin.IsSystem)

	// The Administrator grid carries the whole catalog.
	for _, e := range auth.Catalog() {
		assert.Contains(t, admin.Permissions, e.ID)
	}
}

func TestListFallsBackToBuiltin(t *testing.T) {
	roles, source, err := List(nil)
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, source)
	require.NotEmpty(t, roles)

	// Every builtin grid entry must exist in the permission catalog.
	for _, r := range roles {
		assert.True(t, r.IsSystem)

		for _, id := range r.Permissions {
			assert.True(t, auth.InCatalog(id), "builtin role %s carries unknown permission %s", r.Name, id)
		}
	}
}
