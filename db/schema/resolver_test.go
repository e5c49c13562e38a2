package schema

import (
	"testing"

	"training-crm-backend/config"
	"training-crm-backend/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.Logger = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func TestResolveTableModernSchema(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Client{}))

	cm := NewResolver(db).ResolveTable(ClientsTable, ClientFieldCandidates)

	col, ok := cm.Column("id")
	assert.True(t, ok)
	assert.Equal(t, "client_id", col)

	col, ok = cm.Column("company_registration_nr")
	assert.True(t, ok)
	assert.Equal(t, "company_registration_nr", col)

	col, ok = cm.Column("main_client_id")
	assert.True(t, ok)
	assert.Equal(t, "main_client_id", col)

	assert.True(t, cm.Has("deleted_at"))
	assert.True(t, cm.Has("quotes"))
}

func TestResolveTableLegacySchema(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE clients (
		client_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		company_registration_number TEXT,
		seta TEXT,
		client_status TEXT,
		branch_of INTEGER,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)

	cm := NewResolver(db).ResolveTable(ClientsTable, ClientFieldCandidates)

	col, ok := cm.Column("company_registration_nr")
	assert.True(t, ok)
	assert.Equal(t, "company_registration_number", col)

	col, ok = cm.Column("main_client_id")
	assert.True(t, ok)
	assert.Equal(t, "branch_of", col)

	// No quotes or deleted_at column on this generation
	assert.False(t, cm.Has("quotes"))
	assert.False(t, cm.Has("deleted_at"))
	assert.Equal(t, "quotes", cm.ColumnOr("quotes", "quotes"))
}

func TestResolveTableMemoized(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Client{}))

	resolver := NewResolver(db)
	first := resolver.ResolveTable(ClientsTable, ClientFieldCandidates)

	// A second resolve must not probe the catalog again, even when the
	// table has since changed underneath
	require.NoError(t, db.Exec("DROP TABLE clients").Error)
	second := resolver.ResolveTable(ClientsTable, ClientFieldCandidates)

	assert.Same(t, first, second)
	assert.True(t, second.Has("client_name"))
}

func TestRelationExists(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Client{}))

	resolver := NewResolver(db)
	assert.True(t, resolver.RelationExists("clients"))
	assert.False(t, resolver.RelationExists("invoices"))
}

func TestColumnMapFields(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Client{}))

	cm := NewResolver(db).ResolveTable(ClientsTable, ClientFieldCandidates)
	fields := cm.Fields()
	assert.Contains(t, fields, "client_name")
	assert.Contains(t, fields, "main_client_id")
	assert.NotContains(t, fields, "does_not_exist")
}
