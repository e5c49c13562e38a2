package services

import (
	"context"
	"testing"

	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/internal/kvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLocationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.Logger = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Location{}))
	return db
}

func seedLocations(t *testing.T, db *gorm.DB) []models.Location {
	t.Helper()
	rows := []models.Location{
		{StreetAddress: "10 Rivonia Rd", Suburb: "Sandton", Town: "Johannesburg", Province: "Gauteng", PostalCode: "2196"},
		{StreetAddress: "1 Long St", Suburb: "City Bowl", Town: "Cape Town", Province: "Western Cape", PostalCode: "8001"},
		{StreetAddress: "5 Oxford Rd", Suburb: "Rosebank", Town: "Johannesburg", Province: "Gauteng", PostalCode: "2196"},
	}
	require.NoError(t, db.Create(&rows).Error)
	return rows
}

func TestHierarchyGroupsProvinceTownSuburb(t *testing.T) {
	db := newLocationTestDB(t)
	seedLocations(t, db)
	cache := NewLocationCache(db, kvstore.NewMemoryStore())

	tree, err := cache.Hierarchy(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	// Rows are scanned ordered by province, so Gauteng comes first
	assert.Equal(t, "Gauteng", tree[0].Name)
	require.Len(t, tree[0].Towns, 1)
	assert.Equal(t, "Johannesburg", tree[0].Towns[0].Name)
	require.Len(t, tree[0].Towns[0].Suburbs, 2)
	assert.Equal(t, "Rosebank", tree[0].Towns[0].Suburbs[0].Name)
	assert.Equal(t, "Sandton", tree[0].Towns[0].Suburbs[1].Name)
	assert.Equal(t, "2196", tree[0].Towns[0].Suburbs[1].PostalCode)
	assert.Equal(t, "10 Rivonia Rd", tree[0].Towns[0].Suburbs[1].StreetAddress)

	assert.Equal(t, "Western Cape", tree[1].Name)
}

func TestByIDsRepairsMissWithSingleRebuild(t *testing.T) {
	db := newLocationTestDB(t)
	seeded := seedLocations(t, db)
	cache := NewLocationCache(db, kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := cache.Hierarchy(ctx, true)
	require.NoError(t, err)

	// Insert a row behind the cache's back; a lookup miss must repair it
	late := models.Location{StreetAddress: "2 Kloof St", Suburb: "Gardens", Town: "Cape Town", Province: "Western Cape", PostalCode: "8001"}
	require.NoError(t, db.Create(&late).Error)

	found := cache.ByIDs(ctx, []uint{seeded[0].LocationID, late.LocationID})
	assert.Len(t, found, 2)
	assert.Equal(t, "Gardens", found[late.LocationID].Suburb)

	// An id that exists nowhere stays absent without erroring
	missing := cache.ByIDs(ctx, []uint{99999})
	assert.Empty(t, missing)
}

func TestSnapshotSharedThroughStore(t *testing.T) {
	db := newLocationTestDB(t)
	seedLocations(t, db)
	store := kvstore.NewMemoryStore()

	first := NewLocationCache(db, store)
	_, err := first.Hierarchy(context.Background(), true)
	require.NoError(t, err)

	// Wipe the table: a fresh cache must serve from the persisted snapshot
	// without touching the database
	require.NoError(t, db.Exec("DELETE FROM locations").Error)

	second := NewLocationCache(db, store)
	tree, err := second.Hierarchy(context.Background(), true)
	require.NoError(t, err)
	assert.NotEmpty(t, tree)
	assert.True(t, second.Available(context.Background()))
}

func TestInvalidateClearsBothLevels(t *testing.T) {
	db := newLocationTestDB(t)
	seedLocations(t, db)
	store := kvstore.NewMemoryStore()
	cache := NewLocationCache(db, store)
	ctx := context.Background()

	_, err := cache.Hierarchy(ctx, true)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, LocationCacheKey)
	require.NoError(t, err)
	require.True(t, ok)

	cache.Invalidate(ctx)

	_, ok, err = store.Get(ctx, LocationCacheKey)
	require.NoError(t, err)
	assert.False(t, ok)

	// Next access rebuilds from the database
	tree, err := cache.Hierarchy(ctx, true)
	require.NoError(t, err)
	assert.NotEmpty(t, tree)
}

func TestHierarchyRefreshBypassesCache(t *testing.T) {
	db := newLocationTestDB(t)
	seedLocations(t, db)
	cache := NewLocationCache(db, kvstore.NewMemoryStore())
	ctx := context.Background()

	_, err := cache.Hierarchy(ctx, true)
	require.NoError(t, err)

	late := models.Location{StreetAddress: "3 Main Rd", Suburb: "Umhlanga", Town: "Durban", Province: "KwaZulu-Natal", PostalCode: "4320"}
	require.NoError(t, db.Create(&late).Error)

	// Cached view does not see the new province yet
	cached, err := cache.Hierarchy(ctx, true)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	// useCache=false forces the rebuild
	fresh, err := cache.Hierarchy(ctx, false)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}

func TestRowsMissingHierarchyLevelsStayLookupOnly(t *testing.T) {
	db := newLocationTestDB(t)
	partial := models.Location{StreetAddress: "PO Box 99", Suburb: "", Town: "Polokwane", Province: "Limpopo", PostalCode: "0700"}
	require.NoError(t, db.Create(&partial).Error)
	cache := NewLocationCache(db, kvstore.NewMemoryStore())
	ctx := context.Background()

	tree, err := cache.Hierarchy(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, tree)

	loc, ok := cache.ByID(ctx, partial.LocationID)
	require.True(t, ok)
	assert.Equal(t, "Polokwane", loc.Town)
}
