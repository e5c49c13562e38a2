package services

import (
	"context"
	"testing"

	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/internal/kvstore"
	location_services "training-crm-backend/locations/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSiteTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.Logger = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Site{}, &models.Location{}))
	return db
}

func headSiteFor(t *testing.T, db *gorm.DB, clientID uint, name string) models.Site {
	t.Helper()
	site := models.Site{ClientID: clientID, SiteName: name}
	require.NoError(t, db.Create(&site).Error)
	return site
}

// countQueries registers a callback that counts SELECTs issued through db
func countQueries(t *testing.T, db *gorm.DB) *int {
	t.Helper()
	var n int
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test_count_queries", func(*gorm.DB) { n++ }))
	t.Cleanup(func() { _ = db.Callback().Query().Remove("test_count_queries") })
	return &n
}

func TestGetManyReturnsHeadSitesOnly(t *testing.T) {
	db := newSiteTestDB(t)
	head1 := headSiteFor(t, db, 1, "Acme HQ")
	sub := models.Site{ClientID: 1, SiteName: "Acme Warehouse", ParentSiteID: &head1.SiteID}
	require.NoError(t, db.Create(&sub).Error)
	head2 := headSiteFor(t, db, 2, "Globex HQ")

	cache := NewHeadSiteCache(db, kvstore.NewMemoryStore(), nil)
	queries := countQueries(t, db)
	sites := cache.GetMany(context.Background(), []uint{1, 2, 3})

	require.Len(t, sites, 2)
	assert.Equal(t, head1.SiteID, sites[1].SiteID)
	assert.Equal(t, head2.SiteID, sites[2].SiteID)
	_, ok := sites[3]
	assert.False(t, ok)

	// Priming three clients, one of them without a head site, is a single
	// batched fetch
	assert.Equal(t, 1, *queries)

	// A repeat pass is answered entirely from the cache, negative marker
	// included
	sites = cache.GetMany(context.Background(), []uint{1, 2, 3})
	require.Len(t, sites, 2)
	assert.Equal(t, 1, *queries)
}

func TestNegativeMarkerSuppressesRequery(t *testing.T) {
	db := newSiteTestDB(t)
	cache := NewHeadSiteCache(db, kvstore.NewMemoryStore(), nil)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 7)
	require.False(t, ok)

	// The client gained a head site, but the negative marker still answers
	headSiteFor(t, db, 7, "Initech HQ")
	_, ok = cache.Get(ctx, 7)
	assert.False(t, ok)

	// An explicit refresh picks the new row up
	cache.Refresh(ctx, []uint{7})
	site, ok := cache.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "Initech HQ", site.SiteName)
}

func TestFirstHeadRowWinsPerClient(t *testing.T) {
	db := newSiteTestDB(t)
	first := headSiteFor(t, db, 4, "First HQ")
	headSiteFor(t, db, 4, "Second HQ")

	cache := NewHeadSiteCache(db, kvstore.NewMemoryStore(), nil)
	site, ok := cache.Get(context.Background(), 4)
	require.True(t, ok)
	assert.Equal(t, first.SiteID, site.SiteID)
}

func TestClearWipesBothLevels(t *testing.T) {
	db := newSiteTestDB(t)
	headSiteFor(t, db, 5, "Umbrella HQ")
	store := kvstore.NewMemoryStore()
	cache := NewHeadSiteCache(db, store, nil)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 5)
	require.True(t, ok)

	cache.Clear(ctx, nil)

	_, present, err := store.Get(ctx, HeadSiteCacheKey)
	require.NoError(t, err)
	assert.False(t, present)

	// A cleared cache reloads from the database on the next access
	site, ok := cache.Get(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, "Umbrella HQ", site.SiteName)
}

func TestSnapshotSharedThroughStore(t *testing.T) {
	db := newSiteTestDB(t)
	headSiteFor(t, db, 6, "Hooli HQ")
	store := kvstore.NewMemoryStore()

	first := NewHeadSiteCache(db, store, nil)
	_, ok := first.Get(context.Background(), 6)
	require.True(t, ok)

	require.NoError(t, db.Exec("DELETE FROM sites").Error)

	second := NewHeadSiteCache(db, store, nil)
	site, ok := second.Get(context.Background(), 6)
	require.True(t, ok)
	assert.Equal(t, "Hooli HQ", site.SiteName)
}

func TestHeadSiteLocationHydration(t *testing.T) {
	db := newSiteTestDB(t)
	loc := models.Location{StreetAddress: "10 Rivonia Rd", Suburb: "Sandton", Town: "Johannesburg", Province: "Gauteng", PostalCode: "2196"}
	require.NoError(t, db.Create(&loc).Error)

	site := models.Site{ClientID: 8, SiteName: "Stark HQ", PlaceID: &loc.LocationID}
	require.NoError(t, db.Create(&site).Error)

	store := kvstore.NewMemoryStore()
	locations := location_services.NewLocationCache(db, store)
	cache := NewHeadSiteCache(db, store, locations)

	got, ok := cache.Get(context.Background(), 8)
	require.True(t, ok)
	require.NotNil(t, got.Location)
	assert.Equal(t, "Sandton", got.Location.Suburb)
}

func TestValidateSite(t *testing.T) {
	db := newSiteTestDB(t)
	loc := models.Location{StreetAddress: "1 Long St", Suburb: "City Bowl", Town: "Cape Town", Province: "Western Cape", PostalCode: "8001"}
	require.NoError(t, db.Create(&loc).Error)

	store := kvstore.NewMemoryStore()
	locations := location_services.NewLocationCache(db, store)
	cache := NewHeadSiteCache(db, store, locations)
	ctx := context.Background()

	errs := cache.ValidateSite(ctx, &SiteInput{})
	assert.Contains(t, errs, "client_id")
	assert.Contains(t, errs, "site_name")
	assert.Contains(t, errs, "address_line_1")

	errs = cache.ValidateSite(ctx, &SiteInput{
		ClientID:     1,
		SiteName:     "Branch",
		AddressLine1: "1 Long St",
		PlaceID:      99999,
	})
	assert.Contains(t, errs, "place_id")

	errs = cache.ValidateSite(ctx, &SiteInput{
		ClientID:     1,
		SiteName:     "Branch",
		AddressLine1: "1 Long St",
		PlaceID:      loc.LocationID,
	})
	assert.Empty(t, errs)
}

func TestValidateSiteWithoutLocationCache(t *testing.T) {
	db := newSiteTestDB(t)
	cache := NewHeadSiteCache(db, kvstore.NewMemoryStore(), nil)

	// The place reference cannot be checked without a location cache, so
	// the field passes through unvalidated instead of panicking
	errs := cache.ValidateSite(context.Background(), &SiteInput{
		ClientID:     1,
		SiteName:     "Branch",
		AddressLine1: "1 Long St",
		PlaceID:      99999,
	})
	assert.NotContains(t, errs, "place_id")
	assert.Empty(t, errs)
}
