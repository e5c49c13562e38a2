package bootstrap

import (
	"context"
	"testing"

	clients_repositories "training-crm-backend/clients/repositories"
	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/db/schema"
	"training-crm-backend/internal/kvstore"
	locations_services "training-crm-backend/locations/services"
	sites_services "training-crm-backend/sites/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWarmerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	config.Logger = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Client{}, &models.ClientContact{}, &models.ClientCommunication{},
		&models.Site{}, &models.Location{},
	))
	return db
}

func TestWarmCachesPrimesHeadSitesAndLocations(t *testing.T) {
	db := newWarmerTestDB(t)
	ctx := context.Background()

	store := kvstore.NewMemoryStore()
	locations := locations_services.NewLocationCache(db, store)
	headSites := sites_services.NewHeadSiteCache(db, store, locations)

	contacts := clients_repositories.NewContactRepository(db)
	communications := clients_repositories.NewCommunicationRepository(db)
	hydrator := clients_repositories.NewClientHydrator(contacts, communications, headSites)
	clients := clients_repositories.NewClientRepository(db, schema.NewResolver(db), hydrator)

	id1, err := clients.Create(ctx, map[string]interface{}{
		"client_name":             "Acme Training",
		"company_registration_nr": "2019/123456/07",
	})
	require.NoError(t, err)
	id2, err := clients.Create(ctx, map[string]interface{}{
		"client_name":             "Globex",
		"company_registration_nr": "2020/000001/07",
	})
	require.NoError(t, err)

	loc := models.Location{Suburb: "Sandton", Town: "Johannesburg", Province: "Gauteng", PostalCode: "2196"}
	require.NoError(t, db.Create(&loc).Error)
	site := models.Site{ClientID: id1, SiteName: "Acme HQ", PlaceID: &loc.LocationID}
	require.NoError(t, db.Create(&site).Error)

	require.NoError(t, WarmCaches(ctx, locations, clients, headSites))

	// Every client is warm after the pass, negative markers included, so
	// lookups hit the database zero times
	var queries int
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test_count_queries", func(*gorm.DB) { queries++ }))
	defer func() { _ = db.Callback().Query().Remove("test_count_queries") }()

	warm, ok := headSites.Get(ctx, id1)
	require.True(t, ok)
	assert.Equal(t, "Acme HQ", warm.SiteName)
	require.NotNil(t, warm.Location)
	assert.Equal(t, "Sandton", warm.Location.Suburb)

	_, ok = headSites.Get(ctx, id2)
	assert.False(t, ok)

	cached, ok := locations.ByID(ctx, loc.LocationID)
	require.True(t, ok)
	assert.Equal(t, "Johannesburg", cached.Town)

	assert.Equal(t, 0, queries)
}

func TestWarmCachesWithNoClients(t *testing.T) {
	db := newWarmerTestDB(t)
	ctx := context.Background()

	store := kvstore.NewMemoryStore()
	locations := locations_services.NewLocationCache(db, store)
	headSites := sites_services.NewHeadSiteCache(db, store, locations)

	contacts := clients_repositories.NewContactRepository(db)
	communications := clients_repositories.NewCommunicationRepository(db)
	hydrator := clients_repositories.NewClientHydrator(contacts, communications, headSites)
	clients := clients_repositories.NewClientRepository(db, schema.NewResolver(db), hydrator)

	require.NoError(t, WarmCaches(ctx, locations, clients, headSites))
}
