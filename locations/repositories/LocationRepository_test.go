package repositories

import (
	"context"
	"testing"

	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/internal/kvstore"
	"training-crm-backend/locations/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLocationTestRepo(t *testing.T) (LocationRepository, *gorm.DB) {
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

	cache := services.NewLocationCache(db, kvstore.NewMemoryStore())
	return NewLocationRepository(db, cache), db
}

func coord(value float64) *decimal.Decimal {
	d := decimal.NewFromFloat(value)
	return &d
}

func sandtonLocation() *models.Location {
	return &models.Location{
		Suburb:     "Sandton",
		Town:       "Johannesburg",
		Province:   "Gauteng",
		PostalCode: "2196",
		Latitude:   coord(-26.1076),
		Longitude:  coord(28.0567),
	}
}

func TestCreateLocationAndGetByID(t *testing.T) {
	repo, _ := newLocationTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateLocation(ctx, sandtonLocation())
	require.NoError(t, err)
	require.NotZero(t, created.LocationID)

	fetched, err := repo.GetLocationByID(ctx, created.LocationID)
	require.NoError(t, err)
	assert.Equal(t, "Sandton", fetched.Suburb)
	assert.Equal(t, "Johannesburg", fetched.Town)
	require.NotNil(t, fetched.Latitude)
	assert.True(t, fetched.Latitude.Equal(decimal.NewFromFloat(-26.1076)))

	_, err = repo.GetLocationByID(ctx, 99999)
	assert.Error(t, err)
}

func TestCheckDuplicatesFindsCapturedSuburb(t *testing.T) {
	repo, _ := newLocationTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateLocation(ctx, sandtonLocation())
	require.NoError(t, err)

	matches, err := repo.CheckDuplicates(ctx, "", "Sandton", "")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.LessOrEqual(t, len(matches), 10)
	assert.Equal(t, created.LocationID, matches[0].LocationID)
}

func TestCheckDuplicatesMatchesAcrossTownAndSuburb(t *testing.T) {
	repo, _ := newLocationTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateLocation(ctx, sandtonLocation())
	require.NoError(t, err)

	// A suburb typed into the town box still surfaces the existing row
	matches, err := repo.CheckDuplicates(ctx, "", "", "sandton")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, created.LocationID, matches[0].LocationID)

	// And a town typed into the suburb box does too
	matches, err = repo.CheckDuplicates(ctx, "", "johannesburg", "")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	matches, err = repo.CheckDuplicates(ctx, "", "Polokwane", "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCheckDuplicatesStreetAddressAndLimit(t *testing.T) {
	repo, db := newLocationTestRepo(t)
	ctx := context.Background()

	loc := sandtonLocation()
	loc.StreetAddress = "10 Rivonia Rd"
	_, err := repo.CreateLocation(ctx, loc)
	require.NoError(t, err)

	matches, err := repo.CheckDuplicates(ctx, "rivonia", "", "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "10 Rivonia Rd", matches[0].StreetAddress)

	// The match list is capped at ten rows
	for i := 0; i < 15; i++ {
		extra := sandtonLocation()
		extra.StreetAddress = "Unit " + string(rune('A'+i)) + ", Rivonia Rd"
		require.NoError(t, db.Create(extra).Error)
	}
	matches, err = repo.CheckDuplicates(ctx, "", "Sandton", "")
	require.NoError(t, err)
	assert.Len(t, matches, 10)
}

func TestCheckDuplicatesWithoutTermsReturnsNothing(t *testing.T) {
	repo, _ := newLocationTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateLocation(ctx, sandtonLocation())
	require.NoError(t, err)

	matches, err := repo.CheckDuplicates(ctx, "", "  ", "")
	require.NoError(t, err)
	assert.Equal(t, []models.Location{}, matches)
}

func TestLocationExistsIsCaseInsensitive(t *testing.T) {
	repo, _ := newLocationTestRepo(t)
	ctx := context.Background()

	loc := sandtonLocation()
	loc.StreetAddress = "10 Rivonia Rd"
	_, err := repo.CreateLocation(ctx, loc)
	require.NoError(t, err)

	exists, err := repo.LocationExists(ctx, "10 RIVONIA RD", "sandton", "JOHANNESBURG", "gauteng", "2196")
	require.NoError(t, err)
	assert.True(t, exists)

	// The postal code must match exactly
	exists, err = repo.LocationExists(ctx, "10 Rivonia Rd", "Sandton", "Johannesburg", "Gauteng", "2000")
	require.NoError(t, err)
	assert.False(t, exists)
}
