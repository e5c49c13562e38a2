package services

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"training-crm-backend/clients/repositories"
	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/db/schema"
	"training-crm-backend/internal/kvstore"
	sites_services "training-crm-backend/sites/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newValidationRepo(t *testing.T) repositories.ClientRepository {
	t.Helper()
	config.Logger = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Client{}, &models.ClientContact{}, &models.ClientCommunication{}, &models.Site{}, &models.Location{}))

	contacts := repositories.NewContactRepository(db)
	communications := repositories.NewCommunicationRepository(db)
	headSites := sites_services.NewHeadSiteCache(db, kvstore.NewMemoryStore(), nil)
	hydrator := repositories.NewClientHydrator(contacts, communications, headSites)
	return repositories.NewClientRepository(db, schema.NewResolver(db), hydrator)
}

func validClientForm() map[string]string {
	return map[string]string{
		"client_name":              "Acme Training",
		"company_registration_nr":  "2019/123456/07",
		"contact_person":           "Thandi Nkosi",
		"contact_person_email":     "thandi@acme.example",
		"contact_person_cellphone": "0821234567",
		"client_province":          "Gauteng",
		"client_suburb":            "Sandton",
		"client_town_id":           "12",
		"client_postal_code":       "2196",
		"seta":                     "MICT SETA",
		"client_status":            "Lead",
		"financial_year_end":       "2026-06-30",
		"bbbee_verification_date":  "2026-01-15",
	}
}

func TestValidateClientAcceptsCompleteForm(t *testing.T) {
	repo := newValidationRepo(t)
	errs := ValidateClient(context.Background(), validClientForm(), 0, repo)
	assert.Empty(t, errs)
}

func TestValidateClientRequiredFields(t *testing.T) {
	repo := newValidationRepo(t)
	errs := ValidateClient(context.Background(), map[string]string{}, 0, repo)

	for _, field := range []string{
		"client_name", "company_registration_nr", "contact_person",
		"contact_person_email", "contact_person_cellphone", "client_province",
		"client_suburb", "client_town_id", "client_postal_code", "seta",
		"client_status", "financial_year_end", "bbbee_verification_date",
	} {
		assert.Contains(t, errs, field)
	}
	// Optional on new clients
	assert.NotContains(t, errs, "main_client_id")
}

func TestValidateClientFieldFormats(t *testing.T) {
	repo := newValidationRepo(t)
	ctx := context.Background()

	form := validClientForm()
	form["contact_person_email"] = "not-an-email"
	errs := ValidateClient(ctx, form, 0, repo)
	assert.Equal(t, "Please provide a valid email address.", errs["contact_person_email"])

	form = validClientForm()
	form["client_name"] = strings.Repeat("x", 256)
	errs = ValidateClient(ctx, form, 0, repo)
	assert.Contains(t, errs["client_name"], "must not exceed 255")

	form = validClientForm()
	form["client_status"] = "Prospect"
	errs = ValidateClient(ctx, form, 0, repo)
	assert.Equal(t, "Invalid value selected.", errs["client_status"])

	form = validClientForm()
	form["client_town_id"] = "abc"
	errs = ValidateClient(ctx, form, 0, repo)
	assert.Contains(t, errs, "client_town_id")

	form = validClientForm()
	form["client_town_id"] = "0"
	errs = ValidateClient(ctx, form, 0, repo)
	assert.Contains(t, errs, "client_town_id")
}

func TestValidateClientRejectsImpossibleDates(t *testing.T) {
	repo := newValidationRepo(t)
	ctx := context.Background()

	for _, bad := range []string{"2026-02-30", "30/06/2026", "2026-6-30", "yesterday"} {
		form := validClientForm()
		form["financial_year_end"] = bad
		errs := ValidateClient(ctx, form, 0, repo)
		assert.Equal(t, "Please provide a valid date.", errs["financial_year_end"], "value %q", bad)
	}
}

func TestValidateClientUniqueRegistrationNumber(t *testing.T) {
	repo := newValidationRepo(t)
	ctx := context.Background()

	existingID, err := repo.Create(ctx, map[string]interface{}{
		"client_name":             "Acme Training",
		"company_registration_nr": "2019/123456/07",
	})
	require.NoError(t, err)

	// Another client submitting the same number is rejected
	errs := ValidateClient(ctx, validClientForm(), 0, repo)
	assert.Equal(t, "This company registration number already exists.", errs["company_registration_nr"])

	// The owning client updating itself is not
	errs = ValidateClient(ctx, validClientForm(), existingID, repo)
	assert.NotContains(t, errs, "company_registration_nr")
}

func TestValidateClientHierarchyRules(t *testing.T) {
	repo := newValidationRepo(t)
	ctx := context.Background()

	mainID, err := repo.Create(ctx, map[string]interface{}{
		"client_name":             "Acme Group",
		"company_registration_nr": "2010/111111/07",
	})
	require.NoError(t, err)
	subID, err := repo.Create(ctx, map[string]interface{}{
		"client_name":             "Acme Durban",
		"company_registration_nr": "2011/222222/07",
	})
	require.NoError(t, err)
	require.NoError(t, repo.UpdateClientHierarchy(ctx, subID, &mainID))

	// Parent must exist
	form := validClientForm()
	form["main_client_id"] = "99999"
	errs := ValidateClient(ctx, form, 0, repo)
	assert.Equal(t, "Selected main client does not exist.", errs["main_client_id"])

	// A client cannot be its own parent
	form = validClientForm()
	form["main_client_id"] = "77"
	errs = ValidateClient(ctx, form, 77, repo)
	assert.Equal(t, "A client cannot be its own parent.", errs["main_client_id"])

	// A sub-client cannot act as a parent
	form = validClientForm()
	form["main_client_id"] = strconv.FormatUint(uint64(subID), 10)
	errs = ValidateClient(ctx, form, 0, repo)
	assert.Equal(t, "Selected client is already a sub-client. Please select a main client.", errs["main_client_id"])

	// A real main client is fine
	form = validClientForm()
	form["main_client_id"] = strconv.FormatUint(uint64(mainID), 10)
	errs = ValidateClient(ctx, form, 0, repo)
	assert.NotContains(t, errs, "main_client_id")

	// Zero and blank mean "no parent"
	form = validClientForm()
	form["main_client_id"] = "0"
	errs = ValidateClient(ctx, form, 0, repo)
	assert.NotContains(t, errs, "main_client_id")

	form = validClientForm()
	form["main_client_id"] = "garbage"
	errs = ValidateClient(ctx, form, 0, repo)
	assert.Contains(t, errs, "main_client_id")
}
