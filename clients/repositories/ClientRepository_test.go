package repositories

import (
	"context"
	"testing"

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

type clientTestStack struct {
	db             *gorm.DB
	clients        ClientRepository
	contacts       ContactRepository
	communications CommunicationRepository
	headSites      *sites_services.HeadSiteCache
}

func newClientTestDB(t *testing.T) *gorm.DB {
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

func newClientStack(t *testing.T) *clientTestStack {
	t.Helper()
	db := newClientTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Client{}, &models.ClientContact{}, &models.ClientCommunication{}, &models.Site{}, &models.Location{}))
	return newClientStackOn(t, db)
}

func newClientStackOn(t *testing.T, db *gorm.DB) *clientTestStack {
	t.Helper()
	contacts := NewContactRepository(db)
	communications := NewCommunicationRepository(db)
	headSites := sites_services.NewHeadSiteCache(db, kvstore.NewMemoryStore(), nil)
	hydrator := NewClientHydrator(contacts, communications, headSites)
	clients := NewClientRepository(db, schema.NewResolver(db), hydrator)

	return &clientTestStack{
		db:             db,
		clients:        clients,
		contacts:       contacts,
		communications: communications,
		headSites:      headSites,
	}
}

// countClientQueries registers a callback that counts SELECTs issued through db
func countClientQueries(t *testing.T, db *gorm.DB) *int {
	t.Helper()
	var n int
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test_count_queries", func(*gorm.DB) { n++ }))
	t.Cleanup(func() { _ = db.Callback().Query().Remove("test_count_queries") })
	return &n
}

func clientForm(name, regNr string) map[string]interface{} {
	return map[string]interface{}{
		"client_name":             name,
		"company_registration_nr": regNr,
		"seta":                    "MICT SETA",
		"client_status":           "Lead",
		"financial_year_end":      "2026-06-30",
		"bbbee_verification_date": "2026-01-15",
		"created_by":              "importer",
	}
}

func TestCreateAndGetByIDRoundTrip(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	id, err := stack.clients.Create(ctx, clientForm("Acme Training", "2019/123456/07"))
	require.NoError(t, err)
	require.NotZero(t, id)

	record, err := stack.clients.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, id, record.ID)
	assert.Equal(t, "Acme Training", record.ClientName)
	assert.Equal(t, "2019/123456/07", record.CompanyRegistrationNr)
	assert.Equal(t, "MICT SETA", record.Seta)
	assert.Equal(t, "Lead", record.ClientStatus)
	require.NotNil(t, record.FinancialYearEnd)
	assert.Equal(t, "2026-06-30", *record.FinancialYearEnd)
	assert.Equal(t, []string{}, record.Quotes)
	assert.Equal(t, "importer", record.CreatedBy)
	assert.NotNil(t, record.CreatedAt)
}

func TestEmptyDateStoredAsNull(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	form := clientForm("Globex", "2020/000001/07")
	form["bbbee_verification_date"] = ""
	id, err := stack.clients.Create(ctx, form)
	require.NoError(t, err)

	record, err := stack.clients.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, record.BbbeeVerificationDate)
}

func TestGetByRegistrationNumber(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	_, err := stack.clients.Create(ctx, clientForm("Initech", "1999/555555/07"))
	require.NoError(t, err)

	record, err := stack.clients.GetByRegistrationNumber(ctx, "1999/555555/07")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Initech", record.ClientName)

	missing, err := stack.clients.GetByRegistrationNumber(ctx, "0000/000000/00")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateClient(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	id, err := stack.clients.Create(ctx, clientForm("Umbrella", "2018/777777/07"))
	require.NoError(t, err)

	err = stack.clients.Update(ctx, id, map[string]interface{}{
		"client_status": "Active Client",
		"updated_by":    "account-manager",
	})
	require.NoError(t, err)

	record, err := stack.clients.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Active Client", record.ClientStatus)
	require.NotNil(t, record.UpdatedBy)
	assert.Equal(t, "account-manager", *record.UpdatedBy)
}

func TestSoftDeleteHidesRowButKeepsIt(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	id, err := stack.clients.Create(ctx, clientForm("Hooli", "2015/222222/07"))
	require.NoError(t, err)

	require.NoError(t, stack.clients.Delete(ctx, id))

	record, err := stack.clients.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, record)

	// The physical row survives with deleted_at set
	var count int64
	require.NoError(t, stack.db.Table("clients").Where("client_id = ? AND deleted_at IS NOT NULL", id).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetFilteredSearchStatusAndPagination(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	_, err := stack.clients.Create(ctx, clientForm("Acme Training", "2019/123456/07"))
	require.NoError(t, err)
	form := clientForm("Acme Mining", "2019/654321/07")
	form["client_status"] = "Active Client"
	_, err = stack.clients.Create(ctx, form)
	require.NoError(t, err)
	_, err = stack.clients.Create(ctx, clientForm("Globex", "2020/000001/07"))
	require.NoError(t, err)

	records, total, err := stack.clients.GetFiltered(ctx, ClientQuery{Search: "acme"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, records, 2)

	records, total, err = stack.clients.GetFiltered(ctx, ClientQuery{Status: "Active Client"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme Mining", records[0].ClientName)

	// Search also matches the registration number
	_, total, err = stack.clients.GetFiltered(ctx, ClientQuery{Search: "654321"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	// Pagination caps the page but reports the full count
	records, total, err = stack.clients.GetFiltered(ctx, ClientQuery{Limit: 2, Offset: 0, OrderBy: "client_name"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, records, 2)
	assert.Equal(t, "Acme Mining", records[0].ClientName)
}

func TestGetFilteredHydratesWithoutPerRowQueries(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	id1, err := stack.clients.Create(ctx, clientForm("Acme Training", "2019/123456/07"))
	require.NoError(t, err)
	id2, err := stack.clients.Create(ctx, clientForm("Globex", "2020/000001/07"))
	require.NoError(t, err)

	_, err = stack.contacts.UpsertPrimaryContact(ctx, id1, ContactInput{
		Name:      "Thandi Nkosi",
		Email:     "thandi@acme.example",
		Cellphone: "0821234567",
		Position:  "Training Manager",
	})
	require.NoError(t, err)

	_, err = stack.communications.LogCommunication(ctx, id1, "Email", "", "", nil)
	require.NoError(t, err)
	_, err = stack.communications.LogCommunication(ctx, id1, "Phone Call", "", "", nil)
	require.NoError(t, err)

	site := models.Site{ClientID: id1, SiteName: "Acme HQ"}
	require.NoError(t, stack.db.Create(&site).Error)
	stack.headSites.Refresh(ctx, []uint{id1})

	queries := countClientQueries(t, stack.db)
	records, _, err := stack.clients.GetFiltered(ctx, ClientQuery{OrderBy: "client_name"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// One count, one page fetch, then one batched lookup per concern:
	// contacts, communications, head sites. Never one query per row.
	assert.Equal(t, 5, *queries)

	byID := map[uint]*ClientRecord{}
	for _, record := range records {
		byID[record.ID] = record
	}

	hydrated := byID[id1]
	require.NotNil(t, hydrated)
	assert.Equal(t, "Thandi Nkosi", hydrated.ContactPerson)
	assert.Equal(t, "thandi@acme.example", hydrated.ContactPersonEmail)
	assert.Equal(t, "Phone Call", hydrated.LastCommunicationType)
	require.NotNil(t, hydrated.HeadSite)
	assert.Equal(t, "Acme HQ", hydrated.HeadSite.SiteName)

	bare := byID[id2]
	require.NotNil(t, bare)
	assert.Empty(t, bare.ContactPerson)
	assert.Nil(t, bare.HeadSite)
}

func TestStatistics(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	for i, status := range []string{"Lead", "Lead", "Active Client", "Cold Call"} {
		form := clientForm("Client", "reg")
		form["client_name"] = form["client_name"].(string) + string(rune('A'+i))
		form["company_registration_nr"] = form["company_registration_nr"].(string) + string(rune('A'+i))
		form["client_status"] = status
		_, err := stack.clients.Create(ctx, form)
		require.NoError(t, err)
	}

	stats, err := stack.clients.GetStatistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalClients)
	assert.EqualValues(t, 2, stats.Leads)
	assert.EqualValues(t, 1, stats.ActiveClients)
	assert.EqualValues(t, 1, stats.ColdCalls)
	assert.EqualValues(t, 0, stats.LostClients)
}

func TestHierarchyQueriesAndUpdate(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	mainID, err := stack.clients.Create(ctx, clientForm("Acme Group", "2010/111111/07"))
	require.NoError(t, err)
	subID, err := stack.clients.Create(ctx, clientForm("Acme Durban", "2011/222222/07"))
	require.NoError(t, err)

	require.NoError(t, stack.clients.UpdateClientHierarchy(ctx, subID, &mainID))

	mains, err := stack.clients.GetMainClients(ctx)
	require.NoError(t, err)
	require.Len(t, mains, 1)
	assert.Equal(t, mainID, mains[0].ID)

	subs, err := stack.clients.GetSubClients(ctx, mainID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, subID, subs[0].ID)

	// The sub-client record carries its parent's name
	record, err := stack.clients.GetByID(ctx, subID)
	require.NoError(t, err)
	require.NotNil(t, record.MainClientID)
	assert.Equal(t, mainID, *record.MainClientID)
	require.NotNil(t, record.MainClientName)
	assert.Equal(t, "Acme Group", *record.MainClientName)

	all, err := stack.clients.GetAllWithHierarchy(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, mainID, all[0].ID)

	// Detach
	require.NoError(t, stack.clients.UpdateClientHierarchy(ctx, subID, nil))
	subs, err = stack.clients.GetSubClients(ctx, mainID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSelfParentRejected(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	id, err := stack.clients.Create(ctx, clientForm("Acme Group", "2010/111111/07"))
	require.NoError(t, err)

	err = stack.clients.UpdateClientHierarchy(ctx, id, &id)
	assert.Error(t, err)
}

func TestLegacySchemaRoundTrip(t *testing.T) {
	db := newClientTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE clients (
		client_id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL,
		company_registration_number TEXT,
		seta TEXT,
		client_status TEXT,
		financial_year_end DATE,
		bbbee_verification_date DATE,
		branch_of INTEGER,
		created_by TEXT,
		updated_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	require.NoError(t, db.AutoMigrate(&models.ClientContact{}, &models.ClientCommunication{}, &models.Site{}))
	stack := newClientStackOn(t, db)
	ctx := context.Background()

	id, err := stack.clients.Create(ctx, clientForm("Legacy Corp", "1995/010101/07"))
	require.NoError(t, err)
	require.NotZero(t, id)

	record, err := stack.clients.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Legacy Corp", record.ClientName)
	assert.Equal(t, "1995/010101/07", record.CompanyRegistrationNr)

	// Registration lookup reads through the legacy column name
	byReg, err := stack.clients.GetByRegistrationNumber(ctx, "1995/010101/07")
	require.NoError(t, err)
	require.NotNil(t, byReg)

	// Hierarchy writes land in branch_of
	subID, err := stack.clients.Create(ctx, clientForm("Legacy Branch", "1996/020202/07"))
	require.NoError(t, err)
	require.NoError(t, stack.clients.UpdateClientHierarchy(ctx, subID, &id))

	var branchOf int64
	require.NoError(t, db.Table("clients").Select("branch_of").Where("client_id = ?", subID).Scan(&branchOf).Error)
	assert.EqualValues(t, id, branchOf)

	// No deleted_at column: delete is a hard delete
	require.NoError(t, stack.clients.Delete(ctx, subID))
	var count int64
	require.NoError(t, db.Table("clients").Where("client_id = ?", subID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestQuotesEncodeAndDecode(t *testing.T) {
	stack := newClientStack(t)
	ctx := context.Background()

	form := clientForm("Stark Industries", "2008/999999/07")
	form["quotes"] = []string{"/uploads/quotes/1/q1.pdf"}
	id, err := stack.clients.Create(ctx, form)
	require.NoError(t, err)

	record, err := stack.clients.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/quotes/1/q1.pdf"}, record.Quotes)

	err = stack.clients.Update(ctx, id, map[string]interface{}{
		"quotes": append(record.Quotes, "/uploads/quotes/1/q2.pdf"),
	})
	require.NoError(t, err)

	record, err = stack.clients.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, record.Quotes, 2)
}
