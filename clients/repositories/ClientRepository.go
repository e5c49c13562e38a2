package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"training-crm-backend/db/schema"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClientRecord is the normalized, logical view of a client row. Repositories
// read physical rows through the column resolver and map whatever columns the
// connected schema actually has onto these fields, so callers never see
// generation-specific column names like branch_of.
type ClientRecord struct {
	ID                    uint     `json:"id"`
	ClientName            string   `json:"client_name"`
	CompanyRegistrationNr string   `json:"company_registration_nr"`
	Seta                  string   `json:"seta"`
	ClientStatus          string   `json:"client_status"`
	FinancialYearEnd      *string  `json:"financial_year_end"`
	BbbeeVerificationDate *string  `json:"bbbee_verification_date"`
	MainClientID          *uint    `json:"main_client_id"`
	MainClientName        *string  `json:"main_client_name,omitempty"`
	Quotes                []string `json:"quotes"`
	CreatedBy             string   `json:"created_by,omitempty"`
	UpdatedBy             *string  `json:"updated_by,omitempty"`
	CreatedAt             *string  `json:"created_at,omitempty"`
	UpdatedAt             *string  `json:"updated_at,omitempty"`

	// Filled in by batched hydration, not by the base row query
	ContactPerson          string        `json:"contact_person,omitempty"`
	ContactPersonEmail     string        `json:"contact_person_email,omitempty"`
	ContactPersonCellphone string        `json:"contact_person_cellphone,omitempty"`
	ContactPersonTel       string        `json:"contact_person_tel,omitempty"`
	ContactPersonPosition  string        `json:"contact_person_position,omitempty"`
	LastCommunicationType  string        `json:"last_communication_type,omitempty"`
	LastCommunicationAt    *string       `json:"last_communication_at,omitempty"`
	HeadSite               *HydratedSite `json:"head_site,omitempty"`
	ClientStreetAddress    string        `json:"client_street_address,omitempty"`
	ClientAddressLine2     string        `json:"client_address_line_2,omitempty"`
	ClientSuburb           string        `json:"client_suburb,omitempty"`
	ClientTown             string        `json:"client_town,omitempty"`
	ClientProvince         string        `json:"client_province,omitempty"`
	ClientPostalCode       string        `json:"client_postal_code,omitempty"`
	ClientTownID           *uint         `json:"client_town_id,omitempty"`
}

// HydratedSite is the head-site summary merged onto a client record
type HydratedSite struct {
	SiteID       uint    `json:"site_id"`
	SiteName     string  `json:"site_name"`
	AddressLine1 *string `json:"address_line_1"`
	AddressLine2 *string `json:"address_line_2"`
	Address      *string `json:"address"`
	PlaceID      *uint   `json:"place_id"`
}

// ClientQuery is the filter set for list endpoints
type ClientQuery struct {
	Search   string
	Status   string
	Seta     string
	OrderBy  string
	OrderDir string
	Limit    int
	Offset   int
}

// ClientStatistics are the dashboard counters shown above the client table
type ClientStatistics struct {
	TotalClients  int64 `json:"total_clients"`
	ActiveClients int64 `json:"active_clients"`
	Leads         int64 `json:"leads"`
	ColdCalls     int64 `json:"cold_calls"`
	LostClients   int64 `json:"lost_clients"`
}

// ClientSummary is the short row shape used by dropdowns and hierarchy lists
type ClientSummary struct {
	ID                    uint   `json:"id"`
	ClientName            string `json:"client_name"`
	CompanyRegistrationNr string `json:"company_registration_nr,omitempty"`
	MainClientID          *uint  `json:"main_client_id,omitempty"`
}

type ClientRepository interface {
	GetFiltered(ctx context.Context, query ClientQuery) ([]*ClientRecord, int64, error)
	GetByID(ctx context.Context, id uint) (*ClientRecord, error)
	GetByRegistrationNumber(ctx context.Context, regNr string) (*ClientRecord, error)
	Create(ctx context.Context, data map[string]interface{}) (uint, error)
	Update(ctx context.Context, id uint, data map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	GetStatistics(ctx context.Context) (*ClientStatistics, error)
	GetForDropdown(ctx context.Context) ([]ClientSummary, error)
	GetMainClients(ctx context.Context) ([]ClientSummary, error)
	GetSubClients(ctx context.Context, mainClientID uint) ([]ClientSummary, error)
	GetAllWithHierarchy(ctx context.Context) ([]ClientSummary, error)
	UpdateClientHierarchy(ctx context.Context, clientID uint, mainClientID *uint) error
}

type clientRepository struct {
	db       *gorm.DB
	cols     *schema.ColumnMap
	hydrator *ClientHydrator
}

// NewClientRepository resolves the clients table's column map once up front;
// the resolver memoizes, so reconnecting repositories is cheap.
func NewClientRepository(db *gorm.DB, resolver *schema.Resolver, hydrator *ClientHydrator) ClientRepository {
	return &clientRepository{
		db:       db,
		cols:     resolver.ResolveTable(schema.ClientsTable, schema.ClientFieldCandidates),
		hydrator: hydrator,
	}
}

func (r *clientRepository) primaryKey() string {
	return r.cols.ColumnOr("id", "id")
}

// base returns the read query: every column plus the primary key aliased to
// the logical id, scoped to live rows when the schema tracks deletion
func (r *clientRepository) base(ctx context.Context) *gorm.DB {
	pk := r.primaryKey()
	db := r.db.WithContext(ctx).
		Table(schema.ClientsTable + " AS c").
		Select(fmt.Sprintf("c.*, c.%s AS id", pk))

	if deleted, ok := r.cols.Column("deleted_at"); ok {
		db = db.Where(fmt.Sprintf("c.%s IS NULL", deleted))
	}
	return db
}

func (r *clientRepository) applyFilters(db *gorm.DB, query ClientQuery) *gorm.DB {
	if query.Search != "" {
		pattern := "%" + query.Search + "%"
		var clause string
		var args []interface{}
		for _, field := range schema.ClientSearchFields {
			column, ok := r.cols.Column(field)
			if !ok {
				continue
			}
			if clause != "" {
				clause += " OR "
			}
			clause += fmt.Sprintf("LOWER(CAST(c.%s AS TEXT)) LIKE LOWER(?)", column)
			args = append(args, pattern)
		}
		if clause != "" {
			db = db.Where("("+clause+")", args...)
		}
	}

	if query.Status != "" {
		if column, ok := r.cols.Column("client_status"); ok {
			db = db.Where(fmt.Sprintf("c.%s = ?", column), query.Status)
		}
	}

	if query.Seta != "" {
		if column, ok := r.cols.Column("seta"); ok {
			db = db.Where(fmt.Sprintf("c.%s = ?", column), query.Seta)
		}
	}

	return db
}

// orderClause sanitizes the caller-supplied sort field, resolves it to a
// physical column, and falls back to the client name when it does not resolve
func (r *clientRepository) orderClause(query ClientQuery) string {
	field := sanitizeIdentifier(query.OrderBy)
	if field == "" {
		field = "client_name"
	}

	column, ok := r.cols.Column(field)
	if !ok {
		column = r.cols.ColumnOr("client_name", r.primaryKey())
	}

	direction := "ASC"
	if query.OrderDir == "desc" || query.OrderDir == "DESC" {
		direction = "DESC"
	}
	return fmt.Sprintf("c.%s %s", column, direction)
}

func (r *clientRepository) GetFiltered(ctx context.Context, query ClientQuery) ([]*ClientRecord, int64, error) {
	var total int64
	countDB := r.applyFilters(r.base(ctx), query)
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db := r.applyFilters(r.base(ctx), query).Order(r.orderClause(query))
	if query.Limit > 0 {
		db = db.Limit(query.Limit).Offset(query.Offset)
	}

	var rows []map[string]interface{}
	if err := db.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	records := make([]*ClientRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, r.normalizeRow(row))
	}
	r.attachMainClientNames(ctx, records)

	if err := r.hydrator.Hydrate(ctx, records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *clientRepository) GetByID(ctx context.Context, id uint) (*ClientRecord, error) {
	var rows []map[string]interface{}
	err := r.base(ctx).Where(fmt.Sprintf("c.%s = ?", r.primaryKey()), id).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	record := r.normalizeRow(rows[0])
	r.attachMainClientNames(ctx, []*ClientRecord{record})
	if err := r.hydrator.Hydrate(ctx, []*ClientRecord{record}); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *clientRepository) GetByRegistrationNumber(ctx context.Context, regNr string) (*ClientRecord, error) {
	column, ok := r.cols.Column("company_registration_nr")
	if !ok {
		return nil, nil
	}

	var rows []map[string]interface{}
	err := r.base(ctx).Where(fmt.Sprintf("c.%s = ?", column), regNr).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	record := r.normalizeRow(rows[0])
	if err := r.hydrator.Hydrate(ctx, []*ClientRecord{record}); err != nil {
		return nil, err
	}
	return record, nil
}

// Create inserts a prepared logical row, writing only fields whose columns
// resolved on this schema, and returns the new id
func (r *clientRepository) Create(ctx context.Context, data map[string]interface{}) (uint, error) {
	now := time.Now()
	data["created_at"] = now
	data["updated_at"] = now

	prepared := r.prepareForSave(data)
	if len(prepared) == 0 {
		return 0, fmt.Errorf("no writable client fields resolved for this schema")
	}

	pk := r.primaryKey()
	err := r.db.WithContext(ctx).
		Table(schema.ClientsTable).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: pk}}}).
		Create(&prepared).Error
	if err != nil {
		return 0, err
	}

	if id := asUint(prepared[pk]); id > 0 {
		return id, nil
	}

	// Driver did not hand the id back; fall back to the newest matching row
	var fetched struct{ ID uint }
	lookup := r.db.WithContext(ctx).
		Table(schema.ClientsTable).
		Select(fmt.Sprintf("%s AS id", pk)).
		Order(pk + " DESC").
		Limit(1)
	if nameColumn, ok := r.cols.Column("client_name"); ok {
		if name, present := prepared[nameColumn]; present {
			lookup = lookup.Where(fmt.Sprintf("%s = ?", nameColumn), name)
		}
	}
	if err := lookup.Scan(&fetched).Error; err != nil {
		return 0, err
	}
	if fetched.ID == 0 {
		return 0, fmt.Errorf("client row was inserted but its id could not be determined")
	}
	return fetched.ID, nil
}

func (r *clientRepository) Update(ctx context.Context, id uint, data map[string]interface{}) error {
	data["updated_at"] = time.Now()

	prepared := r.prepareForSave(data)
	if len(prepared) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Table(schema.ClientsTable).
		Where(fmt.Sprintf("%s = ?", r.primaryKey()), id).
		Updates(prepared).Error
}

// Delete removes a client: a soft delete when the schema has a deleted_at
// column, a hard delete otherwise
func (r *clientRepository) Delete(ctx context.Context, id uint) error {
	if deleted, ok := r.cols.Column("deleted_at"); ok {
		return r.db.WithContext(ctx).
			Table(schema.ClientsTable).
			Where(fmt.Sprintf("%s = ? AND %s IS NULL", r.primaryKey(), deleted), id).
			Update(deleted, time.Now()).Error
	}

	return r.db.WithContext(ctx).
		Table(schema.ClientsTable).
		Where(fmt.Sprintf("%s = ?", r.primaryKey()), id).
		Delete(nil).Error
}

func (r *clientRepository) GetStatistics(ctx context.Context) (*ClientStatistics, error) {
	selects := "COUNT(*) AS total_clients"
	if statusColumn, ok := r.cols.Column("client_status"); ok {
		for alias, status := range map[string]string{
			"active_clients": "Active Client",
			"leads":          "Lead",
			"cold_calls":     "Cold Call",
			"lost_clients":   "Lost Client",
		} {
			selects += fmt.Sprintf(", SUM(CASE WHEN c.%s = '%s' THEN 1 ELSE 0 END) AS %s", statusColumn, status, alias)
		}
	}

	var stats ClientStatistics
	err := r.base(ctx).Select(selects).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *clientRepository) GetForDropdown(ctx context.Context) ([]ClientSummary, error) {
	return r.summaries(ctx, nil)
}

// GetMainClients lists the clients that can act as a parent, meaning the
// ones that are not themselves a sub-client
func (r *clientRepository) GetMainClients(ctx context.Context) ([]ClientSummary, error) {
	mainColumn, ok := r.cols.Column("main_client_id")
	if !ok {
		return r.summaries(ctx, nil)
	}
	return r.summaries(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("c.%s IS NULL", mainColumn))
	})
}

func (r *clientRepository) GetSubClients(ctx context.Context, mainClientID uint) ([]ClientSummary, error) {
	if mainClientID == 0 {
		return []ClientSummary{}, nil
	}
	mainColumn, ok := r.cols.Column("main_client_id")
	if !ok {
		return []ClientSummary{}, nil
	}
	return r.summaries(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("c.%s = ?", mainColumn), mainClientID)
	})
}

// GetAllWithHierarchy lists every client with its parent pointer, main
// clients first
func (r *clientRepository) GetAllWithHierarchy(ctx context.Context) ([]ClientSummary, error) {
	mainColumn, hasMain := r.cols.Column("main_client_id")
	if !hasMain {
		return r.summaries(ctx, nil)
	}

	nameColumn := r.cols.ColumnOr("client_name", r.primaryKey())
	order := fmt.Sprintf("c.%s IS NOT NULL, c.%s", mainColumn, nameColumn)

	summaries, err := r.summariesOrdered(ctx, nil, order)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *clientRepository) UpdateClientHierarchy(ctx context.Context, clientID uint, mainClientID *uint) error {
	if clientID == 0 {
		return fmt.Errorf("invalid client id")
	}
	mainColumn, ok := r.cols.Column("main_client_id")
	if !ok {
		return fmt.Errorf("this schema does not track client hierarchy")
	}
	if mainClientID != nil && (*mainClientID == 0 || *mainClientID == clientID) {
		return fmt.Errorf("invalid main client id")
	}

	var value interface{}
	if mainClientID != nil {
		value = *mainClientID
	}

	return r.db.WithContext(ctx).
		Table(schema.ClientsTable).
		Where(fmt.Sprintf("%s = ?", r.primaryKey()), clientID).
		Update(mainColumn, value).Error
}

func (r *clientRepository) summaries(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]ClientSummary, error) {
	nameColumn := r.cols.ColumnOr("client_name", r.primaryKey())
	return r.summariesOrdered(ctx, scope, fmt.Sprintf("c.%s", nameColumn))
}

func (r *clientRepository) summariesOrdered(ctx context.Context, scope func(*gorm.DB) *gorm.DB, order string) ([]ClientSummary, error) {
	pk := r.primaryKey()
	nameColumn := r.cols.ColumnOr("client_name", pk)

	selects := fmt.Sprintf("c.%s AS id, c.%s AS client_name", pk, nameColumn)
	if regColumn, ok := r.cols.Column("company_registration_nr"); ok {
		selects += fmt.Sprintf(", c.%s AS company_registration_nr", regColumn)
	}
	if mainColumn, ok := r.cols.Column("main_client_id"); ok {
		selects += fmt.Sprintf(", c.%s AS main_client_id", mainColumn)
	}

	db := r.base(ctx).Select(selects).Order(order)
	if scope != nil {
		db = scope(db)
	}

	var summaries []ClientSummary
	if err := db.Scan(&summaries).Error; err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []ClientSummary{}
	}
	return summaries, nil
}

// attachMainClientNames fills MainClientName for sub-clients with one
// batched lookup instead of a join, keeping the base query portable
func (r *clientRepository) attachMainClientNames(ctx context.Context, records []*ClientRecord) {
	var mainIDs []uint
	for _, record := range records {
		if record.MainClientID != nil && *record.MainClientID > 0 {
			mainIDs = append(mainIDs, *record.MainClientID)
		}
	}
	mainIDs = uniqueIDs(mainIDs)
	if len(mainIDs) == 0 {
		return
	}

	pk := r.primaryKey()
	nameColumn := r.cols.ColumnOr("client_name", pk)

	var parents []ClientSummary
	err := r.db.WithContext(ctx).
		Table(schema.ClientsTable+" AS c").
		Select(fmt.Sprintf("c.%s AS id, c.%s AS client_name", pk, nameColumn)).
		Where(fmt.Sprintf("c.%s IN ?", pk), mainIDs).
		Scan(&parents).Error
	if err != nil {
		return
	}

	names := make(map[uint]string, len(parents))
	for _, parent := range parents {
		names[parent.ID] = parent.ClientName
	}
	for _, record := range records {
		if record.MainClientID == nil {
			continue
		}
		if name, ok := names[*record.MainClientID]; ok {
			n := name
			record.MainClientName = &n
		}
	}
}

// prepareForSave maps logical fields to resolved physical columns, dropping
// fields this schema has no column for. Empty date strings become NULL and
// JSON fields are encoded, with empty input stored as an empty array.
func (r *clientRepository) prepareForSave(data map[string]interface{}) map[string]interface{} {
	prepared := make(map[string]interface{}, len(data))

	fillable := append([]string{}, schema.ClientFillable...)
	fillable = append(fillable, "created_at", "updated_at")

	for _, field := range fillable {
		value, present := data[field]
		if !present {
			continue
		}
		column, ok := r.cols.Column(field)
		if !ok {
			continue
		}

		if isDateField(field) {
			if s, isString := value.(string); isString && s == "" {
				value = nil
			}
		}

		if isJSONField(field) {
			switch v := value.(type) {
			case nil:
				value = "[]"
			case string:
				if v == "" {
					value = "[]"
				}
			default:
				encoded, err := json.Marshal(v)
				if err != nil {
					value = "[]"
				} else {
					value = string(encoded)
				}
			}
		}

		prepared[column] = value
	}

	return prepared
}

// normalizeRow lifts a physical row map onto the logical record, reading
// each field through the resolved column map
func (r *clientRepository) normalizeRow(row map[string]interface{}) *ClientRecord {
	record := &ClientRecord{}

	record.ID = asUint(row["id"])
	if record.ID == 0 {
		record.ID = asUint(r.logicalValue(row, "id"))
	}

	record.ClientName = asString(r.logicalValue(row, "client_name"))
	record.CompanyRegistrationNr = asString(r.logicalValue(row, "company_registration_nr"))
	record.Seta = asString(r.logicalValue(row, "seta"))
	record.ClientStatus = asString(r.logicalValue(row, "client_status"))
	record.FinancialYearEnd = asDateString(r.logicalValue(row, "financial_year_end"))
	record.BbbeeVerificationDate = asDateString(r.logicalValue(row, "bbbee_verification_date"))
	record.MainClientID = asUintPtr(r.logicalValue(row, "main_client_id"))
	record.Quotes = asStringSlice(r.logicalValue(row, "quotes"))
	record.CreatedBy = asString(r.logicalValue(row, "created_by"))
	if updatedBy := asString(r.logicalValue(row, "updated_by")); updatedBy != "" {
		record.UpdatedBy = &updatedBy
	}
	record.CreatedAt = asTimestampString(r.logicalValue(row, "created_at"))
	record.UpdatedAt = asTimestampString(r.logicalValue(row, "updated_at"))

	return record
}

func (r *clientRepository) logicalValue(row map[string]interface{}, field string) interface{} {
	column, ok := r.cols.Column(field)
	if !ok {
		return nil
	}
	return row[column]
}
