package schema

// ClientsTable is the physical table behind the clients entity
const ClientsTable = "clients"

// ClientFieldCandidates lists, per logical client field, the physical column
// names that have carried that field across schema generations, in
// preference order. The first candidate that exists wins.
var ClientFieldCandidates = map[string][]string{
	"id":                      {"client_id", "id"},
	"client_name":             {"client_name"},
	"company_registration_nr": {"company_registration_nr", "company_registration_number"},
	"seta":                    {"seta"},
	"client_status":           {"client_status"},
	"financial_year_end":      {"financial_year_end"},
	"bbbee_verification_date": {"bbbee_verification_date"},
	"main_client_id":          {"main_client_id", "branch_of"},
	"quotes":                  {"quotes"},
	"created_by":              {"created_by"},
	"updated_by":              {"updated_by"},
	"created_at":              {"created_at"},
	"updated_at":              {"updated_at"},
	"deleted_at":              {"deleted_at"},
}

// ClientFillable is the ordered set of logical fields accepted on writes.
// Fields whose columns did not resolve are dropped from the prepared row.
var ClientFillable = []string{
	"client_name",
	"company_registration_nr",
	"seta",
	"client_status",
	"financial_year_end",
	"bbbee_verification_date",
	"main_client_id",
	"quotes",
	"created_by",
	"updated_by",
}

// ClientDateFields are logical fields where an empty string submitted by a
// form means NULL, and values round-trip through the 2006-01-02 layout
var ClientDateFields = []string{
	"financial_year_end",
	"bbbee_verification_date",
}

// ClientJSONFields are logical fields stored as JSON documents
var ClientJSONFields = []string{
	"quotes",
}

// ClientSearchFields are the logical fields the free-text search matches
// against, case-insensitively
var ClientSearchFields = []string{
	"client_name",
	"company_registration_nr",
	"seta",
}
