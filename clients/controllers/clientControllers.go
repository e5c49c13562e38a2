package controllers

import (
	"context"
	"strconv"
	"strings"

	indexing_repository "training-crm-backend/bleve/repositories"
	"training-crm-backend/clients/repositories"
	"training-crm-backend/clients/services"
	"training-crm-backend/db/models"
	sites_repositories "training-crm-backend/sites/repositories"
	"training-crm-backend/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type ClientController struct {
	ClientRepo        repositories.ClientRepository
	ContactRepo       repositories.ContactRepository
	CommunicationRepo repositories.CommunicationRepository
	SiteRepo          sites_repositories.SiteRepository
	BleveRepo         indexing_repository.BleveRepositoryInterface
	ExportSvc         *services.ExportService
	Storage           utils.FileStorage
	Redis             *redis.Client
	DB                *gorm.DB
	Ctx               context.Context
}

// invalidateExportCache drops cached export files after a client write so
// the next export reflects the change
func (cc *ClientController) invalidateExportCache() {
	if cc.Redis == nil {
		return
	}
	utils.InvalidateCacheAsync(cc.Redis, "clients_export")
}

// ClientFormRequest mirrors the client capture form: every value arrives as
// a string and is validated before anything is typed or persisted.
type ClientFormRequest struct {
	ClientName            string `json:"client_name"`
	CompanyRegistrationNr string `json:"company_registration_nr"`
	Seta                  string `json:"seta"`
	ClientStatus          string `json:"client_status"`
	FinancialYearEnd      string `json:"financial_year_end"`
	BbbeeVerificationDate string `json:"bbbee_verification_date"`
	MainClientID          string `json:"main_client_id"`

	ContactPerson          string `json:"contact_person"`
	ContactPersonEmail     string `json:"contact_person_email"`
	ContactPersonCellphone string `json:"contact_person_cellphone"`
	ContactPersonTel       string `json:"contact_person_tel"`
	ContactPersonPosition  string `json:"contact_person_position"`

	SiteName            string `json:"site_name"`
	ClientStreetAddress string `json:"client_street_address"`
	ClientAddressLine2  string `json:"client_address_line_2"`
	ClientSuburb        string `json:"client_suburb"`
	ClientTown          string `json:"client_town"`
	ClientTownID        string `json:"client_town_id"`
	ClientProvince      string `json:"client_province"`
	ClientPostalCode    string `json:"client_postal_code"`

	CreatedBy string `json:"created_by"`
	UpdatedBy string `json:"updated_by"`
}

// validationMap flattens the form into the field map the validation table
// operates on
func (r *ClientFormRequest) validationMap() map[string]string {
	return map[string]string{
		"client_name":              r.ClientName,
		"company_registration_nr":  r.CompanyRegistrationNr,
		"seta":                     r.Seta,
		"client_status":            r.ClientStatus,
		"financial_year_end":       r.FinancialYearEnd,
		"bbbee_verification_date":  r.BbbeeVerificationDate,
		"main_client_id":           r.MainClientID,
		"contact_person":           r.ContactPerson,
		"contact_person_email":     r.ContactPersonEmail,
		"contact_person_cellphone": r.ContactPersonCellphone,
		"client_street_address":    r.ClientStreetAddress,
		"client_suburb":            r.ClientSuburb,
		"client_town":              r.ClientTown,
		"client_town_id":           r.ClientTownID,
		"client_province":          r.ClientProvince,
		"client_postal_code":       r.ClientPostalCode,
	}
}

// saveMap builds the write payload for the clients table. Address and
// contact fields are excluded; those live on their own tables.
func (r *ClientFormRequest) saveMap(actor string) map[string]interface{} {
	data := map[string]interface{}{
		"client_name":             strings.TrimSpace(r.ClientName),
		"company_registration_nr": strings.TrimSpace(r.CompanyRegistrationNr),
		"seta":                    strings.TrimSpace(r.Seta),
		"client_status":           strings.TrimSpace(r.ClientStatus),
		"financial_year_end":      strings.TrimSpace(r.FinancialYearEnd),
		"bbbee_verification_date": strings.TrimSpace(r.BbbeeVerificationDate),
	}

	if mainID := parseOptionalID(r.MainClientID); mainID != nil {
		data["main_client_id"] = *mainID
	} else {
		data["main_client_id"] = nil
	}

	if actor != "" {
		data["updated_by"] = actor
	}
	return data
}

func (r *ClientFormRequest) contactInput() repositories.ContactInput {
	return repositories.ContactInput{
		Name:      r.ContactPerson,
		Email:     r.ContactPersonEmail,
		Cellphone: r.ContactPersonCellphone,
		Telephone: r.ContactPersonTel,
		Position:  r.ContactPersonPosition,
	}
}

// headSite builds the head-site row tied to a saved client. When the form
// leaves site_name blank the site inherits the client's name.
func (r *ClientFormRequest) headSite(clientID uint) *models.Site {
	siteName := strings.TrimSpace(r.SiteName)
	if siteName == "" {
		siteName = strings.TrimSpace(r.ClientName)
	}

	site := &models.Site{
		ClientID: clientID,
		SiteName: siteName,
		PlaceID:  parseOptionalID(r.ClientTownID),
	}
	if street := strings.TrimSpace(r.ClientStreetAddress); street != "" {
		site.AddressLine1 = utils.StringPtr(street)
	}
	if line2 := strings.TrimSpace(r.ClientAddressLine2); line2 != "" {
		site.AddressLine2 = utils.StringPtr(line2)
	}
	return site
}

func parseOptionalID(raw string) *uint {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || parsed == 0 {
		return nil
	}
	id := uint(parsed)
	return &id
}

func parseClientIDParam(raw string) (uint, bool) {
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}
