package services

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"training-crm-backend/clients/repositories"
)

// fieldRule is one row in the declarative validation table. A field is
// checked against every constraint its rule sets; the first failure wins.
type fieldRule struct {
	Required  bool
	MaxLength int
	Email     bool
	Date      bool
	In        []string
	Integer   bool
	Min       int
	Unique    bool
}

var clientValidationRules = map[string]fieldRule{
	"client_name":              {Required: true, MaxLength: 255},
	"company_registration_nr":  {Required: true, MaxLength: 100, Unique: true},
	"contact_person":           {Required: true, MaxLength: 255},
	"contact_person_email":     {Required: true, Email: true, MaxLength: 255},
	"contact_person_cellphone": {Required: true, MaxLength: 50},
	"client_province":          {Required: true, MaxLength: 50},
	"client_suburb":            {Required: true, MaxLength: 255},
	"client_town_id":           {Required: true, Integer: true, Min: 1},
	"client_postal_code":       {Required: true, MaxLength: 20},
	"seta":                     {Required: true, MaxLength: 50},
	"client_status":            {Required: true, In: []string{"Cold Call", "Lead", "Active Client", "Lost Client"}},
	"financial_year_end":       {Required: true, Date: true},
	"bbbee_verification_date":  {Required: true, Date: true},
	"main_client_id":           {Integer: true, Min: 0},
}

// ValidateClient checks submitted client form data field by field and
// returns a map of field name -> message. An empty map means valid.
// The id is non-zero on updates so uniqueness checks can exclude the
// client's own row.
func ValidateClient(ctx context.Context, data map[string]string, id uint, clients repositories.ClientRepository) map[string]string {
	errors := map[string]string{}

	for field, rule := range clientValidationRules {
		value := strings.TrimSpace(data[field])

		if rule.Required && value == "" {
			errors[field] = fieldLabel(field) + " is required."
			continue
		}
		if value == "" {
			continue
		}

		if rule.MaxLength > 0 && len(value) > rule.MaxLength {
			errors[field] = fmt.Sprintf("%s must not exceed %d characters.", fieldLabel(field), rule.MaxLength)
			continue
		}

		if rule.Email {
			if _, err := mail.ParseAddress(value); err != nil {
				errors[field] = "Please provide a valid email address."
				continue
			}
		}

		if rule.Date && !isExactDate(value) {
			errors[field] = "Please provide a valid date."
			continue
		}

		if len(rule.In) > 0 && !contains(rule.In, value) {
			errors[field] = "Invalid value selected."
			continue
		}

		if rule.Integer {
			parsed, err := strconv.Atoi(value)
			if err != nil || parsed < rule.Min {
				errors[field] = fieldLabel(field) + " must be a valid number."
				continue
			}
		}

		if rule.Unique && field == "company_registration_nr" {
			existing, err := clients.GetByRegistrationNumber(ctx, value)
			if err == nil && existing != nil && (id == 0 || existing.ID != id) {
				errors[field] = "This company registration number already exists."
			}
		}
	}

	validateMainClient(ctx, data, id, clients, errors)

	return errors
}

// validateMainClient enforces the single-level hierarchy: a sub-client's
// parent must exist, must not be the client itself, and must not be a
// sub-client of someone else.
func validateMainClient(ctx context.Context, data map[string]string, id uint, clients repositories.ClientRepository, errors map[string]string) {
	raw := strings.TrimSpace(data["main_client_id"])
	if raw == "" || raw == "0" {
		return
	}

	mainClientID, err := strconv.Atoi(raw)
	if err != nil || mainClientID <= 0 {
		errors["main_client_id"] = "Invalid main client selected."
		return
	}
	if id != 0 && uint(mainClientID) == id {
		errors["main_client_id"] = "A client cannot be its own parent."
		return
	}

	mainClient, err := clients.GetByID(ctx, uint(mainClientID))
	if err != nil || mainClient == nil {
		errors["main_client_id"] = "Selected main client does not exist."
		return
	}
	if mainClient.MainClientID != nil && *mainClient.MainClientID > 0 {
		errors["main_client_id"] = "Selected client is already a sub-client. Please select a main client."
	}
}

// isExactDate accepts only a complete 2006-01-02 value; partial or
// overflowing dates round-trip differently and are rejected
func isExactDate(value string) bool {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return false
	}
	return parsed.Format("2006-01-02") == value
}

func fieldLabel(field string) string {
	label := strings.ReplaceAll(field, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
