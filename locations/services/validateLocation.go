package services

import (
	"strings"

	"training-crm-backend/db/models"

	"github.com/shopspring/decimal"
)

// LocationInput carries the raw form values for a new location. Coordinates
// arrive as strings because the autocomplete widget posts them as text and
// some browsers localise the decimal separator to a comma.
type LocationInput struct {
	StreetAddress string `json:"street_address"`
	Suburb        string `json:"suburb"`
	Town          string `json:"town"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
}

// ValidateLocation checks a location form field by field and returns a map
// of field name -> message. An empty map means the input is valid.
func ValidateLocation(input *LocationInput) map[string]string {
	errors := map[string]string{}

	if strings.TrimSpace(input.StreetAddress) == "" {
		errors["street_address"] = "Street address is required."
	} else if len(input.StreetAddress) > 200 {
		errors["street_address"] = "Street address must not exceed 200 characters."
	}

	if strings.TrimSpace(input.Suburb) == "" {
		errors["suburb"] = "Suburb is required."
	} else if len(input.Suburb) > 50 {
		errors["suburb"] = "Suburb must not exceed 50 characters."
	}

	if strings.TrimSpace(input.Town) == "" {
		errors["town"] = "Town is required."
	} else if len(input.Town) > 50 {
		errors["town"] = "Town must not exceed 50 characters."
	}

	if strings.TrimSpace(input.Province) == "" {
		errors["province"] = "Province is required."
	} else if len(input.Province) > 50 {
		errors["province"] = "Province must not exceed 50 characters."
	} else if !isValidProvince(input.Province) {
		errors["province"] = "Please select a valid province."
	}

	if strings.TrimSpace(input.PostalCode) == "" {
		errors["postal_code"] = "Postal code is required."
	} else if len(input.PostalCode) > 10 {
		errors["postal_code"] = "Postal code must not exceed 10 characters."
	}

	longitude, ok := NormalizeCoordinate(input.Longitude)
	if !ok {
		errors["longitude"] = "Please provide a valid longitude."
	} else if longitude.LessThan(decimal.NewFromInt(-180)) || longitude.GreaterThan(decimal.NewFromInt(180)) {
		errors["longitude"] = "Longitude must be between -180 and 180."
	}

	latitude, ok := NormalizeCoordinate(input.Latitude)
	if !ok {
		errors["latitude"] = "Please provide a valid latitude."
	} else if latitude.LessThan(decimal.NewFromInt(-90)) || latitude.GreaterThan(decimal.NewFromInt(90)) {
		errors["latitude"] = "Latitude must be between -90 and 90."
	}

	return errors
}

// NormalizeCoordinate parses a coordinate string, accepting a comma as the
// decimal separator
func NormalizeCoordinate(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Decimal{}, false
	}
	value = strings.ReplaceAll(value, ",", ".")

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func isValidProvince(province string) bool {
	for _, option := range models.ProvinceOptions {
		if strings.EqualFold(option, province) {
			return true
		}
	}
	return false
}
