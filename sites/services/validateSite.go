package services

import (
	"context"
	"strings"
)

// SiteInput carries the site form fields validated before a head site or
// sub-site is written.
type SiteInput struct {
	ClientID     uint   `json:"client_id"`
	SiteName     string `json:"site_name"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	PlaceID      uint   `json:"place_id"`
	ParentSiteID uint   `json:"parent_site_id"`
}

// ValidateSite checks a site submission and returns field -> message.
// The place must resolve against the location hierarchy when provided.
func (c *HeadSiteCache) ValidateSite(ctx context.Context, input *SiteInput) map[string]string {
	errors := map[string]string{}

	if input.ClientID == 0 {
		errors["client_id"] = "Client is required."
	}

	if strings.TrimSpace(input.SiteName) == "" {
		errors["site_name"] = "Site name is required."
	} else if len(input.SiteName) > 255 {
		errors["site_name"] = "Site name must not exceed 255 characters."
	}

	if strings.TrimSpace(input.AddressLine1) == "" {
		errors["address_line_1"] = "Address line 1 is required."
	} else if len(input.AddressLine1) > 255 {
		errors["address_line_1"] = "Address line 1 must not exceed 255 characters."
	}

	// Without a location cache the place reference cannot be checked and
	// the field degrades to unvalidated, as hydration does
	if input.PlaceID > 0 && c.locations != nil {
		if _, ok := c.locations.ByID(ctx, input.PlaceID); !ok {
			errors["place_id"] = "Selected location does not exist."
		}
	}

	return errors
}
