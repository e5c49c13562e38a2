package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"training-crm-backend/config"
	"training-crm-backend/db/schema"
	sites_services "training-crm-backend/sites/services"

	"go.uber.org/zap"
)

// ClientHydrator merges related data onto normalized client records. Each
// concern costs one batched lookup for the whole record set, so rendering a
// page of clients never degenerates into per-row queries.
type ClientHydrator struct {
	contacts       ContactRepository
	communications CommunicationRepository
	headSites      *sites_services.HeadSiteCache
}

func NewClientHydrator(
	contacts ContactRepository,
	communications CommunicationRepository,
	headSites *sites_services.HeadSiteCache,
) *ClientHydrator {
	return &ClientHydrator{
		contacts:       contacts,
		communications: communications,
		headSites:      headSites,
	}
}

func (h *ClientHydrator) Hydrate(ctx context.Context, records []*ClientRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(records))
	for _, record := range records {
		if record.ID > 0 {
			ids = append(ids, record.ID)
		}
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	headSites := h.headSites.GetMany(ctx, ids)

	contacts, err := h.contacts.GetPrimaryContacts(ctx, ids)
	if err != nil {
		return fmt.Errorf("hydrating client contacts: %w", err)
	}

	communications, err := h.communications.GetLatestCommunications(ctx, ids)
	if err != nil {
		return fmt.Errorf("hydrating client communications: %w", err)
	}

	for _, record := range records {
		if record.ID == 0 {
			continue
		}

		if site, ok := headSites[record.ID]; ok {
			record.HeadSite = &HydratedSite{
				SiteID:       site.SiteID,
				SiteName:     site.SiteName,
				AddressLine1: site.AddressLine1,
				AddressLine2: site.AddressLine2,
				Address:      site.Address,
				PlaceID:      site.PlaceID,
			}
			if site.AddressLine1 != nil {
				record.ClientStreetAddress = *site.AddressLine1
			}
			if site.AddressLine2 != nil {
				record.ClientAddressLine2 = *site.AddressLine2
			}
			record.ClientTownID = site.PlaceID
			if site.Location != nil {
				record.ClientSuburb = site.Location.Suburb
				record.ClientTown = site.Location.Town
				record.ClientProvince = site.Location.Province
				record.ClientPostalCode = site.Location.PostalCode
			}
		}

		if contact, ok := contacts[record.ID]; ok {
			var parts []string
			if contact.FirstName != nil && *contact.FirstName != "" {
				parts = append(parts, *contact.FirstName)
			}
			if contact.Surname != nil && *contact.Surname != "" {
				parts = append(parts, *contact.Surname)
			}
			record.ContactPerson = strings.Join(parts, " ")
			record.ContactPersonEmail = contact.Email
			if contact.CellphoneNumber != nil {
				record.ContactPersonCellphone = *contact.CellphoneNumber
			}
			if contact.TelNumber != nil {
				record.ContactPersonTel = *contact.TelNumber
			}
			if contact.Position != nil {
				record.ContactPersonPosition = *contact.Position
			}
		}

		if comm, ok := communications[record.ID]; ok {
			record.LastCommunicationType = comm.CommunicationType
			at := comm.CommunicationDate.Format(time.RFC3339)
			record.LastCommunicationAt = &at
		}
	}

	return nil
}

func isDateField(field string) bool {
	for _, candidate := range schema.ClientDateFields {
		if candidate == field {
			return true
		}
	}
	return false
}

func isJSONField(field string) bool {
	for _, candidate := range schema.ClientJSONFields {
		if candidate == field {
			return true
		}
	}
	return false
}

// sanitizeIdentifier strips everything but letters, digits and underscores
// from a caller-supplied sort field
func sanitizeIdentifier(value string) string {
	var b strings.Builder
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// The as* helpers coerce raw scan values, whose Go types vary by database
// driver, into the logical record's types.

func asString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asUint(value interface{}) uint {
	switch v := value.(type) {
	case nil:
		return 0
	case uint:
		return v
	case uint32:
		return uint(v)
	case uint64:
		return uint(v)
	case int:
		if v < 0 {
			return 0
		}
		return uint(v)
	case int32:
		if v < 0 {
			return 0
		}
		return uint(v)
	case int64:
		if v < 0 {
			return 0
		}
		return uint(v)
	case float64:
		if v < 0 {
			return 0
		}
		return uint(v)
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0
		}
		return uint(parsed)
	case []byte:
		return asUint(string(v))
	default:
		return 0
	}
}

func asUintPtr(value interface{}) *uint {
	if value == nil {
		return nil
	}
	parsed := asUint(value)
	if parsed == 0 {
		return nil
	}
	return &parsed
}

// asDateString renders a date value as 2006-01-02, tolerating both native
// time values and the string forms some drivers hand back
func asDateString(value interface{}) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		s := v.Format("2006-01-02")
		return &s
	case string:
		return parseDateString(v)
	case []byte:
		return parseDateString(string(v))
	default:
		return nil
	}
}

func parseDateString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			s := parsed.Format("2006-01-02")
			return &s
		}
	}
	config.Logger.Debug("Unparseable date value from database", zap.String("value", value))
	return nil
}

func asTimestampString(value interface{}) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		s := v.Format(time.RFC3339)
		return &s
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return &v
	case []byte:
		s := string(v)
		return &s
	default:
		return nil
	}
}

// asStringSlice decodes a JSON array column into its elements; anything
// malformed comes back as an empty slice rather than an error
func asStringSlice(value interface{}) []string {
	var raw string
	switch v := value.(type) {
	case nil:
		return []string{}
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return []string{}
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	var decoded []string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		// Older rows stored a single path as a bare string
		var single string
		if err := json.Unmarshal([]byte(raw), &single); err == nil && single != "" {
			return []string{single}
		}
		return []string{}
	}
	return decoded
}
