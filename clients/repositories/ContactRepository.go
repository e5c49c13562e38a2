package repositories

import (
	"context"
	"errors"
	"strings"

	"training-crm-backend/db/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContactInput carries the contact person fields from the client form.
// Name may arrive as a single full-name string or as separate parts.
type ContactInput struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Cellphone string `json:"cellphone"`
	Telephone string `json:"telephone"`
	Position  string `json:"position"`
}

type ContactRepository interface {
	UpsertPrimaryContact(ctx context.Context, clientID uint, input ContactInput) (*models.ClientContact, error)
	GetPrimaryContact(ctx context.Context, clientID uint) (*models.ClientContact, error)
	GetPrimaryContacts(ctx context.Context, clientIDs []uint) (map[uint]models.ClientContact, error)
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

// UpsertPrimaryContact inserts or updates a client's contact person keyed on
// (client_id, email). Repeated submissions of the same form update the
// existing row instead of accumulating duplicates.
func (r *contactRepository) UpsertPrimaryContact(ctx context.Context, clientID uint, input ContactInput) (*models.ClientContact, error) {
	email := strings.TrimSpace(input.Email)
	if clientID == 0 || email == "" {
		return nil, errors.New("contact upsert requires a client id and email")
	}

	first, surname := resolveContactNames(input)

	contact := models.ClientContact{
		ClientID:        clientID,
		Email:           email,
		FirstName:       first,
		Surname:         surname,
		CellphoneNumber: trimmedOrNil(input.Cellphone),
		TelNumber:       trimmedOrNil(input.Telephone),
		Position:        trimmedOrNil(input.Position),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "surname", "cellphone_number", "tel_number", "position", "updated_at",
		}),
	}).Create(&contact).Error
	if err != nil {
		return nil, err
	}

	var saved models.ClientContact
	err = r.db.WithContext(ctx).
		Where("client_id = ? AND email = ?", clientID, email).
		First(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *contactRepository) GetPrimaryContact(ctx context.Context, clientID uint) (*models.ClientContact, error) {
	contacts, err := r.GetPrimaryContacts(ctx, []uint{clientID})
	if err != nil {
		return nil, err
	}
	contact, ok := contacts[clientID]
	if !ok {
		return nil, nil
	}
	return &contact, nil
}

// GetPrimaryContacts returns the primary (oldest) contact per client for the
// whole id set with a single query
func (r *contactRepository) GetPrimaryContacts(ctx context.Context, clientIDs []uint) (map[uint]models.ClientContact, error) {
	ids := uniqueIDs(clientIDs)
	if len(ids) == 0 {
		return map[uint]models.ClientContact{}, nil
	}

	var rows []models.ClientContact
	err := r.db.WithContext(ctx).
		Where("client_id IN ?", ids).
		Order("client_id, contact_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]models.ClientContact, len(ids))
	for _, row := range rows {
		if _, exists := out[row.ClientID]; exists {
			continue
		}
		out[row.ClientID] = row
	}
	return out, nil
}

// resolveContactNames splits a full name into first name and surname when the
// parts were not supplied separately
func resolveContactNames(input ContactInput) (*string, *string) {
	first := strings.TrimSpace(input.FirstName)
	surname := strings.TrimSpace(input.Surname)

	if first == "" && surname == "" && strings.TrimSpace(input.Name) != "" {
		parts := strings.Fields(input.Name)
		first = parts[0]
		if len(parts) > 1 {
			surname = strings.Join(parts[1:], " ")
		}
	}

	return trimmedOrNil(first), trimmedOrNil(surname)
}

func trimmedOrNil(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
