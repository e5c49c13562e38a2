package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"training-crm-backend/db/models"

	"gorm.io/gorm"
)

type CommunicationRepository interface {
	LogCommunication(ctx context.Context, clientID uint, commType, subject, content string, userID *uint) (*models.ClientCommunication, error)
	LogCommunicationIfChanged(ctx context.Context, clientID uint, commType string, userID *uint) (bool, error)
	GetLatestCommunication(ctx context.Context, clientID uint) (*models.ClientCommunication, error)
	GetLatestCommunications(ctx context.Context, clientIDs []uint) (map[uint]models.ClientCommunication, error)
}

type communicationRepository struct {
	db *gorm.DB
}

func NewCommunicationRepository(db *gorm.DB) CommunicationRepository {
	return &communicationRepository{db: db}
}

// LogCommunication appends an entry to the communication log. Entries are
// never updated or deleted; history is the point.
func (r *communicationRepository) LogCommunication(ctx context.Context, clientID uint, commType, subject, content string, userID *uint) (*models.ClientCommunication, error) {
	commType = strings.TrimSpace(commType)
	if clientID == 0 || commType == "" {
		return nil, errors.New("communication log requires a client id and type")
	}

	if subject == "" {
		subject = fmt.Sprintf("Client communication: %s", commType)
	}
	if content == "" {
		content = fmt.Sprintf("Communication type recorded as %s.", commType)
	}

	entry := models.ClientCommunication{
		ClientID:          clientID,
		CommunicationType: commType,
		Subject:           subject,
		Content:           content,
		UserID:            userID,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// LogCommunicationIfChanged appends an entry only when the submitted type
// differs from the client's latest logged type, so re-saving a form without
// touching the communication field does not duplicate history. Returns
// whether an entry was written.
func (r *communicationRepository) LogCommunicationIfChanged(ctx context.Context, clientID uint, commType string, userID *uint) (bool, error) {
	commType = strings.TrimSpace(commType)
	if clientID == 0 || commType == "" {
		return false, nil
	}

	latest, err := r.GetLatestCommunication(ctx, clientID)
	if err != nil {
		return false, err
	}
	if latest != nil && latest.CommunicationType == commType {
		return false, nil
	}

	if _, err := r.LogCommunication(ctx, clientID, commType, "", "", userID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *communicationRepository) GetLatestCommunication(ctx context.Context, clientID uint) (*models.ClientCommunication, error) {
	if clientID == 0 {
		return nil, nil
	}

	var entry models.ClientCommunication
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("communication_date DESC, communication_id DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetLatestCommunications returns the newest entry per client for the whole
// id set with a single query. Ties on the date break by the higher id.
func (r *communicationRepository) GetLatestCommunications(ctx context.Context, clientIDs []uint) (map[uint]models.ClientCommunication, error) {
	ids := uniqueIDs(clientIDs)
	if len(ids) == 0 {
		return map[uint]models.ClientCommunication{}, nil
	}

	var rows []models.ClientCommunication
	err := r.db.WithContext(ctx).
		Where("client_id IN ?", ids).
		Order("client_id, communication_date DESC, communication_id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]models.ClientCommunication, len(ids))
	for _, row := range rows {
		if _, exists := out[row.ClientID]; exists {
			continue
		}
		out[row.ClientID] = row
	}
	return out, nil
}
