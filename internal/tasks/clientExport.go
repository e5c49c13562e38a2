package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"training-crm-backend/clients/repositories"
	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/utils"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const TypeClientExport = "clients:export"

// ClientExportPayload describes one queued export: the filters to apply and
// who receives the download link
type ClientExportPayload struct {
	Search         string `json:"search"`
	Status         string `json:"status"`
	Seta           string `json:"seta"`
	RecipientEmail string `json:"recipient_email"`
}

func NewClientExportTask(payload ClientExportPayload) (*asynq.Task, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding export payload: %w", err)
	}
	return asynq.NewTask(TypeClientExport, encoded), nil
}

// ClientExportHandler generates Excel exports in the background. Files for
// identical filters are reused within their retention window instead of
// being regenerated per request.
type ClientExportHandler struct {
	db      *gorm.DB
	clients repositories.ClientRepository
	rdb     *redis.Client
	baseURL string
}

func NewClientExportHandler(db *gorm.DB, clients repositories.ClientRepository, rdb *redis.Client, baseURL string) *ClientExportHandler {
	return &ClientExportHandler{
		db:      db,
		clients: clients,
		rdb:     rdb,
		baseURL: baseURL,
	}
}

func (h *ClientExportHandler) HandleClientExportTask(ctx context.Context, t *asynq.Task) error {
	var payload ClientExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding export payload: %w", err)
	}

	filters := map[string]string{
		"search": payload.Search,
		"status": payload.Status,
		"seta":   payload.Seta,
	}
	searchKey, storageKey := utils.GenerateHash("clients_export", filters, 0, 0)

	filePath, err := utils.FindMatchingFile(ctx, h.rdb, searchKey)
	if err != nil && err != redis.Nil {
		config.Logger.Warn("Export file lookup failed, regenerating", zap.Error(err))
	}

	// The nightly cleanup can remove the file before its cache entry expires
	if filePath != "" {
		if _, statErr := os.Stat("." + filePath); statErr != nil {
			filePath = ""
		}
	}

	if filePath == "" {
		records, _, err := h.clients.GetFiltered(ctx, repositories.ClientQuery{
			Search: payload.Search,
			Status: payload.Status,
			Seta:   payload.Seta,
		})
		if err != nil {
			return fmt.Errorf("fetching clients for export: %w", err)
		}

		filePath, err = utils.GenerateClientExcel(records, "clients_export")
		if err != nil {
			return fmt.Errorf("generating export workbook: %w", err)
		}

		if err := h.rdb.Set(ctx, storageKey, filePath, 24*time.Hour).Err(); err != nil {
			config.Logger.Warn("Failed to cache export file path", zap.Error(err))
		}
	}

	downloadLink := utils.BuildPublicURL(h.baseURL, filePath)
	subject := "Your client export is ready"
	message := "The client export you requested has finished processing. The download link is valid for 24 hours."

	if err := utils.SendEmail(payload.RecipientEmail, message, subject, downloadLink); err != nil {
		return fmt.Errorf("sending export email: %w", err)
	}

	active := true
	emailLog := models.EmailLog{
		ID:             uuid.New().String(),
		Recipient:      payload.RecipientEmail,
		Subject:        subject,
		Message:        message,
		SentAt:         time.Now(),
		Active:         &active,
		AttachmentPath: downloadLink,
	}
	if err := h.db.WithContext(ctx).Create(&emailLog).Error; err != nil {
		config.Logger.Error("Failed to record export email log", zap.Error(err))
	}

	config.Logger.Info("Client export completed",
		zap.String("recipient", payload.RecipientEmail),
		zap.String("file", filePath),
	)
	return nil
}

// NewServeMux registers every background task handler
func NewServeMux(handler *ClientExportHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeClientExport, handler.HandleClientExportTask)
	return mux
}
