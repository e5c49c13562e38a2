package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"training-crm-backend/clients/repositories"
	"training-crm-backend/internal/tasks"
	"training-crm-backend/utils"

	"github.com/hibiken/asynq"
)

// InlineExportLimit is the largest result set exported synchronously as CSV.
// Bigger exports are generated in the background and emailed as a download
// link so the HTTP request never blocks on workbook generation.
const InlineExportLimit = 500

type ExportService struct {
	clients repositories.ClientRepository
	queue   *asynq.Client
}

func NewExportService(clients repositories.ClientRepository, queue *asynq.Client) *ExportService {
	return &ExportService{
		clients: clients,
		queue:   queue,
	}
}

var exportHeaders = []string{
	"ID", "Client Name", "Company Registration Nr", "SETA", "Status",
	"Main Client", "Contact Person", "Contact Email", "Contact Cellphone",
	"Town", "Province", "Last Communication",
}

// ExportCSV renders the filtered client list as CSV in memory. Callers
// should have checked the result size against InlineExportLimit first.
func (s *ExportService) ExportCSV(ctx context.Context, query repositories.ClientQuery) ([]byte, string, error) {
	query.Limit = 0
	query.Offset = 0

	records, _, err := s.clients.GetFiltered(ctx, query)
	if err != nil {
		return nil, "", fmt.Errorf("fetching clients for export: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeaders); err != nil {
		return nil, "", err
	}
	for _, record := range records {
		row := []string{
			fmt.Sprintf("%d", record.ID),
			record.ClientName,
			record.CompanyRegistrationNr,
			record.Seta,
			record.ClientStatus,
			stringOrEmpty(record.MainClientName),
			record.ContactPerson,
			record.ContactPersonEmail,
			record.ContactPersonCellphone,
			record.ClientTown,
			record.ClientProvince,
			stringOrEmpty(record.LastCommunicationAt),
		}
		if err := w.Write(row); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("clients_export_%s.csv", utils.Today().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// CountForExport returns how many rows the filter would export
func (s *ExportService) CountForExport(ctx context.Context, query repositories.ClientQuery) (int64, error) {
	query.Limit = 1
	query.Offset = 0
	_, total, err := s.clients.GetFiltered(ctx, query)
	return total, err
}

// QueueExcelExport enqueues a background Excel export. The worker reuses a
// previously generated file when the same filters were exported recently,
// and emails the requester a download link either way.
func (s *ExportService) QueueExcelExport(ctx context.Context, query repositories.ClientQuery, recipientEmail string) (string, error) {
	if recipientEmail == "" {
		return "", fmt.Errorf("an email address is required for background exports")
	}

	task, err := tasks.NewClientExportTask(tasks.ClientExportPayload{
		Search:         query.Search,
		Status:         query.Status,
		Seta:           query.Seta,
		RecipientEmail: recipientEmail,
	})
	if err != nil {
		return "", err
	}

	info, err := s.queue.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
	if err != nil {
		return "", fmt.Errorf("enqueueing export task: %w", err)
	}
	return info.ID, nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
