package bootstrap

import (
	"context"
	"log"

	bleveRepositories "training-crm-backend/bleve/repositories"
	clients_repositories "training-crm-backend/clients/repositories"
	"training-crm-backend/config"

	"go.uber.org/zap"
)

func IndexBleveData(
	ctx context.Context,
	clientRepo clients_repositories.ClientRepository,
	bleveRepo bleveRepositories.BleveRepositoryInterface,
) {

	// Delete All Indexes first
	err := bleveRepo.DeleteAllIndices(ctx)
	if err != nil {
		log.Fatalf("Error deleting all indices: %v", err)
	}

	// Index Clients
	clients, _, err := clientRepo.GetFiltered(ctx, clients_repositories.ClientQuery{})
	if err != nil {
		config.Logger.Error("Error fetching clients for Bleve indexing", zap.Error(err))
		return
	}

	records := make([]clients_repositories.ClientRecord, 0, len(clients))
	for _, client := range clients {
		records = append(records, *client)
	}

	if err := bleveRepo.IndexExistingClients(records); err != nil {
		config.Logger.Error("Failed to index clients into Bleve", zap.Error(err))
	}
}
