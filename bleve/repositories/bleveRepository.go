package repositories

import (
	"context"

	bleveindex "training-crm-backend/bleve/services"
	client_repositories "training-crm-backend/clients/repositories"

	"github.com/blevesearch/bleve/v2"
)

type BleveRepository struct {
	indexer *bleveindex.IndexingService
}

type BleveRepositoryInterface interface {
	// General
	DeleteAllIndices(ctx context.Context) error

	// ==== Client Indexing ====
	IndexSingleClient(client client_repositories.ClientRecord) error
	IndexExistingClients(clients []client_repositories.ClientRecord) error
	UpdateClient(client client_repositories.ClientRecord) error
	DeleteClient(clientID string) error
	SearchClients(params ClientSearchParams) (*bleve.SearchResult, error)
	GetClientDocument(clientID string) (interface{}, error)
}

// Constructor returning both the struct and the interface
func NewBleveRepository(indexer *bleveindex.IndexingService) (*BleveRepository, BleveRepositoryInterface) {
	repo := &BleveRepository{indexer: indexer}
	return repo, repo
}

func (r *BleveRepository) DeleteAllIndices(ctx context.Context) error {
	return r.indexer.DeleteAllIndices()
}
