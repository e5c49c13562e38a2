package repositories

import (
	"strconv"
	"strings"

	"training-crm-backend/clients/repositories"
	"training-crm-backend/config"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"
)

const clientIndexName = "clients"

// ClientSearchParams carries the free-text query plus the term filters the
// client list UI exposes alongside it
type ClientSearchParams struct {
	Query  string
	Status string
	Seta   string
}

func clientToBleveDoc(client repositories.ClientRecord) interface{} {
	return struct {
		ID                    string `json:"id"`
		ClientName            string `json:"client_name"`
		CompanyRegistrationNr string `json:"company_registration_nr,omitempty"`
		Seta                  string `json:"seta,omitempty"`
		Status                string `json:"status"`
		ContactPerson         string `json:"contact_person,omitempty"`
		ContactEmail          string `json:"contact_email,omitempty"`
		Town                  string `json:"town,omitempty"`
		Province              string `json:"province,omitempty"`
	}{
		ID:                    strconv.FormatUint(uint64(client.ID), 10),
		ClientName:            client.ClientName,
		CompanyRegistrationNr: client.CompanyRegistrationNr,
		Seta:                  client.Seta,
		Status:                strings.ToLower(client.ClientStatus),
		ContactPerson:         client.ContactPerson,
		ContactEmail:          client.ContactPersonEmail,
		Town:                  client.ClientTown,
		Province:              client.ClientProvince,
	}
}

func (r *BleveRepository) IndexSingleClient(client repositories.ClientRecord) error {
	clientID := strconv.FormatUint(uint64(client.ID), 10)

	err := r.indexer.IndexDocument(clientIndexName, clientID, clientToBleveDoc(client))
	if err != nil {
		config.Logger.Error("Failed to index single client into Bleve", zap.Error(err), zap.String("client_id", clientID))
		return err
	}

	config.Logger.Info("Successfully indexed single client into Bleve", zap.String("client_id", clientID))
	return nil
}

func (r *BleveRepository) IndexExistingClients(clients []repositories.ClientRecord) error {
	docsToBleveIndex := make(map[string]interface{})

	for _, client := range clients {
		clientID := strconv.FormatUint(uint64(client.ID), 10)
		docsToBleveIndex[clientID] = clientToBleveDoc(client)
	}

	if len(docsToBleveIndex) > 0 {
		config.Logger.Info("Attempting to bulk index clients into Bleve", zap.Int("count", len(docsToBleveIndex)))
		err := r.indexer.BulkIndexDocuments(clientIndexName, docsToBleveIndex)
		if err != nil {
			config.Logger.Error("Failed to bulk index clients into Bleve", zap.Error(err))
			return err
		}
		config.Logger.Info("Successfully bulk indexed clients into Bleve", zap.Int("count", len(docsToBleveIndex)))
	} else {
		config.Logger.Info("No clients to index into Bleve.")
	}

	return nil
}

func (r *BleveRepository) SearchClients(params ClientSearchParams) (*bleve.SearchResult, error) {
	booleanQuery := bleve.NewBooleanQuery()

	// Standardize the query string (trim and lowercase)
	queryString := strings.TrimSpace(strings.ToLower(params.Query))

	// 1. Exact Matches (Highest Priority)
	exactMatch := bleve.NewBooleanQuery()
	exactFields := []string{"client_name", "company_registration_nr", "contact_email"}
	for _, field := range exactFields {
		termQuery := bleve.NewTermQuery(queryString)
		termQuery.SetField(field)
		termQuery.SetBoost(6.0)
		exactMatch.AddShould(termQuery)
	}

	// 2. Phrase Matches (High Priority)
	phraseMatch := bleve.NewBooleanQuery()
	phraseFields := []string{"client_name", "contact_person", "town"}
	for _, field := range phraseFields {
		phraseQuery := bleve.NewMatchPhraseQuery(queryString)
		phraseQuery.SetField(field)
		phraseQuery.SetBoost(5.0)
		phraseMatch.AddShould(phraseQuery)
	}

	// 3. Fuzzy Matching (Medium Priority)
	fuzzyMatch := bleve.NewBooleanQuery()
	fuzzyFields := []string{"client_name", "contact_person", "contact_email", "town"}
	for _, field := range fuzzyFields {
		fuzzyQuery := bleve.NewFuzzyQuery(queryString)
		fuzzyQuery.SetField(field)
		fuzzyQuery.SetFuzziness(2) // Allow up to 2 character differences
		fuzzyQuery.SetBoost(3.0)
		fuzzyMatch.AddShould(fuzzyQuery)
	}

	// 4. Prefix Matching (Low Priority)
	prefixMatch := bleve.NewBooleanQuery()
	prefixFields := []string{"client_name", "company_registration_nr", "contact_person", "town"}
	for _, field := range prefixFields {
		prefixQuery := bleve.NewPrefixQuery(queryString)
		prefixQuery.SetField(field)
		prefixQuery.SetBoost(2.0)
		prefixMatch.AddShould(prefixQuery)
	}

	// 5. Wildcard Matching (Lowest Priority)
	wildcardMatch := bleve.NewBooleanQuery()
	wildcardQuery := bleve.NewWildcardQuery("*" + queryString + "*")
	wildcardQuery.SetBoost(1.0)
	wildcardMatch.AddShould(wildcardQuery)

	// Combine all strategies
	booleanQuery.AddShould(exactMatch)
	booleanQuery.AddShould(phraseMatch)
	booleanQuery.AddShould(fuzzyMatch)
	booleanQuery.AddShould(prefixMatch)
	booleanQuery.AddShould(wildcardMatch)

	// Build final query with filters
	finalQuery := bleve.NewBooleanQuery()
	finalQuery.AddMust(booleanQuery) // Include original search strategies

	// Add status filter if provided
	if params.Status != "" {
		statusQuery := bleve.NewTermQuery(strings.ToLower(params.Status))
		statusQuery.SetField("status")
		finalQuery.AddMust(statusQuery)
	}

	// Add SETA filter if provided
	if params.Seta != "" {
		setaQuery := bleve.NewTermQuery(strings.ToLower(params.Seta))
		setaQuery.SetField("seta")
		finalQuery.AddMust(setaQuery)
	}

	return r.indexer.SearchIndex(clientIndexName, finalQuery, 20)
}

// UpdateClient updates a client document in the Bleve index
func (r *BleveRepository) UpdateClient(client repositories.ClientRecord) error {
	clientID := strconv.FormatUint(uint64(client.ID), 10)

	// 1. Delete the existing document
	err := r.indexer.DeleteDocument(clientIndexName, clientID)
	if err != nil {
		config.Logger.Error("Failed to delete client document for update in Bleve",
			zap.Error(err),
			zap.String("client_id", clientID))
		return err
	}

	// 2. Re-index the updated client
	err = r.IndexSingleClient(client)
	if err != nil {
		config.Logger.Error("Failed to re-index updated client into Bleve",
			zap.Error(err),
			zap.String("client_id", clientID))
		return err
	}

	config.Logger.Info("Successfully updated (re-indexed) client in Bleve",
		zap.String("client_id", clientID))
	return nil
}

// DeleteClient removes a client document from the Bleve index
func (r *BleveRepository) DeleteClient(clientID string) error {
	err := r.indexer.DeleteDocument(clientIndexName, clientID)
	if err != nil {
		config.Logger.Error("Failed to delete client from Bleve",
			zap.Error(err),
			zap.String("client_id", clientID))
		return err
	}

	config.Logger.Info("Successfully deleted client from Bleve",
		zap.String("client_id", clientID))
	return nil
}

func (r *BleveRepository) GetClientDocument(id string) (interface{}, error) {
	return r.indexer.GetDocument(clientIndexName, id)
}
