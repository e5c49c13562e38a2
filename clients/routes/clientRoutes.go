package routes

import (
	indexing_repository "training-crm-backend/bleve/repositories"
	controllers "training-crm-backend/clients/controllers"
	"training-crm-backend/clients/repositories"
	"training-crm-backend/clients/services"
	sites_repositories "training-crm-backend/sites/repositories"
	"training-crm-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func ClientInitRoutes(
	app *fiber.App,
	clientRepo repositories.ClientRepository,
	contactRepo repositories.ContactRepository,
	communicationRepo repositories.CommunicationRepository,
	siteRepo sites_repositories.SiteRepository,
	bleveInterfaceRepo indexing_repository.BleveRepositoryInterface,
	exportSvc *services.ExportService,
	storage utils.FileStorage,
	rdb *redis.Client,
	db *gorm.DB,
) {
	clientController := &controllers.ClientController{
		ClientRepo:        clientRepo,
		ContactRepo:       contactRepo,
		CommunicationRepo: communicationRepo,
		SiteRepo:          siteRepo,
		BleveRepo:         bleveInterfaceRepo,
		ExportSvc:         exportSvc,
		Storage:           storage,
		Redis:             rdb,
		DB:                db,
	}

	// Create API v1 group
	api := app.Group("/api/v1")

	api.Post("/clients", clientController.CreateClientController)
	api.Get("/clients/filtered", clientController.GetFilteredClientsController)
	api.Get("/clients/search", clientController.SearchClientsQuickController)
	api.Get("/clients/statistics", clientController.GetClientStatisticsController)
	api.Get("/clients/dropdown", clientController.GetClientsForDropdownController)
	api.Get("/clients/main", clientController.GetMainClientsController)
	api.Get("/clients/hierarchy", clientController.GetClientHierarchyController)
	api.Get("/clients/export", clientController.ExportClientsController)
	api.Get("/clients/:id", clientController.GetClientController)
	api.Put("/clients/:id", clientController.UpdateClientController)
	api.Delete("/clients/:id", clientController.DeleteClientController)
	api.Get("/clients/:id/branches", clientController.GetClientBranchesController)
	api.Put("/clients/:id/hierarchy", clientController.UpdateClientHierarchyController)
	api.Post("/clients/:id/quotes", clientController.UploadClientQuoteController)
}
