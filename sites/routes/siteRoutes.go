package routes

import (
	controllers "training-crm-backend/sites/controllers"
	"training-crm-backend/sites/repositories"
	"training-crm-backend/sites/services"

	"github.com/gofiber/fiber/v2"
)

func SiteInitRoutes(
	app *fiber.App,
	siteRepo repositories.SiteRepository,
	headSites *services.HeadSiteCache,
) {
	siteController := &controllers.SiteController{
		SiteRepo:  siteRepo,
		HeadSites: headSites,
	}

	// Create API v1 group
	api := app.Group("/api/v1")

	api.Get("/clients/:id/sites", siteController.GetClientSitesController)
	api.Put("/clients/:id/head-site", siteController.SaveHeadSiteController)
	api.Post("/sites/head", siteController.SaveHeadSiteController)
	api.Post("/sites/sub", siteController.CreateSubSiteController)
	api.Get("/sites/:id", siteController.GetSiteController)
	api.Delete("/sites/:id", siteController.DeleteSiteController)
}
