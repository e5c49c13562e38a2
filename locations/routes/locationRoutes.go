package routes

import (
	controllers "training-crm-backend/locations/controllers"
	"training-crm-backend/locations/repositories"
	"training-crm-backend/locations/services"

	"github.com/gofiber/fiber/v2"
)

func LocationInitRoutes(
	app *fiber.App,
	locationRepo repositories.LocationRepository,
	locationCache *services.LocationCache,
) {
	locationController := &controllers.LocationController{
		LocationRepo:  locationRepo,
		LocationCache: locationCache,
	}

	api := app.Group("/api/v1")

	api.Post("/locations", locationController.CreateLocationController)
	api.Get("/locations/hierarchy", locationController.GetLocationHierarchyController)
	api.Post("/locations/check-duplicates", locationController.CheckDuplicateLocationsController)
}
