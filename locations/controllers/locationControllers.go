package controllers

import (
	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/locations/repositories"
	"training-crm-backend/locations/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type LocationController struct {
	LocationRepo  repositories.LocationRepository
	LocationCache *services.LocationCache
}

func (lc *LocationController) CreateLocationController(c *fiber.Ctx) error {
	var input services.LocationInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	if errs := services.ValidateLocation(&input); len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errs,
		})
	}

	exists, err := lc.LocationRepo.LocationExists(
		c.Context(), input.StreetAddress, input.Suburb, input.Town, input.Province, input.PostalCode,
	)
	if err != nil {
		config.Logger.Error("Failed duplicate check while creating location", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while checking for duplicates",
			"error":   err.Error(),
		})
	}
	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "This location already exists.",
		})
	}

	location := models.Location{
		StreetAddress: input.StreetAddress,
		Suburb:        input.Suburb,
		Town:          input.Town,
		Province:      input.Province,
		PostalCode:    input.PostalCode,
	}
	if latitude, ok := services.NormalizeCoordinate(input.Latitude); ok {
		location.Latitude = &latitude
	}
	if longitude, ok := services.NormalizeCoordinate(input.Longitude); ok {
		location.Longitude = &longitude
	}

	created, err := lc.LocationRepo.CreateLocation(c.Context(), &location)
	if err != nil {
		config.Logger.Error("Failed to create location", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while creating the location",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Location successfully created",
		"data":    created,
	})
}

// GetLocationHierarchyController serves the province -> town -> suburb tree
// used by the cascading address dropdowns. Pass ?refresh=true to bypass the
// cache and rebuild from the database.
func (lc *LocationController) GetLocationHierarchyController(c *fiber.Ctx) error {
	useCache := c.Query("refresh") != "true"

	hierarchy, err := lc.LocationCache.Hierarchy(c.Context(), useCache)
	if err != nil {
		config.Logger.Error("Failed to load location hierarchy", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while loading the location hierarchy",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": hierarchy,
	})
}

// checkDuplicatesRequest carries the partial address the capture form has
// collected so far
type checkDuplicatesRequest struct {
	StreetAddress string `json:"street_address"`
	Suburb        string `json:"suburb"`
	Town          string `json:"town"`
}

func (lc *LocationController) CheckDuplicateLocationsController(c *fiber.Ctx) error {
	var request checkDuplicatesRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	matches, err := lc.LocationRepo.CheckDuplicates(c.Context(), request.StreetAddress, request.Suburb, request.Town)
	if err != nil {
		config.Logger.Error("Failed to check duplicate locations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while checking for duplicates",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": matches,
		"meta": fiber.Map{
			"count": len(matches),
		},
	})
}
