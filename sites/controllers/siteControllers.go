package controllers

import (
	"strconv"
	"strings"

	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/sites/repositories"
	"training-crm-backend/sites/services"
	"training-crm-backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SiteController struct {
	SiteRepo  repositories.SiteRepository
	HeadSites *services.HeadSiteCache
}

func siteFromInput(input *services.SiteInput) *models.Site {
	site := &models.Site{
		ClientID: input.ClientID,
		SiteName: strings.TrimSpace(input.SiteName),
	}
	if line1 := strings.TrimSpace(input.AddressLine1); line1 != "" {
		site.AddressLine1 = utils.StringPtr(line1)
	}
	if line2 := strings.TrimSpace(input.AddressLine2); line2 != "" {
		site.AddressLine2 = utils.StringPtr(line2)
	}
	if input.PlaceID > 0 {
		site.PlaceID = utils.UintPtr(input.PlaceID)
	}
	if input.ParentSiteID > 0 {
		site.ParentSiteID = utils.UintPtr(input.ParentSiteID)
	}
	return site
}

// GetClientSitesController lists a client's sites with the head site first.
func (sc *SiteController) GetClientSitesController(c *fiber.Ctx) error {
	clientID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || clientID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client id",
		})
	}

	sites, err := sc.SiteRepo.GetSitesByClient(c.Context(), uint(clientID))
	if err != nil {
		config.Logger.Error("Failed to fetch client sites", zap.Error(err), zap.Uint64("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sites",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": sites,
		"meta": fiber.Map{
			"count": len(sites),
		},
	})
}

// GetSiteController returns one site with its location resolved.
func (sc *SiteController) GetSiteController(c *fiber.Ctx) error {
	siteID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || siteID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid site id",
		})
	}

	site, err := sc.SiteRepo.GetSiteByID(c.Context(), uint(siteID))
	if err != nil {
		config.Logger.Error("Failed to fetch site", zap.Error(err), zap.Uint64("siteID", siteID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch site",
		})
	}
	if site == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Site not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": site,
	})
}

// SaveHeadSiteController creates or replaces a client's head site.
func (sc *SiteController) SaveHeadSiteController(c *fiber.Ctx) error {
	var input services.SiteInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	// When the client id is in the path it overrides whatever the body says
	if raw := c.Params("id"); raw != "" {
		clientID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || clientID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid client id",
			})
		}
		input.ClientID = uint(clientID)
	}

	if validationErrors := sc.HeadSites.ValidateSite(c.Context(), &input); len(validationErrors) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors,
		})
	}

	input.ParentSiteID = 0
	saved, err := sc.SiteRepo.SaveHeadSite(c.Context(), siteFromInput(&input))
	if err != nil {
		config.Logger.Error("Failed to save head site", zap.Error(err), zap.Uint("clientID", input.ClientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while saving the head site",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Head site successfully saved",
		"data":    saved,
	})
}

// CreateSubSiteController adds a sub-site under a client's head site.
func (sc *SiteController) CreateSubSiteController(c *fiber.Ctx) error {
	var input services.SiteInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	validationErrors := sc.HeadSites.ValidateSite(c.Context(), &input)
	if input.ParentSiteID == 0 {
		validationErrors["parent_site_id"] = "Parent site is required."
	}
	if len(validationErrors) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors,
		})
	}

	created, err := sc.SiteRepo.CreateSubSite(c.Context(), siteFromInput(&input))
	if err != nil {
		config.Logger.Error("Failed to create sub-site", zap.Error(err), zap.Uint("clientID", input.ClientID))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Something went wrong while creating the sub-site",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Sub-site successfully created",
		"data":    created,
	})
}

// DeleteSiteController removes a site. Head sites still carrying sub-sites
// are refused.
func (sc *SiteController) DeleteSiteController(c *fiber.Ctx) error {
	siteID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || siteID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid site id",
		})
	}

	if err := sc.SiteRepo.DeleteSite(c.Context(), uint(siteID)); err != nil {
		config.Logger.Error("Failed to delete site", zap.Error(err), zap.Uint64("siteID", siteID))
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Site could not be deleted",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Site successfully deleted",
	})
}
