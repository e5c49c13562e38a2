package controllers

import (
	"training-crm-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GetClientsForDropdownController returns the short id/name rows used by
// select inputs.
func (cc *ClientController) GetClientsForDropdownController(c *fiber.Ctx) error {
	clients, err := cc.ClientRepo.GetForDropdown(c.Context())
	if err != nil {
		config.Logger.Error("Failed to fetch clients for dropdown", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch clients",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": clients,
	})
}

// GetMainClientsController returns clients that have no parent and can
// therefore carry branches.
func (cc *ClientController) GetMainClientsController(c *fiber.Ctx) error {
	clients, err := cc.ClientRepo.GetMainClients(c.Context())
	if err != nil {
		config.Logger.Error("Failed to fetch main clients", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch main clients",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": clients,
	})
}

// GetClientBranchesController returns the sub-clients of one main client.
func (cc *ClientController) GetClientBranchesController(c *fiber.Ctx) error {
	clientID, ok := parseClientIDParam(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client id",
		})
	}

	branches, err := cc.ClientRepo.GetSubClients(c.Context(), clientID)
	if err != nil {
		config.Logger.Error("Failed to fetch client branches", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch client branches",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": branches,
		"meta": fiber.Map{
			"count": len(branches),
		},
	})
}

// GetClientHierarchyController returns all clients ordered so main clients
// come first, for rendering the hierarchy view.
func (cc *ClientController) GetClientHierarchyController(c *fiber.Ctx) error {
	clients, err := cc.ClientRepo.GetAllWithHierarchy(c.Context())
	if err != nil {
		config.Logger.Error("Failed to fetch client hierarchy", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch client hierarchy",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": clients,
	})
}

type updateHierarchyRequest struct {
	MainClientID string `json:"main_client_id"`
}

// UpdateClientHierarchyController moves a client under a main client, or
// detaches it when main_client_id is empty or zero. The hierarchy stays a
// single level deep: the new parent may not itself be a sub-client, and a
// client that still has branches cannot become a branch.
func (cc *ClientController) UpdateClientHierarchyController(c *fiber.Ctx) error {
	clientID, ok := parseClientIDParam(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid client id",
		})
	}

	var request updateHierarchyRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	client, err := cc.ClientRepo.GetByID(c.Context(), clientID)
	if err != nil {
		config.Logger.Error("Failed to load client for hierarchy update", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load client",
		})
	}
	if client == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	mainClientID := parseOptionalID(request.MainClientID)
	if mainClientID != nil {
		if *mainClientID == clientID {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "A client cannot be its own parent",
			})
		}

		mainClient, err := cc.ClientRepo.GetByID(c.Context(), *mainClientID)
		if err != nil || mainClient == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Selected main client does not exist",
			})
		}
		if mainClient.MainClientID != nil && *mainClient.MainClientID > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Selected client is already a sub-client",
			})
		}

		branches, err := cc.ClientRepo.GetSubClients(c.Context(), clientID)
		if err != nil {
			config.Logger.Error("Failed to check branches before hierarchy update", zap.Error(err), zap.Uint("clientID", clientID))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to check client branches",
			})
		}
		if len(branches) > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Client has branches and cannot become a sub-client",
			})
		}
	}

	if err := cc.ClientRepo.UpdateClientHierarchy(c.Context(), clientID, mainClientID); err != nil {
		config.Logger.Error("Failed to update client hierarchy", zap.Error(err), zap.Uint("clientID", clientID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong while updating the client hierarchy",
			"error":   err.Error(),
		})
	}

	cc.invalidateExportCache()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Client hierarchy successfully updated",
	})
}
