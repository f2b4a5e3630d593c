package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/flowdeckhq/flowdeck/pkg/catalog"
)

// GetCatalogNodes returns the node palette in display order.
func (h *APIHandlers) GetCatalogNodes(c fiber.Ctx) error {
	definitions := h.catalog.NodeDefinitions()
	responses := make([]NodeDefinitionResponse, 0, len(definitions))

	for _, definition := range definitions {
		responses = append(responses, TransformNodeDefinition(definition))
	}

	return c.JSON(fiber.Map{"nodes": responses})
}

func (h *APIHandlers) GetCatalogApps(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"apps": h.catalog.Apps()})
}

// GetCatalogAppActions returns the actions of one app, grouped flat in
// declaration order. The key goes through synonym normalization, so legacy
// builder payloads keep resolving.
func (h *APIHandlers) GetCatalogAppActions(c fiber.Ctx) error {
	key, ok := h.catalog.NormalizeAppKey(c.Params("key"))
	if !ok {
		return notFound(c, "app not found")
	}

	return c.JSON(fiber.Map{
		"app":     key,
		"actions": h.catalog.ListActions(key),
		"default": h.catalog.DefaultActionKey(key),
	})
}

func (h *APIHandlers) GetCatalogTools(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"tools": h.catalog.Tools()})
}

func (h *APIHandlers) GetCatalogProviders(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"providers": catalog.ChatModelProviders()})
}
