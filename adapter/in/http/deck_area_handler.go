package http

import (
	"taskdeck/core/domain"
	"taskdeck/core/port/in"
	"taskdeck/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AreaHandler handles HTTP requests for areas
type AreaHandler struct {
	service in.AreaService
}

// NewAreaHandler creates a new AreaHandler
func NewAreaHandler(service in.AreaService) *AreaHandler {
	return &AreaHandler{service: service}
}

// Register registers area routes
func (h *AreaHandler) Register(router fiber.Router) {
	areas := router.Group("/areas")
	areas.Get("/", h.List)
	areas.Post("/", h.Create)
	areas.Get("/colors", h.Colors)
	areas.Get("/:id/stats", h.Stats)
	areas.Put("/:id", h.Update)
	areas.Delete("/:id", h.Delete)
}

func (h *AreaHandler) List(c *fiber.Ctx) error {
	areas, err := h.service.ListAreas(c.UserContext())
	if err != nil {
		return err
	}
	return response.OK(c, areas)
}

func (h *AreaHandler) Create(c *fiber.Ctx) error {
	var req domain.CreateAreaInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	area, err := h.service.CreateArea(c.UserContext(), req)
	if err != nil {
		return err
	}
	return response.Created(c, area)
}

func (h *AreaHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req domain.UpdateAreaInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	area, err := h.service.UpdateArea(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return response.OK(c, area)
}

// Delete removes an area; its todos are refetched
func (h *AreaHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteArea(c.UserContext(), id); err != nil {
		return err
	}
	return response.OKMessage(c, "area deleted")
}

func (h *AreaHandler) Stats(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	stats, err := h.service.AreaStats(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.OK(c, stats)
}

func (h *AreaHandler) Colors(c *fiber.Ctx) error {
	colors, err := h.service.AreaColors(c.UserContext())
	if err != nil {
		return err
	}
	return response.OK(c, colors)
}
