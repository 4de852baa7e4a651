package http

import (
	"taskdeck/core/domain"
	"taskdeck/core/port/in"
	"taskdeck/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ToastBoard is the toast surface of a tab.
type ToastBoard interface {
	List() []domain.ToastView
	Action(id string) error
	Hide(id string)
}

// SessionHandler serves the session, cache diagnostics and toasts.
type SessionHandler struct {
	service in.SessionService
	toasts  ToastBoard
}

func NewSessionHandler(service in.SessionService, toasts ToastBoard) *SessionHandler {
	return &SessionHandler{service: service, toasts: toasts}
}

func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("/session", h.Session)
	router.Get("/cache", h.Cache)

	toasts := router.Group("/toasts")
	toasts.Get("/", h.ListToasts)
	toasts.Post("/:id/action", h.ToastAction)
	toasts.Delete("/:id", h.DismissToast)
}

func (h *SessionHandler) Session(c *fiber.Ctx) error {
	session, err := h.service.Session(c.UserContext())
	if err != nil {
		return err
	}
	return response.OK(c, session)
}

func (h *SessionHandler) Cache(c *fiber.Ctx) error {
	return response.OK(c, h.service.CacheEntries())
}

func (h *SessionHandler) ListToasts(c *fiber.Ctx) error {
	return response.OK(c, h.toasts.List())
}

// ToastAction runs the toast's action (e.g. Undo) and dismisses it.
func (h *SessionHandler) ToastAction(c *fiber.Ctx) error {
	if err := h.toasts.Action(c.Params("id")); err != nil {
		return err
	}
	return response.OKMessage(c, "action performed")
}

func (h *SessionHandler) DismissToast(c *fiber.Ctx) error {
	h.toasts.Hide(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}
