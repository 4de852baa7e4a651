package http

import (
	"taskdeck/core/domain"
	"taskdeck/core/port/in"
	"taskdeck/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TodoHandler handles HTTP requests for todo operations
type TodoHandler struct {
	service in.TodoService
}

// NewTodoHandler creates a new TodoHandler
func NewTodoHandler(service in.TodoService) *TodoHandler {
	return &TodoHandler{service: service}
}

// Register registers todo and completion routes
func (h *TodoHandler) Register(router fiber.Router) {
	todos := router.Group("/todos")

	// Views
	todos.Get("/", h.List)
	todos.Get("/today", h.Today)

	// CRUD
	todos.Post("/", h.Create)
	todos.Put("/:id", h.Update)
	todos.Delete("/:id", h.Delete)

	// Status operations
	todos.Post("/:id/toggle", h.ToggleCompletion)
	todos.Post("/:id/today", h.ToggleToday)

	// Pending completions
	completions := router.Group("/completions")
	completions.Get("/", h.PendingCompletions)
	completions.Post("/cleanup", h.CleanupCompletions)
}

// =============================================================================
// Views
// =============================================================================

// List returns a cached todos partition with display state applied
func (h *TodoHandler) List(c *fiber.Ctx) error {
	filter, err := todoFilterFromQuery(c)
	if err != nil {
		return err
	}
	todos, err := h.service.ListTodos(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return response.OK(c, todos)
}

// Today returns the today view
func (h *TodoHandler) Today(c *fiber.Ctx) error {
	filter, err := todayFilterFromQuery(c)
	if err != nil {
		return err
	}
	view, err := h.service.TodayView(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return response.OK(c, view)
}

// =============================================================================
// CRUD
// =============================================================================

// Create creates a todo optimistically
func (h *TodoHandler) Create(c *fiber.Ctx) error {
	var req domain.CreateTodoInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	todo, err := h.service.CreateTodo(c.UserContext(), req)
	if err != nil {
		return err
	}
	return response.Created(c, todo)
}

// Update patches a todo optimistically
func (h *TodoHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req domain.UpdateTodoInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	todo, err := h.service.UpdateTodo(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return response.OK(c, todo)
}

// Delete deletes a todo optimistically
func (h *TodoHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTodo(c.UserContext(), id); err != nil {
		return err
	}
	return response.OKMessage(c, "todo deleted")
}

// =============================================================================
// Status Operations
// =============================================================================

// ToggleCompletion starts or cancels the undo window of a todo
func (h *TodoHandler) ToggleCompletion(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	state, err := h.service.ToggleCompletion(c.UserContext(), id)
	if err != nil {
		return err
	}
	if state.Pending {
		return response.Accepted(c, state)
	}
	return response.OK(c, state)
}

// ToggleToday flips is_today
func (h *TodoHandler) ToggleToday(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	todo, err := h.service.ToggleToday(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.OK(c, todo)
}

// PendingCompletions lists todo ids inside their undo window
func (h *TodoHandler) PendingCompletions(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"pending": h.service.PendingCompletions()})
}

// CleanupCompletions drops every pending completion without committing
func (h *TodoHandler) CleanupCompletions(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"dropped": h.service.CleanupCompletions()})
}
