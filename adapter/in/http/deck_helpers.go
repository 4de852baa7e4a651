package http

import (
	"strconv"

	"taskdeck/core/domain"
	"taskdeck/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// parseID reads the :id route parameter.
func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("id", "must be a non-zero integer")
	}
	return id, nil
}

// parseBody decodes the JSON body into v.
func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	return nil
}

// todoFilterFromQuery reads ?completed=&area_id=.
func todoFilterFromQuery(c *fiber.Ctx) (domain.TodoFilter, error) {
	var filter domain.TodoFilter
	if v := c.Query("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperr.InvalidInput("completed", "must be true or false")
		}
		filter.Completed = &completed
	}
	if v := c.Query("area_id"); v != "" {
		areaID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperr.InvalidInput("area_id", "must be an integer")
		}
		filter.AreaID = &areaID
	}
	return filter, nil
}

// todayFilterFromQuery reads ?include_due_today=&days_ahead=.
func todayFilterFromQuery(c *fiber.Ctx) (domain.TodayFilter, error) {
	filter := domain.TodayFilter{
		IncludeDueToday: c.QueryBool("include_due_today", true),
		DaysAhead:       c.QueryInt("days_ahead", 0),
	}
	if filter.DaysAhead < 0 || filter.DaysAhead > 30 {
		return filter, apperr.InvalidInput("days_ahead", "must be between 0 and 30")
	}
	return filter, nil
}
