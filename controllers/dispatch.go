package controllers

import (
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/services"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/gofiber/fiber/v2"
)

func dispatchPlanner() *services.DispatchPlanner {
	db := database.GetDB()
	return services.NewDispatchPlanner(db, services.NewSubscriptionService(db))
}

// CreateDispatch plans the roster for a date. The date defaults to
// today; pass exclude_absent=false to place marked-absent students
// anyway.
func CreateDispatch(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var req struct {
		Date          string `json:"date"`
		ClassName     string `json:"class_name"`
		TimeSlot      string `json:"time_slot"`
		ExcludeAbsent *bool  `json:"exclude_absent"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	date := time.Now()
	if req.Date != "" {
		date, err = utils.ParseDate(req.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, use YYYY-MM-DD"})
		}
	}
	excludeAbsent := true
	if req.ExcludeAbsent != nil {
		excludeAbsent = *req.ExcludeAbsent
	}

	result, err := dispatchPlanner().CreateDispatch(scope, services.PlanRequest{
		Date:          date,
		ClassName:     req.ClassName,
		TimeSlot:      req.TimeSlot,
		ExcludeAbsent: excludeAbsent,
	})
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "dispatch", 0, fiber.Map{
		"date":     result.Date.Format("2006-01-02"),
		"placed":   result.Placed,
		"unplaced": result.Unplaced,
	})
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetDispatchByDate returns one date's roster grouped by vehicle.
func GetDispatchByDate(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	date, err := utils.ParseDate(c.Params("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, use YYYY-MM-DD"})
	}

	roster, err := services.NewDispatchQueryService(database.GetDB()).ListForDate(scope, date)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(roster)
}

// GetDispatchDates lists the dates that have rosters, newest first.
func GetDispatchDates(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	dates, err := services.NewDispatchQueryService(database.GetDB()).Dates(scope)
	if err != nil {
		return serviceError(c, err)
	}

	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, d.Format("2006-01-02"))
	}
	return c.JSON(fiber.Map{"dates": formatted})
}

// GetDispatchHistory returns per-date completion summaries for a date
// range, defaulting to the last 30 days.
func GetDispatchHistory(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	to := utils.DateOnly(time.Now())
	from := to.AddDate(0, 0, -30)
	if f := c.Query("from"); f != "" {
		from, err = utils.ParseDate(f)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from, use YYYY-MM-DD"})
		}
	}
	if t := c.Query("to"); t != "" {
		to, err = utils.ParseDate(t)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to, use YYYY-MM-DD"})
		}
	}
	if to.Before(from) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to precedes from"})
	}

	history, err := services.NewDispatchQueryService(database.GetDB()).History(scope, from, to)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"history": history, "from": from.Format("2006-01-02"), "to": to.Format("2006-01-02")})
}

// UpdateDispatchStatus moves one assignment through its lifecycle.
func UpdateDispatchStatus(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignment id"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status is required"})
	}

	assignment, err := dispatchPlanner().UpdateStatus(scope, uint(id), req.Status)
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "dispatch", assignment.ID, fiber.Map{"status": req.Status})
	return c.JSON(fiber.Map{"assignment": assignment})
}

// DeleteDispatchByDate clears the roster of one date within scope.
func DeleteDispatchByDate(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	date, err := utils.ParseDate(c.Params("date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, use YYYY-MM-DD"})
	}

	deleted, err := dispatchPlanner().DeleteDispatch(scope, date)
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "DELETE", "dispatch", 0, fiber.Map{
		"date":    c.Params("date"),
		"deleted": deleted,
	})
	return c.JSON(fiber.Map{"deleted": deleted})
}

// CreateSpecialRequest files an ad-hoc dispatch request.
func CreateSpecialRequest(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return err
	}

	var in services.CreateRequestInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req, err := services.NewRequestService(database.GetDB()).Create(scope, user.ID, in)
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "special-requests", req.ID, fiber.Map{"type": req.RequestType})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": req})
}

// GetSpecialRequests lists special requests, optionally by status.
func GetSpecialRequests(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	requests, err := services.NewRequestService(database.GetDB()).List(scope, c.Query("status"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"requests": requests})
}

// ResolveSpecialRequest approves or rejects one pending request.
func ResolveSpecialRequest(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status is required"})
	}

	resolved, err := services.NewRequestService(database.GetDB()).Resolve(scope, uint(id), req.Status)
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "RESOLVE", "special-requests", resolved.ID, fiber.Map{"status": req.Status})
	return c.JSON(fiber.Map{"request": resolved})
}
