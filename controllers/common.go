package controllers

import (
	"errors"

	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/services"

	"github.com/gofiber/fiber/v2"
)

// requestScope resolves the capability scope of the authenticated user.
func requestScope(c *fiber.Ctx) (services.Scope, error) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return nil, err
	}
	return services.ScopeForUser(database.GetDB(), user), nil
}

// serviceError maps a typed service failure onto an HTTP response with
// a stable machine-readable code.
func serviceError(c *fiber.Ctx, err error) error {
	type mapping struct {
		status int
		code   string
	}
	known := []struct {
		err error
		mapping
	}{
		{services.ErrNotFound, mapping{fiber.StatusNotFound, "NOT_FOUND"}},
		{services.ErrAuthorization, mapping{fiber.StatusForbidden, "FORBIDDEN"}},
		{services.ErrDuplicateDispatch, mapping{fiber.StatusConflict, "DUPLICATE_DISPATCH"}},
		{services.ErrRequestResolved, mapping{fiber.StatusConflict, "REQUEST_RESOLVED"}},
		{services.ErrVehicleTaken, mapping{fiber.StatusConflict, "VEHICLE_TAKEN"}},
		{services.ErrDriverTaken, mapping{fiber.StatusConflict, "DRIVER_TAKEN"}},
		{services.ErrBranchMismatch, mapping{fiber.StatusConflict, "BRANCH_MISMATCH"}},
		{services.ErrInvalidTransition, mapping{fiber.StatusUnprocessableEntity, "INVALID_TRANSITION"}},
		{services.ErrNoEligibleStudents, mapping{fiber.StatusUnprocessableEntity, "NO_ELIGIBLE_STUDENTS"}},
		{services.ErrNoAvailableVehicle, mapping{fiber.StatusUnprocessableEntity, "NO_AVAILABLE_VEHICLE"}},
		{services.ErrNoStartWindow, mapping{fiber.StatusUnprocessableEntity, "NO_SUBSCRIPTION_WINDOW"}},
		{services.ErrNotADriver, mapping{fiber.StatusUnprocessableEntity, "NOT_A_DRIVER"}},
		{services.ErrInvalidRequest, mapping{fiber.StatusBadRequest, "INVALID_REQUEST"}},
	}

	for _, k := range known {
		if errors.Is(err, k.err) {
			return c.Status(k.status).JSON(fiber.Map{"error": k.err.Error(), "code": k.code})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
		"code":  "INTERNAL",
	})
}
