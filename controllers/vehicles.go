package controllers

import (
	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/services"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/gofiber/fiber/v2"
)

// GetVehicles lists vehicles in scope with their drivers.
func GetVehicles(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var vehicles []models.Vehicle
	err = scope.ScopeVehicles(database.GetDB().Model(&models.Vehicle{})).
		Preload("Driver").
		Preload("Branch").
		Order("id ASC").
		Find(&vehicles).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch vehicles"})
	}
	return c.JSON(fiber.Map{"vehicles": vehicles})
}

// CreateVehicle registers a vehicle in a branch.
func CreateVehicle(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var req struct {
		VehicleNumber string `json:"vehicle_number"`
		Capacity      int    `json:"capacity"`
		BranchID      uint   `json:"branch_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.VehicleNumber == "" || req.BranchID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "vehicle_number and branch_id are required"})
	}
	if req.Capacity < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "capacity must be at least 1"})
	}
	if !scope.CanMutate() || !scope.AllowsBranch(req.BranchID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Branch outside your scope"})
	}

	vehicle := models.Vehicle{
		VehicleNumber: utils.SanitizeString(req.VehicleNumber),
		Capacity:      req.Capacity,
		BranchID:      req.BranchID,
	}
	if err := database.GetDB().Create(&vehicle).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Vehicle number already registered"})
	}

	middleware.LogActivity(c, "CREATE", "vehicles", vehicle.ID, fiber.Map{"vehicle_number": vehicle.VehicleNumber})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"vehicle": vehicle})
}

// UpdateVehicle edits capacity or number.
func UpdateVehicle(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vehicle id"})
	}

	var req struct {
		VehicleNumber *string `json:"vehicle_number"`
		Capacity      *int    `json:"capacity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	db := database.GetDB()
	var vehicle models.Vehicle
	if err := db.First(&vehicle, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Vehicle not found"})
	}
	if !scope.CanMutate() || !scope.AllowsVehicle(&vehicle) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Vehicle outside your scope"})
	}

	updates := map[string]interface{}{}
	if req.VehicleNumber != nil && *req.VehicleNumber != "" {
		updates["vehicle_number"] = utils.SanitizeString(*req.VehicleNumber)
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "capacity must be at least 1"})
		}
		updates["capacity"] = *req.Capacity
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}
	if err := db.Model(&vehicle).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update vehicle"})
	}

	middleware.LogActivity(c, "UPDATE", "vehicles", vehicle.ID, updates)
	return c.JSON(fiber.Map{"message": "Vehicle updated"})
}

// DeleteVehicle removes a vehicle that has no roster rows.
func DeleteVehicle(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vehicle id"})
	}

	db := database.GetDB()
	var vehicle models.Vehicle
	if err := db.First(&vehicle, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Vehicle not found"})
	}
	if !scope.CanMutate() || !scope.AllowsVehicle(&vehicle) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Vehicle outside your scope"})
	}

	var assignments int64
	db.Model(&models.DispatchAssignment{}).Where("vehicle_id = ?", vehicle.ID).Count(&assignments)
	if assignments > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Vehicle has dispatch history"})
	}

	if err := db.Delete(&vehicle).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete vehicle"})
	}

	middleware.LogActivity(c, "DELETE", "vehicles", vehicle.ID, nil)
	return c.JSON(fiber.Map{"message": "Vehicle deleted"})
}

// AssignDriver pairs a specific driver with a specific vehicle.
func AssignDriver(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vehicle id"})
	}

	var req struct {
		DriverID uint `json:"driver_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.DriverID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "driver_id is required"})
	}

	svc := services.NewPairingService(database.GetDB())
	vehicle, err := svc.AssignDriver(scope, uint(id), req.DriverID)
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "ASSIGN_DRIVER", "vehicles", vehicle.ID, fiber.Map{"driver_id": req.DriverID})
	return c.JSON(fiber.Map{"vehicle": vehicle})
}

// UnassignDriver detaches a vehicle's driver.
func UnassignDriver(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid vehicle id"})
	}

	svc := services.NewPairingService(database.GetDB())
	vehicle, err := svc.UnassignDriver(scope, uint(id))
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "UNASSIGN_DRIVER", "vehicles", vehicle.ID, nil)
	return c.JSON(fiber.Map{"vehicle": vehicle})
}

// GetPairingWorklist shows the proposed driver/vehicle matches without
// applying them.
func GetPairingWorklist(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	svc := services.NewPairingService(database.GetDB())
	wl, err := svc.BuildWorklist(scope)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"worklist": wl})
}

// AutoPairDrivers builds and applies the pairing worklist in one call.
func AutoPairDrivers(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	svc := services.NewPairingService(database.GetDB())
	wl, applied, err := svc.AutoPair(scope)
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "AUTO_PAIR", "vehicles", 0, fiber.Map{"paired": applied})
	return c.JSON(fiber.Map{"worklist": wl, "paired": applied})
}
