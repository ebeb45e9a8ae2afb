package routes

import (
	"github.com/joynpoolmaster-tech/my-academy-bus/controllers"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers all HTTP endpoints.
func SetupRoutes(app *fiber.App) {
	app.Get("/health", controllers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Public
	auth := api.Group("/auth")
	auth.Post("/register", controllers.Register)
	auth.Post("/login", controllers.Login)
	api.Get("/branches", controllers.GetBranches)

	// Authenticated
	protected := api.Group("", middleware.JWTMiddleware(), middleware.LogActivityMiddleware())

	protected.Get("/auth/profile", controllers.GetProfile)
	protected.Put("/auth/password", controllers.ChangePassword)

	// Branches (master only for mutation)
	protected.Get("/branches/:id", middleware.RequireAdmin(), controllers.GetBranch)
	protected.Post("/branches", middleware.RequireMaster(), controllers.CreateBranch)
	protected.Put("/branches/:id", middleware.RequireMaster(), controllers.UpdateBranch)
	protected.Delete("/branches/:id", middleware.RequireMaster(), controllers.DeleteBranch)

	// Classes
	classes := protected.Group("/classes", middleware.RequireAdmin())
	classes.Get("/", controllers.GetClasses)
	classes.Post("/", controllers.CreateClass)
	classes.Post("/:id/time-slots", controllers.AddTimeSlot)
	classes.Delete("/:id", controllers.DeleteClass)

	// Students
	students := protected.Group("/students", middleware.RequireDriverOrAdmin())
	students.Get("/", controllers.GetStudents)
	students.Get("/expiring", middleware.RequireAdmin(), controllers.GetExpiringStudents)
	students.Get("/:id", controllers.GetStudent)
	students.Put("/:id", middleware.RequireAdmin(), controllers.UpdateStudent)
	students.Post("/:id/approve", middleware.RequireAdmin(), controllers.ApproveStudent)
	students.Post("/:id/reject", middleware.RequireAdmin(), controllers.RejectStudent)
	students.Post("/:id/extend", middleware.RequireAdmin(), controllers.ExtendStudent)

	// Absences
	absences := protected.Group("/absences", middleware.RequireAdmin())
	absences.Get("/", controllers.GetAbsences)
	absences.Post("/", controllers.CreateAbsence)
	absences.Delete("/:id", controllers.DeleteAbsence)

	// Vehicles and driver pairing
	vehicles := protected.Group("/vehicles", middleware.RequireDriverOrAdmin())
	vehicles.Get("/", controllers.GetVehicles)
	vehicles.Post("/", middleware.RequireAdmin(), controllers.CreateVehicle)
	vehicles.Put("/:id", middleware.RequireAdmin(), controllers.UpdateVehicle)
	vehicles.Delete("/:id", middleware.RequireAdmin(), controllers.DeleteVehicle)
	vehicles.Post("/:id/driver", middleware.RequireAdmin(), controllers.AssignDriver)
	vehicles.Delete("/:id/driver", middleware.RequireAdmin(), controllers.UnassignDriver)
	vehicles.Get("/pairing", middleware.RequireAdmin(), controllers.GetPairingWorklist)
	vehicles.Post("/pairing/auto", middleware.RequireAdmin(), controllers.AutoPairDrivers)

	// Dispatch
	dispatch := protected.Group("/dispatch", middleware.RequireDriverOrAdmin())
	dispatch.Post("/", middleware.RequireAdmin(), controllers.CreateDispatch)
	dispatch.Get("/dates", controllers.GetDispatchDates)
	dispatch.Get("/history", controllers.GetDispatchHistory)
	dispatch.Get("/:date", controllers.GetDispatchByDate)
	dispatch.Put("/assignments/:id/status", middleware.RequireAdmin(), controllers.UpdateDispatchStatus)
	dispatch.Delete("/:date", middleware.RequireAdmin(), controllers.DeleteDispatchByDate)

	// Special requests
	requests := protected.Group("/special-requests", middleware.RequireAdmin())
	requests.Get("/", controllers.GetSpecialRequests)
	requests.Post("/", controllers.CreateSpecialRequest)
	requests.Put("/:id", controllers.ResolveSpecialRequest)

	// Notifications
	notifications := protected.Group("/notifications", middleware.RequireRole(
		models.RoleMaster, models.RoleAdmin, models.RoleDriver, models.RoleStudent))
	notifications.Get("/", controllers.GetNotifications)
	notifications.Put("/read-all", controllers.MarkAllNotificationsRead)
	notifications.Put("/:id/read", controllers.MarkNotificationRead)

	// Audit
	logs := protected.Group("/logs", middleware.RequireMaster())
	logs.Get("/", controllers.GetActivityLogs)
	logs.Get("/archives", controllers.GetLogArchives)
}
