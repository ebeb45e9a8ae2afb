package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joynpoolmaster-tech/my-academy-bus/config"
	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/database/seeders"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/routes"
	"github.com/joynpoolmaster-tech/my-academy-bus/services"
	"github.com/joynpoolmaster-tech/my-academy-bus/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadConfig()
	setupLogger()

	database.Connect()
	defer database.Close()

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := seeders.Seed(database.GetDB()); err != nil {
			logrus.WithError(err).Fatal("Seeding failed")
		}
		logrus.Info("Seeding completed")
		return
	}

	app := fiber.New(fiber.Config{
		AppName: "academy-bus",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.MetricsMiddleware())

	routes.SetupRoutes(app)

	db := database.GetDB()
	notifier := services.NewExpiryNotifier(db, services.NewSubscriptionService(db), config.AppConfig)
	if err := notifier.Start(); err != nil {
		logrus.WithError(err).Fatal("Failed to start expiry notifier")
	}
	defer notifier.Stop()

	var s3Store *storage.S3Storage
	if config.AppConfig.S3BucketName != "" {
		store, err := storage.NewS3Storage(context.Background())
		if err != nil {
			logrus.WithError(err).Warn("S3 unavailable, log archiving disabled")
		} else {
			s3Store = store
		}
	}
	archiver := services.NewLogArchiveService(db, database.GetRedisClient(), s3Store)
	if err := archiver.Start(); err != nil {
		logrus.WithError(err).Fatal("Failed to start log archiver")
	}
	defer archiver.Stop()

	// Graceful shutdown
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logrus.Info("Shutting down")
		_ = app.Shutdown()
	}()

	addr := ":" + config.AppConfig.Port
	logrus.WithField("addr", addr).Info("Server starting")
	if err := app.Listen(addr); err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}
}

func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if config.AppConfig.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.AppConfig.LogFile), 0o755); err == nil {
			f, err := os.OpenFile(config.AppConfig.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				logrus.SetOutput(f)
				return
			}
		}
		logrus.Warn("Unable to open log file, logging to stdout")
	}
	logrus.SetOutput(os.Stdout)
}
