package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"

	"github.com/nimbuscrm/crm-backend/internal/core/jobs"
	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/handlers"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/repositories"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/services"
	"github.com/nimbuscrm/crm-backend/internal/shared/config"
	"github.com/nimbuscrm/crm-backend/internal/shared/database"
	"github.com/nimbuscrm/crm-backend/internal/shared/utils"

	_ "github.com/nimbuscrm/crm-backend/docs"
)

// @title CRM Workflow API
// @version 1.0
// @description Workflow automation API for the CRM backend
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)
	log.Info().Str("port", cfg.Port).Msg("starting crm-api")

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close(db)

	workflowRepo := repositories.NewWorkflowRepo(db)
	executionRepo := repositories.NewExecutionRepo(db)
	recordRepo := repositories.NewRecordRepo(db)
	taskRepo := repositories.NewTaskRepo(db)
	notificationRepo := repositories.NewNotificationRepo(db)
	userRepo := repositories.NewUserRepo(db)
	delayQueue := jobs.NewQueue(db)

	engine := workflow.NewEngine(workflow.Stores{
		Workflows:     workflowRepo,
		Executions:    executionRepo,
		Records:       recordRepo,
		Tasks:         taskRepo,
		Notifications: notificationRepo,
		Users:         userRepo,
		Delays:        delayQueue,
	}, workflow.Options{
		WebhookTimeout: cfg.WebhookTimeout,
	})

	scheduler := workflow.NewScheduler()

	workflowService := services.NewWorkflowService(workflowRepo, executionRepo, recordRepo, engine, scheduler)
	if err := workflowService.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize workflow service")
	}
	defer workflowService.Shutdown()

	workflowHandler := handlers.NewWorkflowHandler(workflowService)
	eventHandler := handlers.NewEventHandler(workflowService)
	healthHandler := handlers.NewHealthHandler(db)

	app := fiber.New(fiber.Config{
		AppName: "CRM Workflow API",
	})

	app.Use(cors.New())

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", healthHandler.GetHealth)

	app.Post("/workflows", workflowHandler.CreateWorkflow)
	app.Get("/workflows", workflowHandler.ListWorkflows)
	app.Get("/workflows/:id", workflowHandler.GetWorkflow)
	app.Put("/workflows/:id", workflowHandler.UpdateWorkflow)
	app.Delete("/workflows/:id", workflowHandler.DeleteWorkflow)
	app.Post("/workflows/:id/execute", workflowHandler.ExecuteWorkflow)
	app.Get("/workflows/:id/executions", workflowHandler.GetWorkflowExecutions)
	app.Get("/executions/:id/actions", workflowHandler.GetExecutionActions)

	app.Post("/events", eventHandler.HandleEvent)

	log.Info().Str("port", cfg.Port).Msg("crm-api listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
