package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/nimbuscrm/crm-backend/internal/core/jobs"
	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
	"github.com/nimbuscrm/crm-backend/internal/modules/crm/repositories"
	"github.com/nimbuscrm/crm-backend/internal/shared/config"
	"github.com/nimbuscrm/crm-backend/internal/shared/database"
	"github.com/nimbuscrm/crm-backend/internal/shared/utils"
)

// The worker resumes delayed workflow actions once their due time passes. It
// shares the engine with the API so delayed actions behave exactly like
// inline ones.
func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)
	log.Info().Msg("starting crm-worker")

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
	queue := jobs.NewQueue(db)

	engine := workflow.NewEngine(workflow.Stores{
		Workflows:     workflowRepo,
		Executions:    executionRepo,
		Records:       recordRepo,
		Tasks:         taskRepo,
		Notifications: notificationRepo,
		Users:         userRepo,
		Delays:        queue,
	}, workflow.Options{
		WebhookTimeout: cfg.WebhookTimeout,
	})

	worker := jobs.NewWorker(queue, engine, jobs.WorkerConfig{
		PollInterval: cfg.WorkerPollInterval,
		Timeout:      cfg.WorkerTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down crm-worker")
	cancel()
	worker.Wait()
}
