package main

import (
	"log"

	"github.com/sitepulse/tracking-backend-go/internal/api"
	"github.com/sitepulse/tracking-backend-go/internal/config"
	"github.com/sitepulse/tracking-backend-go/internal/database"
	"github.com/sitepulse/tracking-backend-go/internal/repository"
	"github.com/sitepulse/tracking-backend-go/internal/service"
	"github.com/sitepulse/tracking-backend-go/internal/worklock"
)

func main() {
	cfg := config.Load()

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.NewMigrationManager(db).Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	projectRepo := repository.NewProjectRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	attendanceService := service.NewAttendanceService(attendanceRepo, service.PolicyDefaults{
		ScheduledStart: cfg.ScheduledStart,
		GraceMinutes:   cfg.LateGraceMinutes,
		RegularHours:   cfg.RegularHoursPerDay,
	})
	taskService := service.NewTaskService(taskRepo)
	tracking := service.NewTrackingService(
		projectRepo,
		attendanceService,
		taskService,
		worklock.NewRegistry(cfg.LockRetryAttempts),
		service.SystemClock(),
	)

	router := api.SetupRouter(cfg, tracking)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
