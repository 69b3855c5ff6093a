package main

import (
	"context"
	"log"
	"os"
	"strings"

	api "sift-backend/cmd/api"
	authdomain "sift-backend/internal/auth/domain"
	authRepo "sift-backend/internal/auth/repository"
	authUsecase "sift-backend/internal/auth/usecase"
	"sift-backend/internal/notification"
	syncDelivery "sift-backend/internal/sync/delivery"
	syncdomain "sift-backend/internal/sync/domain"
	syncRepo "sift-backend/internal/sync/repository"
	syncUsecase "sift-backend/internal/sync/usecase"
	"sift-backend/pkg/config"
	"sift-backend/pkg/database"
	"sift-backend/pkg/gcal"
	"sift-backend/pkg/gemini"
	"sift-backend/pkg/gmail"
	"sift-backend/pkg/imap"
	"sift-backend/pkg/sse"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &syncdomain.ProcessedEmail{}, &syncdomain.CalendarEvent{}, &syncdomain.SyncCost{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	processedEmailRepo := syncRepo.NewProcessedEmailRepository(db)
	calendarEventRepo := syncRepo.NewCalendarEventRepository(db)
	syncCostRepo := syncRepo.NewSyncCostRepository(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()

	// Initialize external services
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	gcalService := gcal.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.Timezone)
	imapService := imap.NewService()
	geminiService := gemini.NewService(cfg.GeminiAPIKey, cfg.GeminiModel)

	// Initialize sync service
	syncService, err := syncUsecase.NewSyncService(cfg, userRepo, processedEmailRepo, calendarEventRepo, syncCostRepo, gmailService, gcalService, imapService, geminiService)
	if err != nil {
		log.Fatal("Failed to initialize sync service:", err)
	}

	// Initialize Notification Service (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, sseManager, userRepo, syncService)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, notification service disabled")
	}

	// Initialize use cases and HTTP handlers (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)
	syncHandler := syncDelivery.NewSyncHandler(cfg, syncService, sseManager, userRepo, processedEmailRepo, calendarEventRepo, syncCostRepo, gmailService, gcalService)
	handler := api.NewHandler(authUsecaseInstance, syncHandler)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Printf("Server starting on port %s", port)
	if err := handler.Start(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
