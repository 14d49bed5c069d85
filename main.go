package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"treasure-hunt-api/handlers"
	"treasure-hunt-api/models"
	"treasure-hunt-api/services"
	"treasure-hunt-api/utils"
	"treasure-hunt-api/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB, image uploads only
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, Idempotency-Key",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// R2 is optional: without credentials, uploads and QR images fall back
	// to the local uploads dir.
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 not configured, using local upload fallback: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.AuthIdentity{},
		&models.Admin{},
		&models.Content{},
		&models.ContentPrerequisite{},
		&models.Stage{},
		&models.StageHint{},
		&models.HintImage{},
		&models.StagePuzzle{},
		&models.StageUnlockPreset{},
		&models.NFCTag{},
		&models.NFCScanLog{},
		&models.UserContentProgress{},
		&models.UserStageProgress{},
		&models.RewardLedger{},
		&models.Store{},
		&models.StoreReward{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	emailService := services.NewEmailService()
	authService := services.NewAuthService(db, emailService)
	ledgerService := services.NewLedgerService(db)
	scanService := services.NewScanService(db, ledgerService)
	progressionService := services.NewProgressionService(db, ledgerService)
	redemptionService := services.NewRedemptionService(db, ledgerService)
	notificationService := services.NewNotificationService(db)
	idemStore := services.NewIdempotencyStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	purgeWorker := workers.NewUserPurgeWorker(db)
	purgeWorker.Start(ctx)

	notificationService.StartStatusScheduler()

	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupMeRoutes(app, db, authService, ledgerService)
	handlers.SetupContentRoutes(app, db, authService, progressionService)
	handlers.SetupNFCRoutes(app, db, authService, scanService, idemStore)
	handlers.SetupProgressRoutes(app, db, authService, progressionService)
	handlers.SetupStoreRoutes(app, db, authService, redemptionService, notificationService, idemStore)
	handlers.SetupAdminUserRoutes(app, db, authService, ledgerService)
	handlers.SetupAdminContentRoutes(app, db, authService)
	handlers.SetupAdminStageRoutes(app, db, authService)
	handlers.SetupAdminNFCRoutes(app, db, authService)
	handlers.SetupAdminStoreRoutes(app, db, authService)
	handlers.SetupAdminMiscRoutes(app, db, authService)

	app.Static("/uploads", "./uploads")

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ User Purge Worker running (daily)")
	log.Println("✅ Notification status scheduler running (every minute)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
