package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/renderdeck/api/internal/client"
	"github.com/renderdeck/api/internal/config"
	"github.com/renderdeck/api/internal/engine"
	"github.com/renderdeck/api/internal/handler"
	"github.com/renderdeck/api/internal/middleware"
	"github.com/renderdeck/api/internal/service"
	"github.com/renderdeck/api/internal/store"
	"github.com/renderdeck/api/internal/worker"
	ws "github.com/renderdeck/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	kieClient := client.NewKieClient(&cfg.Kie)
	openaiClient := client.NewOpenAIClient(&cfg.OpenAI)

	// Initialize R2 client (optional - continues if not configured)
	var r2Client client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		c, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			r2Client = c
		}
	} else {
		log.Println("Info: R2 storage not configured, uploads fall back to the vendor endpoint")
	}

	// Transient session state: the task store and activity log live in
	// process memory only. The hub mirrors every appended log line to
	// connected panels.
	taskStore := store.NewTaskStore()
	activityLog := store.NewActivityLog(store.DefaultLogCapacity, hub.BroadcastLog)

	// Initialize services
	taskService := service.NewTaskService(kieClient, taskStore, activityLog, hub)
	uploadService := service.NewUploadService(r2Client, kieClient)
	ugcService := service.NewUGCService(redisClient, asynqClient)

	// Initialize handlers
	taskHandler := handler.NewTaskHandler(taskService, validate)
	uploadHandler := handler.NewUploadHandler(uploadService)
	ugcHandler := handler.NewUGCHandler(ugcService, validate)
	settingsHandler := handler.NewSettingsHandler(kieClient, activityLog)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    20 * 1024 * 1024, // 20MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"kie":    kieClient.IsConfigured(),
				"openai": openaiClient.IsConfigured(),
				"r2":     r2Client != nil,
				"auth":   cfg.JWT.Secret != "",
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Task routes
	api.Post("/tasks", rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerMin), taskHandler.Submit)
	api.Get("/tasks", taskHandler.List)
	api.Get("/tasks/:taskId", taskHandler.Get)
	api.Get("/tasks/:taskId/artifact", taskHandler.Artifact)
	api.Post("/tasks/:taskId/read", taskHandler.MarkRead)
	api.Delete("/tasks", taskHandler.Reset)
	api.Get("/logs", taskHandler.Logs)

	// Settings & credits
	api.Get("/settings", settingsHandler.Get)
	api.Put("/settings", settingsHandler.Update)
	api.Get("/credits", settingsHandler.Credits)

	// Upload routes
	api.Post("/upload/image", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), uploadHandler.Image)

	// UGC routes
	ugc := api.Group("/ugc")
	ugc.Post("/start", rateLimiter.UGCLimit(cfg.RateLimit.UGCPerHour), ugcHandler.Start)
	ugc.Get("/status/:runId", ugcHandler.Status)
	ugc.Get("/result/:runId", ugcHandler.Result)
	ugc.Post("/estimate", ugcHandler.Estimate)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/panel", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, ws.PanelChannel)
	}))

	app.Get("/ws/ugc/:runId", websocket.New(func(c *websocket.Conn) {
		runID := c.Params("runId")
		hub.HandleConnection(c, runID)
	}))

	// Start the polling engine; its lifetime is bound to engineCtx.
	engineCtx, stopEngine := context.WithCancel(ctx)
	defer stopEngine()
	poller := engine.New(taskStore, kieClient, activityLog, hub, engine.Options{
		SimulateEvery:  time.Duration(cfg.Poll.SimulateInterval) * time.Second,
		ReconcileEvery: time.Duration(cfg.Poll.ReconcileInterval) * time.Second,
	})
	go poller.Run(engineCtx)

	// Start Asynq worker server
	go startWorkerServer(cfg, ugcService, openaiClient, kieClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stopEngine()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	ugcService *service.UGCService,
	openaiClient *client.OpenAIClient,
	kieClient *client.KieClient,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"ugc": 4,
			},
			LogLevel: asynqLogLevel,
		},
	)

	ugcWorker := worker.NewUGCWorker(ugcService, openaiClient, kieClient, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeUGC, ugcWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
