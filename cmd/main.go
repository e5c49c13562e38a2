package main

import (
	"context"

	config "training-crm-backend/config"
	"training-crm-backend/internal/bootstrap"
	"training-crm-backend/internal/kvstore"
	"training-crm-backend/internal/tasks"
	"training-crm-backend/middleware"
	"training-crm-backend/token"
	"training-crm-backend/utils"

	// Repositories
	clients_repositories "training-crm-backend/clients/repositories"
	locations_repositories "training-crm-backend/locations/repositories"
	sites_repositories "training-crm-backend/sites/repositories"

	// Services
	clients_services "training-crm-backend/clients/services"
	locations_services "training-crm-backend/locations/services"
	sites_services "training-crm-backend/sites/services"

	// Routes
	client_routes "training-crm-backend/clients/routes"
	location_routes "training-crm-backend/locations/routes"
	site_routes "training-crm-backend/sites/routes"

	// Schema resolution
	"training-crm-backend/db/schema"

	// bleve
	bleveControllers "training-crm-backend/bleve/controllers"
	bleveRepositories "training-crm-backend/bleve/repositories"
	bleveRoutes "training-crm-backend/bleve/routes"
	bleveServices "training-crm-backend/bleve/services"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize Zap logger
	config.InitLogger()

	// Load environment variables
	if err := godotenv.Load(".env"); err != nil {
		config.Logger.Warn("No .env file loaded; relying on environment", zap.Error(err))
	}

	app := fiber.New()

	// Apply CORS middleware from middleware package
	middleware.InitCors(app)

	// Initialize database and configs
	db := config.ConfigureDatabase()
	port := config.GetEnvOr("PORT", "8080")
	ctx := context.Background()

	// Redis client for Asynq and other uses
	redisAddr := config.GetEnvOr("REDIS_ADDRESS", "localhost:6379")
	redisClient := config.InitRedisServer(ctx)

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: config.GetEnvOr("REDIS_PASSWORD", ""),
		DB:       0,
	}

	asynqClient := asynq.NewClient(asynqRedisOpt)
	defer asynqClient.Close()

	tokenKey := config.GetEnv("TOKEN_SYMMETRIC_KEY")
	tokenMaker, err := token.NewPasetoMaker(tokenKey)
	if err != nil {
		config.Logger.Fatal("Cannot create token maker", zap.Error(err))
	}

	indexPath := config.GetEnvOr("BLEVE_INDEX_PATH", "./bleve_data")

	baseURL := config.GetEnvOr("BASE_URL", "http://localhost:"+port)

	// Date location
	if err := utils.InitializeDateLocation(); err != nil {
		config.Logger.Fatal("Failed to initialize date location", zap.Error(err))
	}

	// Initialize the mailer
	utils.InitializeMailer()
	if utils.GetMailer() == nil {
		config.Logger.Fatal("Mailer not initialized")
	}

	// Generated exports and uploaded quotes are served statically
	if err := utils.EnsureDirectoryExists("./public/files"); err != nil {
		config.Logger.Fatal("Cannot create export directory", zap.Error(err))
	}
	app.Static("/public", "./public")
	app.Static("/uploads", "./uploads")

	// Caches backed by Redis
	store := kvstore.NewRedisStore(redisClient)
	locationCache := locations_services.NewLocationCache(db, store)
	headSiteCache := sites_services.NewHeadSiteCache(db, store, locationCache)

	// Repositories
	bleveIndexingService := bleveServices.NewIndexingService(config.Logger, indexPath)
	bleveServiceRepo, bleveInterfaceRepo := bleveRepositories.NewBleveRepository(bleveIndexingService)
	resolver := schema.NewResolver(db)
	contactRepo := clients_repositories.NewContactRepository(db)
	communicationRepo := clients_repositories.NewCommunicationRepository(db)
	hydrator := clients_repositories.NewClientHydrator(contactRepo, communicationRepo, headSiteCache)
	clientRepo := clients_repositories.NewClientRepository(db, resolver, hydrator)
	siteRepo := sites_repositories.NewSiteRepository(db, headSiteCache)
	locationRepo := locations_repositories.NewLocationRepository(db, locationCache)

	// Services
	fileStorage := utils.NewLocalFileStorage("./uploads")
	exportService := clients_services.NewExportService(clientRepo, asynqClient)

	// Optional auth in front of the API: reads stay open, writes need a token
	if config.GetEnvOr("AUTH_ENABLED", "false") == "true" {
		appCtx := &middleware.AppContext{
			PasetoMaker: tokenMaker,
			Ctx:         ctx,
			RedisClient: redisClient,
		}
		protected := middleware.ProtectedRoute(appCtx)
		app.Use("/api/v1", func(c *fiber.Ctx) error {
			if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
				return c.Next()
			}
			return protected(c)
		})
	}

	// Routes
	client_routes.ClientInitRoutes(app, clientRepo, contactRepo, communicationRepo, siteRepo, bleveInterfaceRepo, exportService, fileStorage, redisClient, db)
	site_routes.SiteInitRoutes(app, siteRepo, headSiteCache)
	location_routes.LocationInitRoutes(app, locationRepo, locationCache)

	// Bleve Routes
	bleveController := bleveControllers.NewSearchController(bleveServiceRepo)
	bleveRoutes.InitBleveRoutes(app, bleveController, db)

	// Background export worker
	exportHandler := tasks.NewClientExportHandler(db, clientRepo, redisClient, baseURL)
	asynqServer := asynq.NewServer(asynqRedisOpt, asynq.Config{Concurrency: 5})
	go func() {
		if err := asynqServer.Run(tasks.NewServeMux(exportHandler)); err != nil {
			config.Logger.Fatal("Asynq worker failed", zap.Error(err))
		}
	}()

	// Nightly maintenance: export cleanup, cache warm and database backup
	go utils.RunScheduledMaintenance(redisClient, func(ctx context.Context) error {
		return bootstrap.WarmCaches(ctx, locationCache, clientRepo, headSiteCache)
	})

	// Re-index all clients so search reflects the database on startup
	go bootstrap.IndexBleveData(ctx, clientRepo, bleveInterfaceRepo)

	// Start the application
	config.Logger.Info("Server starting", zap.String("port", port))
	config.Logger.Fatal("Server failed", zap.String("port", port), zap.Error(app.Listen(":"+port)))
}
