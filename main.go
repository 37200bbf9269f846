package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-service/domain/repository"
	"course-service/infrastructure/cache"
	"course-service/infrastructure/clients/s3store"
	youtubeclient "course-service/infrastructure/clients/youtube"
	"course-service/infrastructure/configuration"
	"course-service/infrastructure/logger"
	"course-service/infrastructure/media"
	"course-service/infrastructure/persistence"
	"course-service/infrastructure/pubsub"
	"course-service/infrastructure/realtime"
	"course-service/infrastructure/servicebus"
	httpHandler "course-service/interfaces/http"
	"course-service/server"
	"course-service/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	cfg := configuration.C
	app := cfg.App

	// Course store: the service cannot run without it.
	mongoClient, err := persistence.NewMongoDb(
		cfg.Database.Mongo.Host,
		cfg.Database.Mongo.Port,
		cfg.Database.Mongo.User,
		cfg.Database.Mongo.Password,
		cfg.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("MongoDB connection failed")
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Fatal("MongoDB ping failed")
	}
	mongoDb := mongoClient.Database(cfg.Database.Mongo.Name)
	if err := persistence.EnsureCourseIndexes(ctx, mongoDb); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed ensuring course indexes")
	}
	logger.GetLogger().Info("MongoDB connected successfully")

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
		cfg.RedisClient.Username,
		cfg.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not reachable at startup - reads fall through to MongoDB")
	}
	courseCache := cache.NewCourseCache(redisClient, cache.TTL{
		Course:  cfg.Cache.CourseTTL,
		Content: cfg.Cache.ContentTTL,
		Listing: cfg.Cache.ListingTTL,
	})

	videoStore, imageStore, youtubeAuthHandler, err := InitiateMediaStores(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Media storage initialization failed")
	}
	uploader := media.NewUploader(videoStore, imageStore, media.UploaderConfig{
		MaxAttempts: cfg.Media.UploadAttempts,
		BaseDelay:   cfg.Media.UploadBaseDelay,
		MaxDelay:    cfg.Media.UploadMaxDelay,
		Jitter:      cfg.Media.UploadJitter,
		Timeout:     cfg.Media.UploadTimeout,
		ChunkSize:   cfg.Media.ChunkSize,
		VideoFolder: cfg.Media.VideoFolder,
		ImageFolder: cfg.Media.ImageFolder,
	})
	resolver := media.NewDurationResolver(videoStore, media.ResolverConfig{
		LocalTimeout:    cfg.Duration.LocalTimeout,
		MinFileBytes:    cfg.Duration.MinFileBytes,
		RemoteAttempts:  cfg.Duration.RemoteAttempts,
		RemoteDelay:     cfg.Duration.RemoteDelay,
		PendingDelay:    cfg.Duration.PendingDelay,
		PlaybackTimeout: cfg.Duration.PlaybackTimeout,
		FFProbePath:     cfg.Duration.FFProbePath,
	})

	courseRepository := persistence.NewCourseRepository(mongoDb, cfg.Course.OptimisticLocking)
	mutationHub := realtime.NewMutationHub()
	mutationUsecase := usecase.NewCourseMutationUseCase(courseRepository, courseCache, uploader, resolver).
		WithEvents(mutationHub)

	checks := map[string]httpHandler.HealthCheck{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	ledger, ledgerDb, err := InitiateLedger()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Orphan ledger not available - failed deletions are only logged")
	} else {
		checks["ledger"] = ledgerDb.PingContext
		assetEvents, closeEvents := InitiateAssetEvents(ctx)
		defer closeEvents()
		mutationUsecase.WithOrphanLedger(ledger, assetEvents)

		if cfg.Reconciler.Enabled {
			reconciler := usecase.NewOrphanReconciler(ledger, uploader, cfg.Reconciler.BatchSize, cfg.Reconciler.MaxAttempts)
			g.Go(func() error {
				if err := reconciler.Start(ctx, cfg.Reconciler.Schedule); err != nil {
					return err
				}
				<-ctx.Done()
				reconciler.Stop()
				return nil
			})
		}
	}

	auditDb, err := persistence.NewRepositories()
	switch {
	case errors.Is(err, persistence.ErrAuditDisabled):
		logger.GetLogger().Info("MySQL not configured; mutation audit trail disabled")
	case err != nil:
		logger.GetLogger().WithField("error", err).Warn("Mutation audit database not available")
	default:
		mutationUsecase.WithAudit(persistence.NewMutationAuditRepository(auditDb))
		logger.GetLogger().Info("Mutation audit trail enabled")
	}

	queryUsecase := usecase.NewCourseQueryUseCase(courseRepository, courseCache)

	courseHandler := httpHandler.NewCourseHandler(mutationUsecase, queryUsecase, httpHandler.UploadLimits{
		TempDir:  cfg.Media.TempDir,
		MaxBytes: cfg.Media.MaxUploadBytes,
	})
	healthHandler := httpHandler.NewHealthHandler(checks)

	router := server.InitiateRouter(server.RouterConfig{
		SecretKey:      app.SecretKey,
		AllowedOrigins: app.AllowedOrigins,
	}, courseHandler, healthHandler, mutationHub.Serve, youtubeAuthHandler)

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
			// Uploads of large lectures stream for minutes.
			ReadTimeout:  0,
			WriteTimeout: 0,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
		} else {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB disconnect failed")
	}

	err = g.Wait()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateMediaStores returns the video and image stores. Thumbnails always
// go to S3; videos go to YouTube unless media.videoProvider is "s3". The
// consent handler is nil when videos do not go to YouTube.
func InitiateMediaStores(ctx context.Context) (repository.IMediaStore, repository.IMediaStore, httpHandler.IYouTubeAuthHandler, error) {
	s3cfg := s3store.Config{
		Bucket:       configuration.C.S3.Bucket,
		Region:       configuration.C.S3.Region,
		Endpoint:     configuration.C.S3.Endpoint,
		AccessKey:    configuration.C.S3.AccessKey,
		SecretKey:    configuration.C.S3.SecretKey,
		PublicURL:    configuration.C.S3.PublicURL,
		UsePathStyle: configuration.C.S3.UsePathStyle,
	}
	s3Client, err := s3store.NewClient(ctx, s3cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	imageStore := s3store.NewStore(s3Client, s3cfg)

	if configuration.C.Media.VideoProvider == "s3" {
		logger.GetLogger().WithField("bucket", s3cfg.Bucket).Info("Videos stored on S3")
		return imageStore, imageStore, nil, nil
	}

	ytConfig := configuration.GetYouTubeConfig()
	logger.GetLogger().WithFields(map[string]interface{}{
		"hasAccessToken":  ytConfig.AccessToken != "",
		"hasRefreshToken": ytConfig.RefreshToken != "",
		"hasAPIKey":       ytConfig.APIKey != "",
		"clientIDSet":     ytConfig.ClientID != "",
	}).Info("Loaded YouTube configuration state")

	videoStore, err := youtubeclient.NewYouTubeClient(ctx, &youtubeclient.Config{
		ClientID:      ytConfig.ClientID,
		ClientSecret:  ytConfig.ClientSecret,
		RedirectURL:   ytConfig.RedirectURL,
		AccessToken:   ytConfig.AccessToken,
		RefreshToken:  ytConfig.RefreshToken,
		APIKey:        ytConfig.APIKey,
		PrivacyStatus: ytConfig.PrivacyStatus,
		CategoryID:    ytConfig.CategoryID,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("youtube client: %w", err)
	}
	authHandler := httpHandler.NewYouTubeAuthHandler(httpHandler.YouTubeOAuthConfig(ytConfig), httpHandler.SaveTokenFile("token.json"))
	return videoStore, imageStore, authHandler, nil
}

// InitiateLedger opens the orphaned-asset ledger named by database.ledger.
// DB_VENDOR=mssql overrides the configured backend for local runs against SQL Server.
func InitiateLedger() (repository.IOrphanAsset, *sql.DB, error) {
	vendor := configuration.C.Database.Ledger
	if v := os.Getenv("DB_VENDOR"); v != "" {
		vendor = v
	}
	switch vendor {
	case "mssql":
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, nil, fmt.Errorf("cannot connect to MSSQL: %w", err)
		}
		if err := persistence.EnsureOrphanSchemaMSSQL(db); err != nil {
			return nil, nil, err
		}
		logger.GetLogger().Info("Orphan ledger on MSSQL")
		return persistence.NewOrphanAssetRepositoryMSSQL(db), db, nil
	case "psql", "":
		db, err := persistence.NewPostgreSQLDB()
		if err != nil {
			return nil, nil, fmt.Errorf("cannot connect to PostgreSQL: %w", err)
		}
		if err := persistence.EnsureOrphanSchema(db); err != nil {
			return nil, nil, err
		}
		logger.GetLogger().Info("Orphan ledger on PostgreSQL")
		return persistence.NewOrphanAssetRepository(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", vendor)
	}
}

// InitiateAssetEvents picks Pub/Sub when a project is configured, otherwise
// Service Bus when a namespace is. Neither leaves orphan events unpublished.
func InitiateAssetEvents(ctx context.Context) (repository.IAssetEvents, func()) {
	if projectID := configuration.C.Pubsub.ProjectID; projectID != "" {
		client, err := pubsub.NewPubSub(ctx, projectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
		} else {
			publisher := pubsub.NewAssetEventPublisher(client, configuration.C.Pubsub.TopicID)
			return publisher, func() {
				publisher.Close()
				_ = client.Close()
			}
		}
	}
	if namespace := configuration.C.ServiceBus.Namespace; namespace != "" {
		client, err := servicebus.NewServiceBus(ctx, namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available")
		} else {
			return servicebus.NewAssetEventPublisher(client, configuration.C.ServiceBus.Topic), func() {
				_ = client.Close(context.Background())
			}
		}
	}
	logger.GetLogger().Info("No event bus configured; orphan events stay in the ledger")
	return nil, func() {}
}
