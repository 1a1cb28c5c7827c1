// cmd/workflow-server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"scholarship-workflow/internal/api"
	"scholarship-workflow/internal/common/aws"
	"scholarship-workflow/internal/common/config"
	"scholarship-workflow/internal/common/database"
	"scholarship-workflow/internal/common/logger"
	"scholarship-workflow/internal/common/observability"
	"scholarship-workflow/internal/importer"
	"scholarship-workflow/internal/notify"
	"scholarship-workflow/internal/repository"
	"scholarship-workflow/internal/search"
	"scholarship-workflow/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting workflow server", map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		log.WithError(err).Error("postgres connection failed", nil)
		os.Exit(1)
	}
	defer pg.Close()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.WithError(err).Error("redis connection failed", nil)
		os.Exit(1)
	}
	defer rdb.Close()

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		log.WithError(err).Error("elasticsearch connection failed", nil)
		os.Exit(1)
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	db := pg.GetDB()
	engine := workflow.NewEngine(db, log)
	ssc := workflow.NewSSCAggregator(db, rdb.GetClient(), engine, log)
	interviews := workflow.NewInterviewService(db, engine, log)
	enrollments := workflow.NewEnrollmentService(db, log)
	repo := repository.NewApplicationRepository(db)
	students := repository.NewStudentRepository(db)

	parser := importer.NewParser()
	matcher := importer.NewMatcher(db, cfg.Import.SimilarityThreshold, log)
	importSvc := importer.NewService(db, parser, matcher, log)

	indexer := search.NewIndexer(es.Client, cfg.Search.ApplicationIndex, log)

	var notifier *notify.Notifier
	if cfg.Notifications.Enabled {
		ctx := context.Background()
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			log.WithError(err).Error("ses client init failed", nil)
			os.Exit(1)
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			log.WithError(err).Error("sns client init failed", nil)
			os.Exit(1)
		}
		notifier = notify.NewNotifier(sesClient, snsClient, cfg.Integrations,
			cfg.Notifications.NotifyStatuses, log)
	}

	handler := api.NewHandler(repo, students, engine, ssc, interviews, enrollments,
		importSvc, indexer, notifier, log)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestMetrics(obs))
	api.SetupRoutes(router, handler)

	srv := &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.HTTP.Address})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server failed", nil)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed", nil)
	}
	log.Info("server stopped", nil)
}
