package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"arxiv-scout/config"
	"arxiv-scout/models"
	"arxiv-scout/pagination"
	"arxiv-scout/providers"
	"arxiv-scout/providers/arxiv"
	"arxiv-scout/services"
	"arxiv-scout/storage"
	"arxiv-scout/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	queriesStoredCounter prometheus.Counter
	resultsStoredCounter prometheus.Counter
	snapshotsCounter     prometheus.Counter
)

func init() {
	queriesStoredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arxiv_queries_stored_total",
			Help: "Total number of arXiv queries stored in the database.",
		},
	)
	resultsStoredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arxiv_results_stored_total",
			Help: "Total number of arXiv results stored in the database.",
		},
	)
	snapshotsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshots_uploaded_total",
			Help: "Total number of query snapshots uploaded to S3.",
		},
	)
	prometheus.MustRegister(queriesStoredCounter, resultsStoredCounter, snapshotsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.ArxivQuery{}, &models.ArxivResult{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Services
	queryStore := store.New(db, logging)
	fetcher := arxiv.NewFetcher(cfg, logging)
	searchService := services.NewSearchService(cfg, queryStore, fetcher, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Setup Routes
	setupArxivRoutes(router, searchService, logging)
	setupQueryRoutes(router, searchService, logging)
	setupResultRoutes(router, searchService, logging)

	// Setup Cron für den nächtlichen Snapshot
	if cfg.SnapshotEnabled {
		s3Client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		snapshotService := services.NewSnapshotService(cfg, queryStore, s3Client, logging)

		cronScheduler := cron.New()
		cronScheduler.AddFunc(cfg.CronSchedule, func() {
			logging.Info("Running scheduled snapshot job...")
			count, err := snapshotService.Run(context.Background())
			if err != nil {
				logging.Error("Snapshot job failed", zap.Error(err))
			} else {
				logging.Info("Snapshot job completed", zap.Int("queries", count))
				snapshotsCounter.Inc()
			}
		})
		cronScheduler.Start()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// errorResponse übersetzt die Fehler-Taxonomie in HTTP-Status und
// Meldung. Einzige Stelle, an der Fehlerarten auf Statuscodes treffen.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrMissingCriteria):
		return http.StatusBadRequest, "At least one of author, title or journal must be provided"
	case errors.Is(err, pagination.ErrInvalidPage):
		return http.StatusBadRequest, "page must be in range 0-9"
	case errors.Is(err, providers.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "Error connecting to arXiv API"
	case errors.Is(err, store.ErrStorage):
		return http.StatusInternalServerError, "Database error occurred"
	default:
		return http.StatusInternalServerError, "An unexpected error occurred"
	}
}

func setupArxivRoutes(router *gin.Engine, svc *services.SearchService, log *zap.Logger) {
	router.POST("/arxiv", func(c *gin.Context) {
		var params services.SearchParams
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		outcome, err := svc.Submit(c.Request.Context(), params)
		if err != nil {
			status, msg := errorResponse(err)
			log.Error("Submit failed", zap.Int("status", status), zap.Error(err))
			c.JSON(status, gin.H{"error": msg})
			return
		}

		queriesStoredCounter.Inc()
		resultsStoredCounter.Add(float64(outcome.NumResults))

		c.JSON(http.StatusOK, gin.H{
			"message":     "Query results stored successfully",
			"query_id":    outcome.QueryID,
			"num_results": outcome.NumResults,
		})
	})
}

func setupQueryRoutes(router *gin.Engine, svc *services.SearchService, log *zap.Logger) {
	router.GET("/queries", func(c *gin.Context) {
		startStr := c.Query("query_start_time")
		if startStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query_start_time is required"})
			return
		}
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query_start_time must be RFC3339"})
			return
		}

		var end *time.Time
		if endStr := c.Query("query_end_time"); endStr != "" {
			t, err := time.Parse(time.RFC3339, endStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "query_end_time must be RFC3339"})
				return
			}
			end = &t
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be an integer"})
			return
		}

		result, err := svc.ListQueries(c.Request.Context(), start, end, page)
		if err != nil {
			status, msg := errorResponse(err)
			log.Error("Query listing failed", zap.Int("status", status), zap.Error(err))
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func setupResultRoutes(router *gin.Engine, svc *services.SearchService, log *zap.Logger) {
	router.GET("/results", func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be an integer"})
			return
		}

		result, err := svc.ListResults(c.Request.Context(), page)
		if err != nil {
			status, msg := errorResponse(err)
			log.Error("Result listing failed", zap.Int("status", status), zap.Error(err))
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, result)
	})
}
