// Command server hosts the reference coordinator (internal/coordinator)
// over HTTP and WebSocket (internal/wsconn): gin for routing, godotenv +
// env vars for configuration, graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nhooyr.io/websocket"

	"github.com/quillpad/quillpad/internal/coordinator"
	"github.com/quillpad/quillpad/internal/wsconn"
	"github.com/quillpad/quillpad/pkg/otlog"
	"github.com/quillpad/quillpad/pkg/store"
)

type config struct {
	Port            string
	SQLiteURI       string
	MaxDocumentSize int
	BroadcastBuffer int
	ExpiryCheck     time.Duration
	ExpiryAfter     time.Duration
	PersistInterval time.Duration
	PersistJitter   time.Duration
	LogLevel        string
}

func loadConfig() config {
	if err := godotenv.Load(); err != nil {
		otlog.L().Infow("no .env file found, using process environment")
	}
	return config{
		Port:            getEnv("PORT", "3030"),
		SQLiteURI:       os.Getenv("SQLITE_URI"),
		MaxDocumentSize: getEnvInt("MAX_DOCUMENT_SIZE_KB", 256) * 1024,
		BroadcastBuffer: getEnvInt("BROADCAST_BUFFER_SIZE", 16),
		ExpiryCheck:     time.Duration(getEnvInt("EXPIRY_CHECK_MINUTES", 60)) * time.Minute,
		ExpiryAfter:     time.Duration(getEnvInt("EXPIRY_DAYS", 7)) * 24 * time.Hour,
		PersistInterval: time.Duration(getEnvInt("PERSIST_INTERVAL_SECONDS", 60)) * time.Second,
		PersistJitter:   time.Duration(getEnvInt("PERSIST_JITTER_SECONDS", 10)) * time.Second,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func main() {
	cfg := loadConfig()
	otlog.Init(cfg.LogLevel)
	defer otlog.Sync()

	otlog.L().Infow("starting quillpad server", "port", cfg.Port)

	var loader coordinator.Loader
	if cfg.SQLiteURI != "" {
		db, err := store.Open(cfg.SQLiteURI)
		if err != nil {
			otlog.L().Fatalw("open sqlite store", "uri", cfg.SQLiteURI, "error", err)
		}
		defer db.Close()
		loader = db
		otlog.L().Infow("persistence enabled", "sqlite_uri", cfg.SQLiteURI)
	} else {
		otlog.L().Infow("persistence disabled (in-memory only)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := coordinator.NewRegistry(ctx, loader, coordinator.Config{
		MaxDocumentSize: cfg.MaxDocumentSize,
		BroadcastBuffer: cfg.BroadcastBuffer,
		PersistInterval: cfg.PersistInterval,
		PersistJitter:   cfg.PersistJitter,
	})
	go registry.RunExpiry(ctx, cfg.ExpiryCheck, cfg.ExpiryAfter)

	startedAt := time.Now()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/api/text/:id", func(c *gin.Context) {
		doc := registry.Open(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"text": doc.Text(), "revision": doc.Revision()})
	})

	router.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"start_time":      startedAt.Unix(),
			"documents_open":  registry.Count(),
			"documents_saved": registry.StoredCount(),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/api/socket/:id", func(c *gin.Context) {
		id := c.Param("id")
		if id == "" {
			c.Status(http.StatusBadRequest)
			return
		}
		doc := registry.Open(id)
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			otlog.L().Warnw("websocket accept failed", "id", id, "error", err)
			return
		}
		defer conn.CloseNow()

		if err := wsconn.ServeDocument(c.Request.Context(), doc, conn); err != nil {
			otlog.L().Infow("connection ended", "id", id, "error", err)
		}
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		otlog.L().Infow("shutting down")
		cancel()
		registry.Shutdown()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		otlog.L().Fatalw("server stopped", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
