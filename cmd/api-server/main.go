package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mediavault/internal/api"
	"mediavault/internal/catalog"
	"mediavault/internal/export"
	"mediavault/internal/progress"
	"mediavault/internal/scope"
	"mediavault/internal/store"
	"mediavault/pkg/database"
	"mediavault/pkg/utils"
)

func main() {
	cfg := utils.LoadConfig()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	st := store.New(db)

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start the event feed first so binding errors show up early
	hub := progress.NewHub()
	router.GET("/ws", progress.WSHandler(hub))
	tcpSrv := progress.NewServer(cfg.TCPAddr, hub)

	ctx := context.Background()
	client := catalog.NewHTTPClient(cfg.APIBase, cfg.PageSize, os.Getenv("MEDIAVAULT_API_TOKEN"), cfg.FetchTimeout)
	categories := map[string]*catalog.Category{
		"videos": catalog.NewCategory(ctx, "videos", client, st),
		"images": catalog.NewCategory(ctx, "images", client, st),
	}

	guard := &scope.Guard{
		Marker: st,
		OnReset: func(ctx context.Context) error {
			for _, cat := range categories {
				if err := cat.Reset(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	parser := scope.TokenParser{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer}
	router.Use(scope.Middleware(parser, guard))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	fetcher := export.NewHTTPFetcher(cfg.APIBase, nil)
	sink := export.NewFileSink(cfg.OutputDir)
	manager := export.NewManager()

	handler := api.NewHandler(categories, st, manager, fetcher, sink, hub, cfg)
	handler.RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
