package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dronreef2/3dPot2-sub000/api/rest/routes"
	"github.com/dronreef2/3dPot2-sub000/config"
	"github.com/dronreef2/3dPot2-sub000/core/cache"
	"github.com/dronreef2/3dPot2-sub000/core/client"
	"github.com/dronreef2/3dPot2-sub000/core/monitor"
	"github.com/dronreef2/3dPot2-sub000/core/playback"
	"github.com/dronreef2/3dPot2-sub000/core/repository"
	"github.com/dronreef2/3dPot2-sub000/core/store"
	"github.com/dronreef2/3dPot2-sub000/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Optional history persistence
	var repo store.SummaryRepo
	if cfg.DatabaseURL != "" {
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return err
		}
		repo = repository.NewSummaryRepository(db)
		logrus.Info("history persistence enabled")
	} else {
		logrus.Info("no DATABASE_URL configured, history persistence disabled")
	}

	engineClient := client.New(cfg.EngineURL, cfg.EngineToken)
	resultCache := cache.New(cfg.CacheMaxEntries)

	// The monitor needs the store's auth hook and the store needs the
	// monitor; the closure breaks the cycle.
	var st *store.Store
	mon := monitor.New(engineClient, monitor.Config{
		PollInterval:    cfg.PollInterval,
		ReconnectBase:   cfg.ReconnectBase,
		ReconnectMax:    cfg.ReconnectMax,
		MaxPollFailures: cfg.MaxPollFailures,
		OnAuthError: func(err error) {
			if st != nil {
				st.MarkAuthExpired(err)
			}
		},
	})
	st = store.New(engineClient, resultCache, mon, repo, store.WithCacheTTL(cfg.CacheTTL))

	// Playback
	modelStore, err := storage.NewModelStore(cfg.ModelCacheDir)
	if err != nil {
		return err
	}
	renderer := playback.NewRenderer(cfg.TotalFrames)
	loader := playback.NewModelLoader(modelStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler := playback.NewScheduler(st, renderer, playback.DefaultTickInterval)
	go scheduler.Run(ctx)

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, st, renderer, loader)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		logrus.Infof("gateway listening on port %s (engine %s)", cfg.ServerPort, cfg.EngineURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
