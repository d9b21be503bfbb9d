package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"folio/internal/clients/backend"
	"folio/internal/config"
	"folio/internal/currency"
	"folio/internal/database"
	"folio/internal/handlers"
	"folio/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	logger := cfg.NewLogger()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rates := currency.DefaultRates()
	display, err := rates.Parse(cfg.DisplayCurrency)
	if err != nil {
		logger.Fatalf("DISPLAY_CURRENCY: %v", err)
	}
	selector, err := currency.NewSelector(rates, display)
	if err != nil {
		logger.Fatal(err)
	}
	selector.Subscribe(func(old, next currency.Code) {
		logger.Infof("display currency changed %s -> %s", old, next)
	})

	client := backend.New(cfg.BackendURL, cfg.APIToken, cfg.Sync.Timeout, logger)
	store, history, closeStore, err := openStore(ctx, cfg, client, logger)
	if err != nil {
		logger.Fatalf("store connect failed: %v", err)
	}
	defer closeStore()

	session := service.NewSession(logger)
	if cfg.APIToken == "" {
		logger.Warn("API_TOKEN is not set; quote lookups will fail until PUT /session/token")
	}
	portfolio := service.NewPortfolio(store, service.NewSynchronizer(client, cfg.Sync, logger), session, logger)
	coord := service.NewCoordinator(store, portfolio, session, rates, logger)
	selection := service.NewSelection()
	portfolio.Subscribe(func(s service.Snapshot) { selection.Retain(s.Symbols()) })
	deletes := service.NewDeleteFlow(coord, selection, logger)
	deletes.Watch(func(r service.DeleteRequest) {
		logger.WithField("request", r.ID).Debugf("delete request %s %v", r.State, r.Symbols)
	})

	if res, err := portfolio.Resync(ctx); err != nil {
		logger.Warnf("initial load failed: %v", err)
	} else {
		logger.Infof("loaded %d holdings (%d priced)", len(res.Snapshot.Holdings), len(res.Updated))
	}

	if err := service.NewScheduler(portfolio, logger).Start(ctx, cfg.RefreshSchedule); err != nil {
		logger.Fatalf("REFRESH_SCHEDULE: %v", err)
	}

	h := handlers.NewHandler(handlers.Deps{
		Portfolio:   portfolio,
		Coordinator: coord,
		DeleteFlow:  deletes,
		Selection:   selection,
		Search:      service.NewSearchService(client, session, currency.NewConverter(rates), logger),
		Session:     session,
		Selector:    selector,
		Converter:   currency.NewConverter(rates),
		Tokens:      client,
		History:     history,
	}, logger)

	rg := gin.Default()
	h.Register(rg)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: rg}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("server starting on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server failed: %v", err)
	}
	logger.Info("server stopped")
}

// openStore builds the holdings store named by STORE_BACKEND.
func openStore(ctx context.Context, cfg config.Config, client *backend.Client, log *logrus.Logger) (service.HoldingStore, handlers.PriceHistorian, func(), error) {
	backendName, dsn := cfg.StoreDSN()
	switch backendName {
	case database.BackendHTTP:
		log.Infof("using remote holdings store at %s", cfg.BackendURL)
		return client, nil, func() {}, nil
	case database.BackendPostgres, database.BackendSQLite:
		db, err := database.Connect(ctx, backendName, dsn, log)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := database.New(db, log)
		return repo, repo, func() { db.Close() }, nil
	default:
		log.Info("using in-memory holdings store")
		m := database.NewMemoryStore()
		return m, m, func() {}, nil
	}
}
