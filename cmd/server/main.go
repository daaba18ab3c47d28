package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/config"
	"github.com/mamadbah2/eurocam-webhook/internal/repository/mongodb"
	"github.com/mamadbah2/eurocam-webhook/internal/repository/sheets"
	"github.com/mamadbah2/eurocam-webhook/internal/scheduler"
	"github.com/mamadbah2/eurocam-webhook/internal/server/handlers"
	"github.com/mamadbah2/eurocam-webhook/internal/server/router"
	journalsvc "github.com/mamadbah2/eurocam-webhook/internal/service/journal"
	relaysvc "github.com/mamadbah2/eurocam-webhook/internal/service/relay"
	reportingsvc "github.com/mamadbah2/eurocam-webhook/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/eurocam-webhook/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/eurocam-webhook/pkg/clients/whatsapp"
	"github.com/mamadbah2/eurocam-webhook/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	if !cfg.WhatsApp.CanSend() {
		baseLogger.Warn("WHATSAPP_TOKEN or WABA_PHONE_NUMBER_ID missing, outbound sends will fail")
	}

	loc := cfg.Reporting.Location()
	tracker := reportingsvc.NewTracker()
	opts := []whatsappsvc.Option{whatsappsvc.WithActivityRecorder(tracker)}

	var reportStore reportingsvc.ReportStore
	if cfg.MongoDB.Enabled() {
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()

		reportStore = mongoRepo
		opts = append(opts, whatsappsvc.WithStatusArchive(mongoRepo))
		baseLogger.Info("mongodb archive enabled", zap.String("db", cfg.MongoDB.DBName))
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}

		journal := journalsvc.NewContactJournal(sheetsRepo, cfg.Sheets.ContactsRange, loc, baseLogger.Named("svc.journal"))
		headerCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := journal.EnsureHeader(headerCtx); err != nil {
			baseLogger.Warn("failed to prepare contacts sheet", zap.Error(err))
		}
		cancel()

		opts = append(opts, whatsappsvc.WithContactJournal(journal))
		baseLogger.Info("contact journal enabled", zap.String("range", cfg.Sheets.ContactsRange))
	}

	whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
	sender := whatsappsvc.NewGraphSender(whatsClient, baseLogger.Named("graph"))
	messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, sender, baseLogger.Named("svc.whatsapp"), opts...)
	relay := relaysvc.NewService(whatsClient, baseLogger.Named("svc.relay"))

	webhookHandler := handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.webhook"))
	proxyHandler := handlers.NewProxyHandler(relay, baseLogger.Named("handlers.proxy"))
	engine := router.New(webhookHandler, proxyHandler, baseLogger.Named("router"))

	reportingSvc := reportingsvc.NewService(tracker, reportStore, loc, baseLogger.Named("svc.reporting"))
	sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, messagingSvc, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WhatsApp.ServerWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
