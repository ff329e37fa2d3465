// Command server runs the contest registration bot: the messaging webhook,
// the admin API and the background janitor.
//
// @title       Contest Registration Bot API
// @version     1.0
// @description Messaging webhook and admin API for contest code registration.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-contest-bot/internal/config"
	"github.com/tbourn/go-contest-bot/internal/conversation"
	"github.com/tbourn/go-contest-bot/internal/extractor"
	httpapi "github.com/tbourn/go-contest-bot/internal/http"
	"github.com/tbourn/go-contest-bot/internal/notify"
	"github.com/tbourn/go-contest-bot/internal/observability"
	"github.com/tbourn/go-contest-bot/internal/repo"
	"github.com/tbourn/go-contest-bot/internal/session"
	"github.com/tbourn/go-contest-bot/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version))
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("db open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	if err := observability.InstrumentDB(db, cfg.OTEL.Enabled); err != nil {
		logger.Fatal().Err(err).Msg("db tracing failed")
	}

	store, closeStore, err := openSessionStore(ctx, cfg, db)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Session.Backend).Msg("session store failed")
	}
	sessions := session.NewSessions(store, cfg.Session.TTL, cfg.Session.KeyPrefix)

	x, err := buildExtractor(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("extractor setup failed")
	}
	notifier := buildNotifier(cfg, logger)
	mailer := buildMailer(cfg, logger)

	engine := conversation.New(sessions, conversation.NewGormLedger(db), x, notifier,
		conversation.WithContest(cfg.Contest.Name, cfg.Contest.TermsURL),
		conversation.WithCallTimeout(cfg.CallTimeout),
	)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.App{
		DB:       db,
		Engine:   engine,
		Sessions: sessions,
		Mailer:   mailer,
		Notifier: notifier,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	go runJanitor(janitorCtx, db, store, time.Minute)

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("session_backend", cfg.Session.Backend).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	stopJanitor()
	if err := closeStore(); err != nil {
		logger.Warn().Err(err).Msg("session store close")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("otel shutdown")
	}
}

// openSessionStore selects the session backend. The returned close function
// is never nil.
func openSessionStore(ctx context.Context, cfg config.Config, db *gorm.DB) (session.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Session.Backend {
	case config.SessionRedis:
		pingCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		defer cancel()
		rs, err := session.OpenRedis(pingCtx, cfg.Session.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return rs, rs.Close, nil
	case config.SessionSQL:
		return session.NewSQLStore(db, cfg.Session.TTL), noop, nil
	default:
		return session.NewMemoryStore(), noop, nil
	}
}

// buildExtractor returns the LLM extractor wrapped with the rule-based
// fallback, or the rules alone. LLM mode without an API key degrades to
// rules.
func buildExtractor(cfg config.Config, logger zerolog.Logger) (extractor.Extractor, error) {
	var gaz *extractor.Gazetteer
	if cfg.Extractor.CitiesPath != "" {
		g, err := extractor.LoadGazetteer(cfg.Extractor.CitiesPath)
		if err != nil {
			return nil, err
		}
		logger.Info().Int("cities", g.Len()).Msg("city gazetteer loaded")
		gaz = g
	}
	rules := extractor.NewRules(gaz)

	if cfg.Extractor.Mode == config.ExtractorRules {
		return rules, nil
	}
	if cfg.Extractor.APIKey == "" {
		logger.Warn().Msg("LLM_API_KEY not set; using rule-based extractor")
		return rules, nil
	}
	llm := extractor.NewLLM(cfg.Extractor.APIKey, cfg.Extractor.BaseURL, cfg.Extractor.Model, cfg.Contest.Name)
	res := &extractor.Resilient{Primary: llm}
	if cfg.Extractor.Fallback {
		res.Fallback = rules
	}
	return res, nil
}

func buildNotifier(cfg config.Config, logger zerolog.Logger) notify.Notifier {
	if cfg.WhatsApp.AccessToken == "" {
		logger.Warn().Msg("WHATSAPP_ACCESS_TOKEN not set; replies are logged only")
		return notify.LogNotifier{}
	}
	return notify.NewWhatsApp(cfg.WhatsApp.APIURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.AccessToken, cfg.CallTimeout)
}

func buildMailer(cfg config.Config, logger zerolog.Logger) notify.Mailer {
	if cfg.Email.ResendAPIKey == "" {
		logger.Info().Msg("RESEND_API_KEY not set; winner emails are logged only")
		return notify.LogMailer{}
	}
	return notify.NewResendMailer(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.FromName, cfg.Contest.Name)
}

// purger is implemented by session stores that need explicit expiry sweeps.
type purger interface {
	Purge(ctx context.Context) (int64, error)
}

// runJanitor deletes expired idempotency records and, for the SQL backend,
// expired sessions.
func runJanitor(ctx context.Context, db *gorm.DB, store session.Store, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC()); err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
			} else if n > 0 {
				log.Debug().Int64("rows", n).Msg("idempotency purged")
			}
			if p, ok := store.(purger); ok {
				if n, err := p.Purge(ctx); err != nil {
					log.Warn().Err(err).Msg("session purge failed")
				} else if n > 0 {
					log.Debug().Int64("rows", n).Msg("sessions purged")
				}
			}
		}
	}
}
