package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/auth"
	"github.com/iliyamo/restaurant-order-platform/internal/config"
	"github.com/iliyamo/restaurant-order-platform/internal/database"
	"github.com/iliyamo/restaurant-order-platform/internal/handler"
	"github.com/iliyamo/restaurant-order-platform/internal/repository"
	"github.com/iliyamo/restaurant-order-platform/internal/router"
	"github.com/iliyamo/restaurant-order-platform/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	limits := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	// The shared fast store holds all transient security state (revocation
	// ledger, pending codes, rate counters); without it every security
	// check would have to fail closed, so refuse to start.
	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	users := repository.NewUserRepo(db)
	restaurants := repository.NewRestaurantRepo(db)
	tables := repository.NewTableRepo(db)

	codec := auth.NewCodec(cfg.JWTSecret, cfg.SessionTTL)
	ledger := auth.NewRevocationLedger(rdb, cfg.SessionTTL)
	mailer := service.NewMailPublisher(cfg.MailLinkBase)
	codes := auth.NewCodeBroker(rdb, cfg.VerifyCodeTTL, cfg.ResetCodeTTL, mailer)
	governor := auth.NewGovernor(rdb, limits.Prefix)

	e := echo.New()
	router.Register(e, router.Deps{
		Cfg:         cfg,
		Limits:      limits,
		Governor:    governor,
		Codec:       codec,
		Ledger:      ledger,
		Users:       users,
		Auth:        handler.NewAuthHandler(cfg, users, codec, ledger, codes),
		Restaurants: handler.NewRestaurantHandler(cfg, restaurants, users),
		Staff:       handler.NewStaffHandler(cfg, users),
		Tables:      handler.NewTableHandler(cfg, tables),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Drain in-flight requests, then release the shared clients.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	_ = rdb.Close()
	_ = db.Close()
}
