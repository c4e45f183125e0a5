package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/minjae-ko/ticket-rush/internal/config"
	"github.com/minjae-ko/ticket-rush/internal/database"
	"github.com/minjae-ko/ticket-rush/internal/event"
	"github.com/minjae-ko/ticket-rush/internal/gate"
	"github.com/minjae-ko/ticket-rush/internal/handler"
	"github.com/minjae-ko/ticket-rush/internal/repository"
	"github.com/minjae-ko/ticket-rush/internal/router"
	"github.com/minjae-ko/ticket-rush/internal/scheduler"
	"github.com/minjae-ko/ticket-rush/internal/ticketing"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.LockTimeout)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	// event sink: broker when configured, process log otherwise
	var sink event.Sink = event.LogSink{}
	if cfg.RabbitURL != "" {
		sink = event.NewAMQPSink(cfg.RabbitURL)
		go event.StartConfirmedConsumer(cfg.RabbitURL)
	}

	queueRepo := repository.NewQueueRepo(db)
	userRepo := repository.NewUserRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	holdRepo := repository.NewSeatHoldRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	locker := repository.NewNamedLockRepo(db)

	g, err := gate.New(cfg.QueueStrategy, queueRepo, userRepo, locker, gate.Config{
		Capacity:     cfg.QueueCapacity,
		LockTimeout:  cfg.LockTimeout,
		MaxRetries:   cfg.EnterMaxRetries,
		RetryBackoff: cfg.EnterRetryBackoff,
	})
	if err != nil {
		log.Fatalf("gate: %v", err)
	}

	clock := ticketing.NewRoundClock(cfg.RoundEpoch, cfg.RoundWindow)
	allocator := ticketing.NewAllocator(holdRepo, seatRepo, reservationRepo, sink, clock, cfg.HoldTTL)
	reservations := ticketing.NewReservations(reservationRepo, holdRepo, allocator, g, sink, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(g.Promote, allocator.Sweep, allocator.ResetRound, clock, cfg.PromoteInterval, cfg.SweepInterval)
	go sched.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewQueueHandler(g),
		handler.NewTicketingHandler(reservations),
		handler.NewSeatsHandler(allocator),
		cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, strategy=%s, capacity=%d)", addr, cfg.Env, cfg.QueueStrategy, cfg.QueueCapacity)

	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
