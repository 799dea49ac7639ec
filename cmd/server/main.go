package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/yaca-chat/yaca/internal/cache"
	"github.com/yaca-chat/yaca/internal/config"
	"github.com/yaca-chat/yaca/internal/database"
	"github.com/yaca-chat/yaca/internal/logging"
	"github.com/yaca-chat/yaca/internal/presence"
	"github.com/yaca-chat/yaca/internal/repository"
	"github.com/yaca-chat/yaca/internal/repository/cached"
	"github.com/yaca-chat/yaca/internal/repository/memory"
	postgresrepo "github.com/yaca-chat/yaca/internal/repository/postgres"
	"github.com/yaca-chat/yaca/internal/service"
	"github.com/yaca-chat/yaca/internal/transport/http/handlers"
	"github.com/yaca-chat/yaca/internal/transport/http/middleware"
	"github.com/yaca-chat/yaca/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	users         repository.UserRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Repositories
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// Services
	authService := service.NewAuthService(st.users, cfg.JWTSecret, cfg.JWTTTL)
	userService := service.NewUserService(st.users)
	convService := service.NewConversationService(st.conversations, st.users)
	messageService := service.NewMessageService(st.messages, st.conversations, st.users)
	presenceService := service.NewPresenceService(st.users)

	// Real-time delivery
	registry := ws.NewRegistry()
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := ws.NewMetrics(promRegistry, registry)
	notifier := ws.NewRouterNotifier(ws.NewRouter(registry, st.conversations, metrics))

	messageService.SetNotifier(notifier)
	convService.SetNotifier(notifier)
	presenceService.SetNotifier(notifier)
	presenceService.SetOnlineChecker(registry)

	reconciler, err := presence.NewReconciler(st.users, registry, cfg.PresenceSweepCron)
	if err != nil {
		return err
	}
	if _, err := reconciler.ResetOnStartup(ctx); err != nil {
		return err
	}

	wsHandler := ws.NewHandler(cfg.WS, ws.Deps{
		Verifier:      authService,
		Registry:      registry,
		Messages:      messageService,
		Conversations: convService,
		Presence:      presenceService,
		Metrics:       metrics,
	})

	// Routes
	r := mux.NewRouter()
	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Handle("/ws/{token}", wsHandler)
	r.Handle("/ws", wsHandler)
	handlers.Routes(r, handlers.Services{
		Auth:          authService,
		Users:         userService,
		Presence:      presenceService,
		Conversations: convService,
		Messages:      messageService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           middleware.Logger(middleware.CORS(cfg.WS.AllowedOrigins)(r)),
		ReadHeaderTimeout: 10 * time.Second,
		// Sessions inherit the root context so shutdown ends their reads.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return reconciler.Run(gctx)
	})

	err = g.Wait()

	// sessions finish their offline writes before the stores close
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if werr := wsHandler.Wait(drainCtx); werr != nil {
		log.Warn().Err(werr).Msg("websocket sessions still open at shutdown")
	}
	return err
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		convs := memory.NewConversationStore()
		return &stores{
			users:         memory.NewUserStore(),
			conversations: convs,
			messages:      memory.NewMessageStore(convs),
			close:         func() {},
		}, nil
	}

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("connected to database")

	st := &stores{
		users:         postgresrepo.NewUserRepo(pool),
		conversations: postgresrepo.NewConversationRepo(pool),
		messages:      postgresrepo.NewMessageRepo(pool),
		close:         pool.Close,
	}

	if cfg.RedisURL == "" {
		return st, nil
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("profile cache enabled")
	st.users = cached.NewUserRepo(st.users, rdb, cfg.ProfileCacheTTL)
	st.close = func() {
		rdb.Close()
		pool.Close()
	}
	return st, nil
}
