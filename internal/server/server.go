// Package server wires the dependency graph and the route table.
//
// This is the composition root: New builds database → repositories →
// services → handlers in one place, and setupRoutes decides which gate
// (guest / authenticated / none) each route sits behind. main.go stays
// minimal and tests can stand up a fully wired server without running it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/storyhub/internal/auth"
	"github.com/sakif/storyhub/internal/config"
	"github.com/sakif/storyhub/internal/handler"
	"github.com/sakif/storyhub/internal/metrics"
	"github.com/sakif/storyhub/internal/middleware"
	"github.com/sakif/storyhub/internal/payment"
	sqliteRepo "github.com/sakif/storyhub/internal/repository/sqlite"
	"github.com/sakif/storyhub/internal/security"
	"github.com/sakif/storyhub/internal/service"
)

// Server owns the router and the resources that need an orderly shutdown:
// the database connection and the rate limiter's background goroutine.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.LoginRateLimiter
}

// New assembles the full dependency graph.
//
// The payment processor is constructed here from config; pass a different
// payment.Processor via NewWithProcessor in tests to avoid real charges.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	return NewWithProcessor(cfg, logger,
		payment.NewStripeProcessor(cfg.StripeSecretKey, cfg.PaymentCurrency))
}

// NewWithProcessor is New with the payment processor injected.
func NewWithProcessor(cfg config.Config, logger *slog.Logger, processor payment.Processor) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewLoginRateLimiter(cfg.LoginRatePerMinute, logger),
	}

	if err := s.setupRoutes(processor); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// providers builds the identity provider registry from config. A provider
// without credentials simply isn't registered; its routes 404.
func (s *Server) providers() map[string]auth.Provider {
	reg := make(map[string]auth.Provider)

	if s.config.Google.Enabled() {
		reg["google"] = auth.NewGoogleProvider(
			s.config.Google.ClientID, s.config.Google.ClientSecret, s.config.CallbackURL("google"))
	}
	if s.config.Facebook.Enabled() {
		reg["facebook"] = auth.NewFacebookProvider(
			s.config.Facebook.ClientID, s.config.Facebook.ClientSecret, s.config.CallbackURL("facebook"))
	}
	if s.config.Instagram.Enabled() {
		reg["instagram"] = auth.NewInstagramProvider(
			s.config.Instagram.ClientID, s.config.Instagram.ClientSecret, s.config.CallbackURL("instagram"))
	}

	if len(reg) == 0 {
		s.logger.Warn("no identity providers configured — login is unavailable")
	}

	return reg
}

func (s *Server) setupRoutes(processor payment.Processor) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Metrics get their own registry rather than the package default, so two
	// servers in one test binary don't collide on registration.
	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(promReg)

	sanitizer := security.NewSanitizer()

	identityService := service.NewIdentityService(s.db, s.db, collector, s.logger)
	userService := service.NewUserService(s.db, sanitizer, s.logger)
	postService := service.NewPostService(s.db, s.db, s.db, sanitizer, collector, s.logger)
	commentService := service.NewCommentService(s.db, s.db, sanitizer, collector, s.logger)
	paymentService := service.NewPaymentService(processor, s.db, s.config.PostPriceCents, collector, s.logger)

	authHandler := handler.NewAuthHandler(s.providers(), identityService, s.config.SessionTTL, collector, s.logger)
	userHandler := handler.NewUserHandler(userService, postService, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, userService, s.config.StripePublishableKey, s.logger)
	homeHandler := handler.NewHomeHandler()

	// Unauthenticated surface.
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler(promReg))

	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(s.db))
		r.Get("/", homeHandler.HandleHome)
	})

	// Login entry points: guests only, throttled per client address.
	s.router.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware())
		r.With(auth.RequireGuest(s.db)).Get("/auth/{provider}", authHandler.HandleLogin)
		r.Get("/auth/{provider}/callback", authHandler.HandleCallback)
	})

	// The edit form carries no gate; the mutating PUT below does.
	s.router.Get("/editPost/{id}", postHandler.HandleEditForm)

	// Everything else requires a live session.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.db))

		r.Get("/logout", authHandler.HandleLogout)
		r.Get("/profile", userHandler.HandleProfile)
		r.Get("/users", userHandler.HandleList)
		r.Get("/user/{id}", userHandler.HandleGet)
		r.Post("/addEmail", userHandler.HandleAddEmail)
		r.Post("/addPhone", userHandler.HandleAddPhone)
		r.Post("/addLocation", userHandler.HandleAddLocation)

		// The payment-gated authoring workflow, in its fixed order.
		r.Get("/addPost", paymentHandler.HandlePaymentForm)
		r.Post("/acceptPayment", paymentHandler.HandleAcceptPayment)
		r.Get("/displayPostForm", paymentHandler.HandlePostForm)
		r.Post("/savePost", postHandler.HandleSave)

		r.Get("/posts", postHandler.HandleListPublic)
		r.Get("/post/{id}", postHandler.HandleGet)
		r.Get("/showposts/{id}", postHandler.HandleListByUser)
		r.Put("/editingPost/{id}", postHandler.HandleUpdate)
		r.Delete("/{id}", postHandler.HandleDelete)

		r.Post("/addComment/{id}", commentHandler.HandleAdd)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, stop the
// rate limiter, close the database (flushes the WAL, releases the lock).
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.limiter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
