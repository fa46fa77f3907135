package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shinyyama/boilagbe-backend/internal/config"
	"github.com/shinyyama/boilagbe-backend/internal/handler"
	appmw "github.com/shinyyama/boilagbe-backend/internal/middleware"
	"github.com/shinyyama/boilagbe-backend/internal/relay"
	"github.com/shinyyama/boilagbe-backend/internal/service"
	"go.uber.org/zap"
)

type Server struct {
	e      *echo.Echo
	logger *zap.Logger
}

// New builds the HTTP surface. authMw may be nil, in which case every route is open
// and callers identify themselves through request parameters.
func New(cfg *config.Config, msgSvc service.MessageService, bookSvc service.BookService, hub *relay.Hub, authMw *appmw.AuthMiddleware, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	allowOrigin := appmw.OriginAllowed(cfg.CORSAllowedSuffixes)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(appmw.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			return allowOrigin(origin), nil
		},
	}))

	msgHandler := handler.NewMessageHandler(msgSvc)
	bookHandler := handler.NewBookHandler(bookSvc)
	socketHandler := handler.NewSocketHandler(hub, msgSvc, allowOrigin, logger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"ok":          "true",
			"git_sha":     cfg.GitSHA,
			"build_time":  cfg.BuildTime,
			"connections": hub.Count(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var guard []echo.MiddlewareFunc
	if authMw != nil {
		guard = append(guard, authMw.RequireAuth)
	}

	e.GET("/messages", msgHandler.List, guard...)
	e.GET("/messages/unread-count", msgHandler.UnreadCount, guard...)
	e.GET("/messages/conversations", msgHandler.Conversations, guard...)
	e.POST("/messages", msgHandler.Create, guard...)
	e.POST("/messages/mark-read", msgHandler.MarkRead, guard...)
	e.DELETE("/messages/:id", msgHandler.Delete, guard...)
	e.GET("/ws", socketHandler.Serve, guard...)

	e.GET("/books", bookHandler.List)
	e.GET("/books/latest", bookHandler.Latest)
	e.GET("/books/quote", bookHandler.Quote)
	e.GET("/books/:id", bookHandler.Get)
	if authMw != nil && authMw.Client() != nil {
		userHandler := handler.NewUserHandler(authMw.Client())
		e.GET("/users/:uid/public", userHandler.GetPublic, guard...)
	}

	e.POST("/books", bookHandler.Create, guard...)
	e.PUT("/books/:id", bookHandler.Update, guard...)

	return &Server{e: e, logger: logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves until Shutdown is called. It returns nil on a graceful stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting server", zap.String("addr", addr))
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
