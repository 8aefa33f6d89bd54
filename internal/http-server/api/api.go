package api

import (
	"FirstContact/internal/config"
	"FirstContact/internal/http-server/handlers/dialog"
	"FirstContact/internal/http-server/handlers/errors"
	"FirstContact/internal/http-server/handlers/key"
	"FirstContact/internal/http-server/handlers/live"
	"FirstContact/internal/http-server/handlers/message"
	"FirstContact/internal/http-server/handlers/service"
	"FirstContact/internal/http-server/middleware/authenticate"
	"FirstContact/internal/http-server/middleware/timeout"
	"FirstContact/internal/lib/sl"
	"FirstContact/internal/ws"
	"context"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	requestTimeout  = 30
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	service.Core
	message.Core
	dialog.Core
	key.Core
}

func NewRouter(log *slog.Logger, handler Handler, hub *ws.Hub) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/health", service.Health(log, handler))

		v1.Group(func(r chi.Router) {
			r.Use(authenticate.New(log, handler))

			if hub != nil {
				r.Get("/ws", live.Feed(log, hub))
			}

			r.Group(func(r chi.Router) {
				r.Use(timeout.Timeout(requestTimeout))

				r.Post("/message", message.Send(log, handler))
				r.Route("/dialog/{user_id}", func(r chi.Router) {
					r.Get("/", dialog.GetState(log, handler))
					r.Delete("/", dialog.Reset(log, handler))
					r.Get("/messages", dialog.Messages(log, handler))
				})
				r.Route("/key", func(r chi.Router) {
					r.Post("/new", key.Generate(log, handler))
				})
			})
		})
	})

	return router
}

// Serve runs the api server until ctx is cancelled.
func Serve(ctx context.Context, conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {
	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:           NewRouter(log, handler, hub),
		ErrorLog:          httpLog,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.httpServer.Shutdown(shutdownCtx)
	}()

	err = server.httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
