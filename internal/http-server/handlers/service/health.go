package service

import (
	"FirstContact/entity"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
)

type Core interface {
	Health() entity.Health
}

// Health reports liveness and knowledge base readiness.
func Health(_ *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, handler.Health())
	}
}
