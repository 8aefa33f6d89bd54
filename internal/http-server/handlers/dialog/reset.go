package dialog

import (
	"FirstContact/internal/lib/api/response"
	"FirstContact/internal/lib/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
)

func Reset(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")

		err := handler.ResetDialog(r.Context(), userID)
		if err != nil {
			log.Error("reset dialog", slog.String("user_id", userID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Reset failed"))
			return
		}

		render.JSON(w, r, response.Ok("Dialog reset successfully"))
	}
}
