package dialog

import (
	"FirstContact/internal/lib/api/response"
	"FirstContact/internal/lib/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
)

func GetState(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		logger := log.With(sl.Module("http.handlers.dialog"), slog.String("user_id", userID))

		state, err := handler.GetDialogState(r.Context(), userID)
		if err != nil {
			logger.Error("get dialog state", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get dialog state"))
			return
		}
		if state == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Dialog not found"))
			return
		}

		render.JSON(w, r, response.Ok(state))
	}
}
