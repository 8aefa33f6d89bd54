package dialog

import (
	"FirstContact/internal/lib/api/response"
	"FirstContact/internal/lib/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"strconv"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Messages returns the transcript of a dialog, newest first.
func Messages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")

		limit := queryInt(r, "limit", defaultLimit)
		if limit <= 0 || limit > maxLimit {
			limit = defaultLimit
		}
		offset := max(queryInt(r, "offset", 0), 0)

		messages, err := handler.GetChatMessages(userID, limit, offset)
		if err != nil {
			log.Error("get chat messages", slog.String("user_id", userID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get messages"))
			return
		}

		render.JSON(w, r, response.Ok(messages))
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}
