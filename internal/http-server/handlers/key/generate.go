package key

import (
	"FirstContact/internal/lib/api/response"
	"FirstContact/internal/lib/sl"
	"encoding/json"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
)

type Core interface {
	GenerateApiKey(username string) (string, error)
}

type Request struct {
	Username string `json:"username"`
}

// Generate issues an API key for an operator or integration.
func Generate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Username required"))
			return
		}

		key, err := handler.GenerateApiKey(req.Username)
		if err != nil {
			log.Error("generate api key", slog.String("username", req.Username), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to generate key"))
			return
		}

		render.JSON(w, r, response.Ok(key))
	}
}
