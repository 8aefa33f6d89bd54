package message

import (
	"FirstContact/entity"
	"FirstContact/internal/lib/api/response"
	"FirstContact/internal/lib/sl"
	"fmt"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
)

const defaultChannel = "api"

type Reply struct {
	Reply string `json:"reply"`
}

// Send runs a dialog turn for a chat automation layer and returns the reply
// for it to deliver. An empty reply means nothing should be sent.
func Send(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.message")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var msg entity.InboundMessage
		if err := render.Bind(r, &msg); err != nil {
			logger.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		if msg.Channel == "" {
			msg.Channel = defaultChannel
		}

		logger = logger.With(
			slog.String("user_id", msg.UserID),
			slog.String("channel", msg.Channel),
		)

		reply, err := handler.HandleMessage(r.Context(), nil, msg)
		if err != nil {
			// the reply is already degraded for the user and stays deliverable
			logger.Error("dialog turn", sl.Err(err))
		}
		logger.Debug("dialog turn", slog.Int("reply_size", len(reply)))

		render.JSON(w, r, response.Ok(Reply{Reply: reply}))
	}
}
