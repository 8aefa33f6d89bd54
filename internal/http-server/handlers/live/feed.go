package live

import (
	"FirstContact/internal/lib/api/cont"
	"FirstContact/internal/ws"
	"log/slog"
	"net/http"
)

// Feed streams dialog events to an authenticated operator.
func Feed(log *slog.Logger, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := ""
		if user := cont.GetUser(r.Context()); user != nil {
			username = user.Username
		}
		ws.ServeWs(hub, username, log, w, r)
	}
}
