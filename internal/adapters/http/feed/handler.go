package feed

import (
	"net/http"
	"net/url"

	ws "github.com/coder/websocket"

	"github.com/okian/trapperkeeper/pkg/logger"
)

// Handler upgrades requests to websocket subscriptions on hub. Origins
// are the same values accepted for CORS; "*" or an empty list accepts any
// origin.
func Handler(hub *Hub, origins []string) http.HandlerFunc {
	opts := acceptOptions(origins)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			hub.logger.Warn(r.Context(), "websocket accept failed",
				logger.String("remote", r.RemoteAddr),
				logger.Error(err),
			)
			return
		}
		defer conn.CloseNow()

		hub.logger.Debug(r.Context(), "subscriber connected", logger.String("remote", r.RemoteAddr))
		NewClient(hub, conn, r.RemoteAddr).Run(r.Context())
	}
}

func acceptOptions(origins []string) *ws.AcceptOptions {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return &ws.AcceptOptions{InsecureSkipVerify: true}
		}
		// coder/websocket matches on host, CORS config carries full origins.
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		patterns = append(patterns, o)
	}
	if len(patterns) == 0 {
		return &ws.AcceptOptions{InsecureSkipVerify: true}
	}
	return &ws.AcceptOptions{OriginPatterns: patterns}
}
