/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

HandleWebSocket rate limits the caller, reads the optional user identity, upgrades the
connection and hands it to the presence Hub for the rest of its life.
*/
package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"hzpresence/internal/app/presence"
	"hzpresence/internal/pkg/errs"
	"hzpresence/internal/pkg/limiter"
	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/randx"
	"hzpresence/internal/pkg/resp"
)

// IdentityQueryParam is the query parameter carrying the user identity at connect time.
const IdentityQueryParam = "userId"

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Connections without an identity are accepted as anonymous and are not tracked as online users.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(limiter.ClientIP(r)))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		identity := r.URL.Query().Get(IdentityQueryParam)
		if strings.TrimSpace(identity) == "" {
			identity = ""
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		client := presence.NewClient(deps.Hub, conn, connID, identity, deps.Config.SendQueueSize)

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "user_id", client.Identity())

		client.Start()
	}
}
