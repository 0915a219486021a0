/*
Package handler provides the HTTP handlers and routing setup for the presence server.

This file defines the main Router, applying CORS, request IDs, logging, HTTP metrics and panic
recovery before delegating to the API, metrics and WebSocket handlers.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"hzpresence/internal/pkg/limiter"
	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/resp"
)

// Router builds the application's chi router. ctx bounds the lifetime of background helpers
// such as the rate limiter sweep.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	joinLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(deps.Config.WSJoinRate), deps.Config.WSJoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	if deps.Config.TrustProxyHeaders {
		// rewrites RemoteAddr, which also keys the websocket join limiter
		r.Use(middleware.RealIP)
	}
	r.Use(logx.RequestLogger())
	r.Use(deps.Metrics.HTTPMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "HZ Presence Server",
		})
	})

	r.Get(deps.Config.MetricsPath, HandleMetrics(deps.Gatherer))

	r.Route("/api", func(api chi.Router) {
		api.Get("/presence", HandleOnlineUsers(deps))
		api.Post("/messages/{receiverID}", HandleSendMessage(deps))
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, joinLimiter, deps))

	return r
}
