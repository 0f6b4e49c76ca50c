// Package api exposes the gateway's HTTP surface: a cookie-based local
// session in front of the remote chat server, plus JSON endpoints for
// the room catalog, the active conversation, notifications and
// preferences.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/rocketgate/internal/catalog"
	"github.com/npezzotti/rocketgate/internal/composer"
	"github.com/npezzotti/rocketgate/internal/config"
	"github.com/npezzotti/rocketgate/internal/conversation"
	"github.com/npezzotti/rocketgate/internal/database"
	"github.com/npezzotti/rocketgate/internal/notify"
	"github.com/npezzotti/rocketgate/internal/rocketchat"
	"github.com/npezzotti/rocketgate/internal/store"
)

type RocketGateApp struct {
	log        *log.Logger
	chat       rocketchat.ChatAPI
	repo       database.StateRepository
	sessions   *store.SessionStore
	prefs      *store.PrefStore
	catalog    *catalog.Catalog
	conv       *conversation.Controller
	composer   *composer.Composer
	notifier   *notify.Aggregator
	mux        *http.Server
	signingKey []byte
}

func NewRocketGateApp(mux *http.ServeMux, logger *log.Logger, chat rocketchat.ChatAPI, repo database.StateRepository, sessions *store.SessionStore, prefs *store.PrefStore, cat *catalog.Catalog, conv *conversation.Controller, comp *composer.Composer, notifier *notify.Aggregator, cfg *config.Config) *RocketGateApp {
	s := &RocketGateApp{
		log:        logger,
		chat:       chat,
		repo:       repo,
		sessions:   sessions,
		prefs:      prefs,
		catalog:    cat,
		conv:       conv,
		composer:   comp,
		notifier:   notifier,
		signingKey: cfg.SigningKey,
	}

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.Handle("POST /api/rooms/select", s.authMiddleware(s.selectRoom))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("POST /api/channels", s.authMiddleware(s.createChannel))
	mux.Handle("PUT /api/channels", s.authMiddleware(s.updateChannel))
	mux.Handle("DELETE /api/channels", s.authMiddleware(s.deleteChannel))
	mux.Handle("POST /api/channels/join", s.authMiddleware(s.joinChannel))
	mux.Handle("POST /api/groups", s.authMiddleware(s.createGroup))
	mux.Handle("POST /api/dm", s.authMiddleware(s.createDirectMessage))
	mux.Handle("PUT /api/teams", s.authMiddleware(s.updateTeam))
	mux.Handle("DELETE /api/teams", s.authMiddleware(s.deleteTeam))
	mux.Handle("GET /api/notifications", s.authMiddleware(s.getNotifications))
	mux.Handle("POST /api/notifications/dismiss", s.authMiddleware(s.dismissNotification))
	mux.Handle("POST /api/notifications/clear", s.authMiddleware(s.clearNotifications))
	mux.Handle("GET /api/toasts", s.authMiddleware(s.getToasts))
	mux.Handle("POST /api/toasts/dismiss", s.authMiddleware(s.dismissToast))
	mux.Handle("POST /api/toasts/open", s.authMiddleware(s.openToast))
	mux.Handle("GET /api/users", s.authMiddleware(s.listUsers))
	mux.Handle("GET /api/preferences", s.authMiddleware(s.getPreferences))
	mux.Handle("POST /api/preferences/dnd", s.authMiddleware(s.setDoNotDisturb))
	mux.HandleFunc("GET /healthz", s.healthz)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)
	h = s.requestId(h)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *RocketGateApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *RocketGateApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
