package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rentdesk/rentdesk/auth"
	"github.com/rentdesk/rentdesk/backend"
	"github.com/rentdesk/rentdesk/internal/config"
	"github.com/rentdesk/rentdesk/session"
)

const discoveryTimeout = 5 * time.Second

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	store   session.Repo
	auth    *auth.SessionManager
	backend *backend.Client
}

func New(cfg config.Config, store session.Repo) (*Server, error) {
	backendClient := backend.New(cfg)

	// Best-effort endpoint discovery; fixed method paths remain otherwise
	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()
	backendClient.DiscoverEndpoints(ctx)

	sessionManager, err := auth.New(store, backendClient, cfg)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session manager: %w", err)
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  cfg,
		store:   store,
		auth:    sessionManager,
		backend: backendClient,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
