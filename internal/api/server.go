// Package api is the HTTP surface of the dashboard: race card reads, ticket
// building sessions and the websocket stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/config"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/session"
	"github.com/yourusername/trackside/internal/submission"
)

// RaceReader is the read side of the race repository
type RaceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error)
	GetUpcoming(ctx context.Context, limit int) ([]*models.Race, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Race, error)
}

// ResultReader looks up declared race results
type ResultReader interface {
	GetByRaceID(ctx context.Context, raceID uuid.UUID) (*models.RaceResult, error)
}

// OddsReader returns a horse's odds history
type OddsReader interface {
	GetTimeSeriesForHorse(ctx context.Context, horseID uuid.UUID, start, end time.Time) ([]*models.OddsSnapshot, error)
}

// HorseLister returns the current field for a race
type HorseLister interface {
	Latest(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error)
}

// Deps are the collaborators the API serves from
type Deps struct {
	Races     RaceReader
	Results   ResultReader
	Horses    HorseLister
	Odds      OddsReader
	Sessions  *session.Store
	Submitter submission.Submitter
	// Websocket is mounted at /ws when set
	Websocket http.Handler
	Logger    *logrus.Logger
}

// Server serves the HTTP API
type Server struct {
	deps   Deps
	cfg    config.APIConfig
	logger *logrus.Entry
	server *http.Server
}

// NewServer creates an API server
func NewServer(cfg config.APIConfig, deps Deps) (*Server, error) {
	if deps.Races == nil || deps.Horses == nil || deps.Sessions == nil {
		return nil, errors.New("api: races, horses and sessions are required")
	}
	if deps.Submitter == nil {
		deps.Submitter = submission.NewLogSubmitter(nil)
	}

	return &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger.OrDiscard(deps.Logger).WithField("component", "api"),
	}, nil
}

// Router builds the route tree
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestMetrics)
	r.Use(cors(s.cfg.AllowedOrigins))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/bet-types", s.listBetTypes)
		r.Get("/cost", s.boxCost)

		r.Get("/races", s.listRaces)
		r.Route("/races/{raceID}", func(r chi.Router) {
			r.Get("/", s.getRace)
			r.Get("/horses", s.getHorses)
			r.Get("/horses/{horseID}/odds", s.getOddsHistory)
			r.Get("/results", s.getResults)
			r.Post("/tickets", s.openTicket)
		})

		r.Route("/tickets/{ticketID}", func(r chi.Router) {
			r.Get("/", s.getTicket)
			r.Delete("/", s.closeTicket)
			r.Put("/bet-type", s.setBetType)
			r.Put("/amount", s.setAmount)
			r.Put("/race-context", s.setRaceContext)
			r.Post("/mode", s.setMode)
			r.Post("/horses/{pp}", s.selectHorse)
			r.Post("/add", s.addToTicket)
			r.Patch("/selections/{index}", s.updateSelection)
			r.Delete("/selections/{index}", s.removeSelection)
			r.Delete("/selections", s.clearSelections)
			r.Post("/submit", s.submitTicket)
		})
	})

	if s.deps.Websocket != nil {
		r.Get("/ws", s.deps.Websocket.ServeHTTP)
	}
	return r
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("port", s.cfg.Port).Info("API server starting")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("API server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
