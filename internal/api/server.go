// Package api serves the collector's HTTP query surface: health and
// metrics plus read access to the season's scouting data and TBA
// imports. It sits beside the TCP listener, not in front of it.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tahomarobotics/koala/internal/observability"
	"github.com/tahomarobotics/koala/internal/store"
)

// Records is the store surface the API reads from.
type Records interface {
	MatchesFromEvent(ctx context.Context, eventKey string) ([]map[string]any, error)
	MatchesFromTeam(ctx context.Context, teamKey, eventKey string) ([]map[string]any, error)
	TeamsFromMatch(ctx context.Context, matchNumber int, eventKey string) ([]map[string]any, error)
	TeamsFromEvent(ctx context.Context, eventKey string) (map[int]string, error)
	StratForEvent(ctx context.Context, eventKey string) ([]map[string]any, error)
	PitsForEvent(ctx context.Context, eventKey string) ([]map[string]any, error)
	MainScoutKeys(ctx context.Context) ([]string, error)
	ImportEventMatches(ctx context.Context, eventKey string) (int, error)
	ImportEventTeams(ctx context.Context, eventKey string) error
}

// Server wraps the gin router and its listen address.
type Server struct {
	addr    string
	node    string
	records Records
	router  *gin.Engine
	started time.Time
}

func New(addr, node string, records Records, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(node))
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s := &Server{
		addr:    addr,
		node:    node,
		records: records,
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then drains with a short deadline.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", s.addr).Msg("http api listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errc
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": s.node,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/schema/keys", func(c *gin.Context) {
		keys, err := s.records.MainScoutKeys(c.Request.Context())
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"keys": keys})
	})

	events := s.router.Group("/events/:event")

	events.GET("/matches", func(c *gin.Context) {
		docs, err := s.records.MatchesFromEvent(c.Request.Context(), c.Param("event"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": docs})
	})

	events.GET("/teams", func(c *gin.Context) {
		teams, err := s.records.TeamsFromEvent(c.Request.Context(), c.Param("event"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"teams": teams})
	})

	events.GET("/strat", func(c *gin.Context) {
		docs, err := s.records.StratForEvent(c.Request.Context(), c.Param("event"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"strat": docs})
	})

	events.GET("/pits", func(c *gin.Context) {
		docs, err := s.records.PitsForEvent(c.Request.Context(), c.Param("event"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pits": docs})
	})

	events.GET("/teams/:team/matches", func(c *gin.Context) {
		docs, err := s.records.MatchesFromTeam(c.Request.Context(), c.Param("team"), c.Param("event"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": docs})
	})

	events.GET("/matches/:num/teams", func(c *gin.Context) {
		num, err := strconv.Atoi(c.Param("num"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "match number must be an integer"})
			return
		}
		docs, err := s.records.TeamsFromMatch(c.Request.Context(), num, c.Param("event"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"teams": docs})
	})

	events.POST("/import", func(c *gin.Context) {
		event := c.Param("event")
		added, err := s.records.ImportEventMatches(c.Request.Context(), event)
		if err != nil {
			s.fail(c, err)
			return
		}
		if err := s.records.ImportEventTeams(c.Request.Context(), event); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "imported", "matches_added": added})
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrWrongYear) || errors.Is(err, store.ErrBadEventKey) {
		status = http.StatusBadRequest
	}
	if errors.Is(err, store.ErrTeamNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
