package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corestream/element"
)

// debugServer is the read-only introspection HTTP surface named in
// SPEC_FULL.md §6: GET /elements lists running runtimes and their
// playback state, GET /elements/:name/pads lists per-pad demand/
// current_size/stream-flag state. It mirrors the teacher's api.go shape
// (echo, a consistent JSON error body, graceful shutdown) but never
// constructs or links elements itself — it only reports on whatever
// pipeline the caller already assembled.
type debugServer struct {
	registry *element.Registry
	echo     *echo.Echo
}

func newDebugServer(reg *element.Registry, promReg *prometheus.Registry) *debugServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = jsonErrorHandler

	s := &debugServer{registry: reg, echo: e}
	s.registerRoutes(promReg)
	return s
}

func (s *debugServer) registerRoutes(promReg *prometheus.Registry) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/elements", s.handleElements)
	s.echo.GET("/elements/:name/pads", s.handlePads)
	if promReg != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	}
}

// Run starts the debug HTTP server on addr and blocks until ctx is cancelled.
func (s *debugServer) Run(ctx context.Context, addr string) {
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Printf("[debug] server error: %v", err)
		}
	}()
	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutCtx); err != nil {
		log.Printf("[debug] shutdown: %v", err)
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Elements int    `json:"elements"`
}

func (s *debugServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:   "ok",
		Elements: len(s.registry.Snapshot()),
	})
}

type elementResponse struct {
	Name  string   `json:"name"`
	State string   `json:"state"`
	Pads  []string `json:"pads"`
}

func (s *debugServer) handleElements(c echo.Context) error {
	snap := s.registry.Snapshot()
	out := make([]elementResponse, 0, len(snap))
	for _, info := range snap {
		out = append(out, elementResponse{Name: info.Name, State: info.State, Pads: info.Pads})
	}
	return c.JSON(http.StatusOK, out)
}

type padResponse struct {
	Ref           string `json:"ref"`
	Direction     string `json:"direction"`
	Mode          string `json:"mode"`
	Demand        int64  `json:"demand"`
	CurrentSize   int    `json:"current_size,omitempty"`
	HasBuffer     bool   `json:"has_pull_buffer"`
	StartOfStream bool   `json:"start_of_stream"`
	EndOfStream   bool   `json:"end_of_stream"`
	Linked        bool   `json:"linked"`
}

func (s *debugServer) handlePads(c echo.Context) error {
	name := c.Param("name")
	pads, ok := s.registry.Pads(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown element "+name)
	}
	out := make([]padResponse, 0, len(pads))
	for _, p := range pads {
		out = append(out, padResponse{
			Ref:           p.Ref,
			Direction:     p.Direction,
			Mode:          p.Mode,
			Demand:        p.Demand,
			CurrentSize:   p.CurrentSize,
			HasBuffer:     p.HasBuffer,
			StartOfStream: p.StartOfStream,
			EndOfStream:   p.EndOfStream,
			Linked:        p.Linked,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// jsonErrorHandler keeps every error response body shaped {"error": "..."},
// the same normalization the teacher's api.go applies over Echo's default
// handler.
func jsonErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}
