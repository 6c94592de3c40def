// Package api provides Mondrian's HTTP front end (spec.md §6 "Client API").
package api

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/events"
	"github.com/mondrian-project/mondrian/pkg/queue"
	"github.com/mondrian-project/mondrian/pkg/store"
	"github.com/mondrian-project/mondrian/pkg/strategy"
	"github.com/mondrian-project/mondrian/pkg/supervisor"
)

// Server is the HTTP API server. Grounded on the teacher's Server struct
// + Set*-wiring + setupRoutes idiom, adapted from echo v5 to gin.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg        *config.Config
	store      *store.Store
	workerPool *queue.WorkerPool
	dispatcher *strategy.Dispatcher
	bus        *events.Bus
	advisors   *config.AdvisorRegistry

	supervisor *supervisor.Supervisor // nil when running without a supervisor
}

// NewServer creates a new API server and registers all routes.
func NewServer(
	cfg *config.Config,
	st *store.Store,
	workerPool *queue.WorkerPool,
	dispatcher *strategy.Dispatcher,
	bus *events.Bus,
	advisors *config.AdvisorRegistry,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		cfg:        cfg,
		store:      st,
		workerPool: workerPool,
		dispatcher: dispatcher,
		bus:        bus,
		advisors:   advisors,
	}

	s.setupRoutes()
	return s
}

// SetSupervisor wires the process supervisor backing GET /supervisor.
// Optional: a deployment without a supervisor (e.g. the model callable
// and retrieval engine run in-process) leaves this nil, and the route
// responds 404.
func (s *Server) SetSupervisor(sup *supervisor.Supervisor) {
	s.supervisor = sup
}

func (s *Server) setupRoutes() {
	s.engine.MaxMultipartMemory = 8 << 20 // 8 MiB in-memory threshold before spilling to temp files

	s.engine.GET("/health", s.healthHandler)

	s.engine.POST("/upload", s.uploadHandler)
	s.engine.GET("/status/:id", s.statusHandler)
	s.engine.GET("/stream/:id", s.streamHandler)
	s.engine.GET("/analysis/:id", s.analysisHandler)
	s.engine.GET("/advisors", s.listAdvisorsHandler)
	s.engine.GET("/advisors/:id", s.getAdvisorHandler)
	s.engine.GET("/supervisor", s.supervisorHandler)
	s.engine.POST("/supervisor/:name/reset", s.supervisorResetHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
