// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/service"
)

// Service interfaces for dependency injection and testing

// GraphServiceInterface defines the interface for graph query operations
type GraphServiceInterface interface {
	TraceByAddress(ctx context.Context, address string) (*models.TraceTimeline, error)
	TraceByBlock(ctx context.Context, blockNumber uint64) (*models.TraceGraph, error)
	TraceByTransaction(ctx context.Context, txHash string) (*models.TraceGraph, error)
	IngestTraces(ctx context.Context, traces []*models.Trace) error
}

// MetadataServiceInterface defines the interface for metadata operations
type MetadataServiceInterface interface {
	GetAddress(ctx context.Context, address string) (*models.AddressMetadata, error)
	GetAddresses(ctx context.Context, addresses []string) (map[string]*models.AddressMetadata, error)
	GetProtocol(ctx context.Context, protocolID int64) (*service.ProtocolDetail, error)
	ListProtocols(ctx context.Context) ([]*models.Protocol, error)
	CreateProtocol(ctx context.Context, protocol *models.Protocol) error
}

// SnapshotServiceInterface defines the interface for snapshot operations
type SnapshotServiceInterface interface {
	Save(ctx context.Context, snapshot *models.Snapshot, nodes []*models.SnapshotNode) (int64, error)
	Read(ctx context.Context, name string) (*models.SnapshotView, error)
	List(ctx context.Context) ([]*models.Snapshot, error)
}

// SecurityServiceInterface defines the interface for security check operations
type SecurityServiceInterface interface {
	GetOrAssess(ctx context.Context, address string) (*models.SecurityCheckResult, error)
}

// Server represents the HTTP API server.
type Server struct {
	router          *mux.Router
	httpServer      *http.Server
	graphService    GraphServiceInterface
	metadataService MetadataServiceInterface
	snapshotService SnapshotServiceInterface
	securityService SecurityServiceInterface
	config          *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	graphService GraphServiceInterface,
	metadataService MetadataServiceInterface,
	snapshotService SnapshotServiceInterface,
	securityService SecurityServiceInterface,
) *Server {
	s := &Server{
		router:          mux.NewRouter(),
		graphService:    graphService,
		metadataService: metadataService,
		snapshotService: snapshotService,
		securityService: securityService,
		config:          config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Middleware order matters: recovery wraps everything downstream of
	// logging so panics still get a log line.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Graph endpoints
	api.HandleFunc("/trace", s.handleTrace).Methods("GET")

	// Metadata endpoints
	api.HandleFunc("/metadata/address/{address}", s.handleGetAddressMetadata).Methods("GET")
	api.HandleFunc("/metadata/protocol/{protocolId}", s.handleGetProtocol).Methods("GET")
	api.HandleFunc("/metadata/protocols", s.handleListProtocols).Methods("GET")
	api.HandleFunc("/metadata/protocol", s.handleCreateProtocol).Methods("POST")

	// Snapshot endpoints
	api.HandleFunc("/addresses/snapshot", s.handleSaveSnapshot).Methods("POST")
	api.HandleFunc("/snapshots", s.handleListSnapshots).Methods("GET")
	api.HandleFunc("/snapshot/{snapshotName}", s.handleReadSnapshot).Methods("GET")

	// Security endpoints
	api.HandleFunc("/security/check/{address}", s.handleSecurityCheck).Methods("GET")

	// Trace ingestion webhook, outside the /api prefix
	s.router.HandleFunc("/ingest/traces", s.handleIngestTraces).Methods("POST")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "trace-graph",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's root handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
