package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/engine/infra/monitoring"
	"github.com/compozy/conduit/engine/infra/server/appstate"
	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
)

const (
	monitoringShutdownTimeout = 5 * time.Second
	serverShutdownTimeout     = 5 * time.Second
	httpReadTimeout           = 15 * time.Second
	httpIdleTimeout           = 60 * time.Second
	hostAny                   = "0.0.0.0"
	hostLoopback              = "127.0.0.1"
)

// Server hosts the extension and project export API.
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	state      *appstate.State
	monitoring *monitoring.Service
	ctx        context.Context
	cancel     context.CancelFunc
	httpServer *http.Server

	shutdownOnce sync.Once
	cleanupMu    sync.Mutex
	cleanups     []func()
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.FromContext(ctx)
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	serverCtx, cancel := context.WithCancel(config.ContextWithConfig(ctx, cfg))
	return &Server{cfg: cfg, ctx: serverCtx, cancel: cancel}, nil
}

// Setup builds dependencies and routes without listening.
func (s *Server) Setup() error {
	state, err := s.setupDependencies()
	if err != nil {
		s.runCleanups()
		return err
	}
	if err := s.buildRouter(state); err != nil {
		s.runCleanups()
		return fmt.Errorf("failed to build router: %w", err)
	}
	s.state = state
	return nil
}

// State returns the application state built by Setup.
func (s *Server) State() (*appstate.State, error) {
	if s.state == nil {
		return nil, fmt.Errorf("server is not set up")
	}
	return s.state, nil
}

// Router returns the engine built by Setup.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is canceled or a termination signal arrives.
func (s *Server) Run() error {
	if s.router == nil {
		if err := s.Setup(); err != nil {
			return err
		}
	}
	defer s.Shutdown()
	s.httpServer = s.createHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logStartupBanner()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	log := logger.FromContext(s.ctx)
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
		log.Debug("Received shutdown signal, initiating graceful shutdown")
	case <-s.ctx.Done():
		log.Debug("Server context canceled, initiating graceful shutdown")
	}
	return nil
}

func (s *Server) createHTTPServer() *http.Server {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	writeTimeout := s.cfg.Server.Timeout
	logger.FromContext(s.ctx).Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", addr))
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: httpReadTimeout,
		ReadTimeout:       httpReadTimeout,
		// zero disables the limit
		WriteTimeout: writeTimeout,
		IdleTimeout:  httpIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return s.ctx },
	}
}

// Shutdown stops the HTTP server and releases dependencies. It is safe to call more
// than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		log := logger.FromContext(s.ctx)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), serverShutdownTimeout)
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Error("Server shutdown failed", "error", err)
			}
			cancel()
		}
		s.cancel()
		s.runCleanups()
		log.Info("Server shutdown completed successfully")
	})
}

func (s *Server) addCleanup(fn func()) {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

func (s *Server) runCleanups() {
	s.cleanupMu.Lock()
	fns := s.cleanups
	s.cleanups = nil
	s.cleanupMu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

func setupMonitoring(ctx context.Context, cfg *config.Config) *monitoring.Service {
	service := monitoring.NewMonitoringServiceWithFallback(ctx, monitoring.FromServerConfig(&cfg.Server))
	if service.IsInitialized() {
		service.SetAsGlobal()
	}
	return service
}
