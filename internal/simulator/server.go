package simulator

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
)

// shutdownTimeout bounds a graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // TLS is enabled when both CertPath and KeyPath are set
	KeyPath  string
}

// TLSEnabled reports whether the server serves https/wss.
func (c *Config) TLSEnabled() bool {
	return c.CertPath != "" && c.KeyPath != ""
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Server runs a Simulator as a standalone process.
type Server struct {
	config    *Config
	sim       *Simulator
	tlsConfig *tls.Config
	http      *http.Server
	listener  net.Listener
}

// NewServer creates a server for sim.
func NewServer(config *Config, sim *Simulator) (*Server, error) {
	if (config.CertPath == "") != (config.KeyPath == "") {
		return nil, fmt.Errorf("both a certificate and a key are needed for TLS")
	}

	var tlsConfig *tls.Config
	if config.TLSEnabled() {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	return &Server{
		config:    config,
		sim:       sim,
		tlsConfig: tlsConfig,
		http: &http.Server{
			Handler:           sim,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Listen opens the listening socket. Start calls it when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	s.listener = ln
	return nil
}

// Addr returns the address the server listens on, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is done or the process receives SIGINT/SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	scheme := "ws"
	if s.tlsConfig != nil {
		scheme = "wss"
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
	}
	logging.Info("Simulated master listening",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("scheme", scheme),
		zap.Uint8s("slaves", s.sim.Slaves()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(s.listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
	case <-ctx.Done():
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown closes the WebSocket sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...",
		zap.Int("active_sessions", s.sim.ActiveSessions()),
	)

	// hijacked connections are not tracked by http.Server
	s.sim.CloseSessions("server shutting down")

	err := s.http.Shutdown(ctx)
	logging.Sync()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
