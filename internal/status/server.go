// Package status hosts an optional, read-only JSON diagnostics endpoint for
// operators: current reconcile-loop state, connected exchanges, and the
// number of subscriptions in the active polling set. Grounded on the teacher's internal/dashboard package
// (same gin-gonic base, deliberately narrower — no HTML, no log/metric
// history — since the HTTP façade itself is out of scope for this repo,
// only its diagnostics value survives).
package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"marketdatamanager/internal/reconcile"
	"marketdatamanager/logger"
)

// Config controls whether and where the status server listens.
type Config struct {
	Enabled bool
	Address string
}

// Server is the status HTTP server. A nil *Server is valid and Run on it
// is a no-op, so callers can construct one unconditionally and let Config
// decide whether it ever listens.
type Server struct {
	cfg        Config
	log        *logger.Entry
	engine     *reconcile.Engine
	httpServer *http.Server
}

// NewServer constructs a Server. When cfg.Enabled is false, it returns nil
// so Run becomes a no-op without the caller needing its own branch.
func NewServer(cfg Config, engine *reconcile.Engine, log *logger.Entry) *Server {
	if !cfg.Enabled {
		return nil
	}
	cfg.Address = normalizeAddress(cfg.Address)
	return &Server{cfg: cfg, engine: engine, log: log}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return err
	}

	router.GET("/status", s.handleStatus)
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	s.httpServer = &http.Server{Addr: s.cfg.Address, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Address reports the address the status server listens on, or "" if s is
// nil (disabled).
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) handleStatus(c *gin.Context) {
	active := s.engine.ActivePolling()
	c.JSON(http.StatusOK, gin.H{
		"state":                s.engine.State(),
		"connected_exchanges":  s.engine.ConnectedExchanges(),
		"active_polling_count": active.Len(),
	})
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "0.0.0.0:8090"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8090"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8090")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8090")
	}

	return addr
}
