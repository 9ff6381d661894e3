package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vocdoni/nebula-fhevm/api"
	"github.com/vocdoni/nebula-fhevm/config"
	"github.com/vocdoni/nebula-fhevm/log"
	"github.com/vocdoni/nebula-fhevm/storage"
)

const shutdownTimeout = 5 * time.Second

// RelayerService represents a service that manages the development relayer
// HTTP server.
type RelayerService struct {
	storage      *storage.Storage
	network      *config.Network
	coprocessors int
	api          *api.API
	server       *http.Server
	mu           sync.Mutex
	cancel       context.CancelFunc
	host         string
	port         int
}

// NewRelayer creates a new RelayerService instance. With port 0 the system
// picks a free port when the service starts.
func NewRelayer(stg *storage.Storage, network *config.Network, host string, port, coprocessors int) *RelayerService {
	return &RelayerService{
		storage:      stg,
		network:      network,
		coprocessors: coprocessors,
		host:         host,
		port:         port,
	}
}

// Start begins the relayer server. It returns an error if the service
// is already running or if it fails to start.
func (rs *RelayerService) Start(ctx context.Context) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.cancel != nil {
		return fmt.Errorf("service already running")
	}

	// the key set and the signers are loaded from the storage, so a restart
	// serves the same keys
	a, err := api.New(&api.APIConfig{
		Storage:      rs.storage,
		Network:      rs.network,
		Coprocessors: rs.coprocessors,
	})
	if err != nil {
		return fmt.Errorf("failed to start relayer: %w", err)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(rs.host, strconv.Itoa(rs.port)))
	if err != nil {
		return fmt.Errorf("failed to start relayer: %w", err)
	}
	rs.api = a
	rs.server = &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := rs.server
	addr := ln.Addr().String()

	ctx, rs.cancel = context.WithCancel(ctx)
	go func() {
		log.Infow("starting relayer server", "address", addr, "chainId", rs.network.ChainID)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "relayer server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("relayer shutdown", "error", err.Error())
		}
	}()
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		rs.port = tcp.Port
	}
	return nil
}

// Stop halts the relayer server and waits for the listener to close. The storage stays open so the service can
// be started again.
func (rs *RelayerService) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.cancel == nil {
		return
	}
	rs.cancel()
	rs.cancel = nil
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rs.server.Shutdown(ctx); err != nil {
		log.Warnw("relayer shutdown", "error", err.Error())
	}
}

// HostPort returns the host and port of the relayer server.
func (rs *RelayerService) HostPort() (string, int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.host, rs.port
}

// URL returns the base URL of the running relayer.
func (rs *RelayerService) URL() string {
	host, port := rs.HostPort()
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// API returns the relayer served by the last Start call.
func (rs *RelayerService) API() *api.API {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.api
}
