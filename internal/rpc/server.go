// Package rpc implements the node's HTTP+XML RPC surface: a single POST /
// endpoint dispatching on an authenticated envelope to the six methods the
// specification defines.
package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xbucks-network/diplomat-node/internal/errs"
	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/metrics"
	"github.com/xbucks-network/diplomat-node/internal/peerstore"
	"github.com/xbucks-network/diplomat-node/internal/pod"
	"github.com/xbucks-network/diplomat-node/internal/rpcauth"
)

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// maxRateLimiterEntries bounds the per-remote-address limiter map, evicting
// an arbitrary entry once full, the same bound/evict shape the P2P layer
// uses for its per-peer limiters.
const maxRateLimiterEntries = 500

// Server is the RPC acceptor: one handler dispatches every inbound call on
// its own goroutine (net/http's default per-request model already gives
// request-per-task scheduling).
type Server struct {
	selfHost string
	selfPort int

	ledger *ledgerstore.Store
	peers  *peerstore.Store
	pod    *pod.Engine
	verify *rpcauth.Verifier
	logger *zap.Logger

	onReceiveBlock func(ctx context.Context, block ledgerstore.Block) error

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	httpServer *http.Server
}

// New builds a Server. onReceiveBlock is called for an inbound receive_block
// after structural validation; it is expected to re-verify PoD finality and
// append to the ledger (the orchestrator wires this to the assembler-owned
// ledger store).
func New(selfHost string, selfPort int, ledger *ledgerstore.Store, peers *peerstore.Store, podEngine *pod.Engine, verify *rpcauth.Verifier, onReceiveBlock func(context.Context, ledgerstore.Block) error, logger *zap.Logger) *Server {
	return &Server{
		selfHost:       selfHost,
		selfPort:       selfPort,
		ledger:         ledger,
		peers:          peers,
		pod:            podEngine,
		verify:         verify,
		onReceiveBlock: onReceiveBlock,
		logger:         logger,
		limiters:       make(map[string]*rate.Limiter),
	}
}

// Handler returns the server's single-route HTTP handler, exposed for
// tests that want to drive it via httptest without binding a real port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

// ListenAndServe binds addr and serves until ctx is cancelled or an
// unrecoverable listener error occurs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.allow(r.RemoteAddr) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 16*1024*1024))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var env Envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		http.Error(w, "malformed envelope", http.StatusBadRequest)
		return
	}

	if err := s.verify.Verify(rpcauth.Credentials{Timestamp: env.Timestamp, Nonce: env.Nonce, Signature: env.Signature}, env.Payload); err != nil {
		s.writeFault(w, r.Context(), env.Method, err)
		return
	}

	result := s.dispatch(r.Context(), env)
	metrics.RPCRequests.WithLabelValues(env.Method, outcomeLabel(result.Success)).Inc()
	w.Header().Set("Content-Type", "application/xml")
	enc := xml.NewEncoder(w)
	if err := enc.Encode(result); err != nil {
		s.logger.Error("encode rpc result", zap.Error(err))
	}
}

// writeFault implements the propagation policy: auth failures on the
// read-side methods (get_state, get_ledger) raise a hard fault; every
// other method reports the failure as a routine {success:false} result.
func (s *Server) writeFault(w http.ResponseWriter, ctx context.Context, method string, authErr error) {
	if method == "get_state" || method == "get_ledger" {
		http.Error(w, authErr.Error(), http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	xml.NewEncoder(w).Encode(Result{Success: false, Reason: authErr.Error()})
}

func (s *Server) dispatch(ctx context.Context, env Envelope) Result {
	switch env.Method {
	case "ping":
		return Result{Success: true, Time: time.Now().UTC().Format(time.RFC3339)}
	case "announce":
		return s.handleAnnounce(env.Payload)
	case "get_state":
		return s.handleGetState()
	case "get_ledger":
		return s.handleGetLedger()
	case "send_state":
		return Result{Success: true}
	case "receive_block":
		return s.handleReceiveBlock(ctx, env.Payload)
	default:
		return Result{Success: false, Reason: "unknown method"}
	}
}

func (s *Server) handleAnnounce(payload string) Result {
	host, portStr, err := net.SplitHostPort(payload)
	if err != nil {
		return Result{Success: false, Reason: "malformed host:port"}
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return Result{Success: false, Reason: "malformed port"}
	}
	if err := s.peers.Upsert(host, port); err != nil {
		return Result{Success: false, Reason: err.Error()}
	}
	return Result{Success: true}
}

func (s *Server) handleGetState() Result {
	peers, err := s.peers.List()
	if err != nil {
		return Result{Success: false, Reason: err.Error()}
	}
	state := StateXML{Host: s.selfHost, Port: s.selfPort, UTC: time.Now().UTC().Format(time.RFC3339)}
	for _, p := range peers {
		state.KnownPeer = append(state.KnownPeer, StateXMLPeer{Host: p.Host, Port: p.Port})
	}
	data, err := xml.Marshal(state)
	if err != nil {
		return Result{Success: false, Reason: err.Error()}
	}
	return Result{Success: true, Data: string(data)}
}

func (s *Server) handleGetLedger() Result {
	raw, err := s.ledger.RawBytes()
	if err != nil {
		return Result{Success: false, Reason: err.Error()}
	}
	return Result{Success: true, Data: base64.StdEncoding.EncodeToString(raw)}
}

func (s *Server) handleReceiveBlock(ctx context.Context, payload string) Result {
	var block ledgerstore.Block
	if err := json.Unmarshal([]byte(payload), &block); err != nil {
		metrics.BlocksReceived.WithLabelValues("malformed").Inc()
		return Result{Success: false, Reason: fmt.Sprintf("%s: %v", errs.ErrBadFormat, err)}
	}

	if s.onReceiveBlock == nil {
		metrics.BlocksReceived.WithLabelValues("unwired").Inc()
		return Result{Success: false, Reason: "receive_block not wired"}
	}
	if err := s.onReceiveBlock(ctx, block); err != nil {
		metrics.BlocksReceived.WithLabelValues("rejected").Inc()
		return Result{Success: false, Reason: err.Error()}
	}
	metrics.BlocksReceived.WithLabelValues("accepted").Inc()
	return Result{Success: true}
}

func (s *Server) allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()

	lim, ok := s.limiters[host]
	if !ok {
		if len(s.limiters) >= maxRateLimiterEntries {
			for k := range s.limiters {
				delete(s.limiters, k)
				break
			}
		}
		lim = rate.NewLimiter(10, 20)
		s.limiters[host] = lim
	}
	return lim.Allow()
}
