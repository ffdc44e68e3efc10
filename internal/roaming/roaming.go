// Package roaming implements the two background discovery loops: random
// subnet/port probing, and periodic re-announce to already-known peers.
package roaming

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xbucks-network/diplomat-node/internal/metrics"
	"github.com/xbucks-network/diplomat-node/internal/peerstore"
	"github.com/xbucks-network/diplomat-node/internal/rpc"
)

// Config parameterizes both loops.
type Config struct {
	SelfHost string
	SelfPort int

	SubnetBase string // e.g. "192.168.1", probed as SubnetBase.<random 1-254>
	Ports      []int

	RoamInterval     time.Duration
	AnnounceInterval time.Duration
}

// Loops owns the roaming and periodic-announce background workers.
type Loops struct {
	cfg    Config
	client *rpc.Client
	peers  *peerstore.Store
	logger *zap.Logger
}

// New builds a Loops.
func New(cfg Config, client *rpc.Client, peers *peerstore.Store, logger *zap.Logger) *Loops {
	return &Loops{cfg: cfg, client: client, peers: peers, logger: logger}
}

// RunRoam probes a random host:port in the configured subnet/port space
// each iteration, sleeping a uniform random interval in [0.5, RoamInterval]
// seconds, until ctx is cancelled.
func (l *Loops) RunRoam(ctx context.Context) {
	for {
		l.probeOnce(ctx)

		sleep := randomDuration(500*time.Millisecond, l.cfg.RoamInterval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func (l *Loops) probeOnce(ctx context.Context) {
	if len(l.cfg.Ports) == 0 {
		return
	}
	host := fmt.Sprintf("%s.%d", l.cfg.SubnetBase, 1+rand.Intn(254))
	port := l.cfg.Ports[rand.Intn(len(l.cfg.Ports))]
	baseURL := fmt.Sprintf("http://%s:%d/", host, port)

	if _, err := l.client.Ping(ctx, baseURL); err != nil {
		l.logger.Debug("roam probe failed", zap.String("target", baseURL), zap.Error(err))
		metrics.RoamProbes.WithLabelValues("unreachable").Inc()
		return
	}

	if _, err := l.client.Announce(ctx, baseURL, l.cfg.SelfHost, l.cfg.SelfPort); err != nil {
		l.logger.Debug("roam announce failed", zap.String("target", baseURL), zap.Error(err))
		metrics.RoamProbes.WithLabelValues("announce_failed").Inc()
		return
	}

	if err := l.peers.Upsert(host, port); err != nil {
		l.logger.Warn("roam upsert failed", zap.String("target", baseURL), zap.Error(err))
		metrics.RoamProbes.WithLabelValues("upsert_failed").Inc()
		return
	}
	metrics.RoamProbes.WithLabelValues("discovered").Inc()
	l.logger.Info("roam discovered peer", zap.String("host", host), zap.Int("port", port))
}

// RunAnnounce re-announces to every known peer every AnnounceInterval,
// refreshing last-seen on responders and silently ignoring failures, until
// ctx is cancelled.
func (l *Loops) RunAnnounce(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.AnnounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.announceToKnownPeers(ctx)
		}
	}
}

func (l *Loops) announceToKnownPeers(ctx context.Context) {
	known, err := l.peers.List()
	if err != nil {
		l.logger.Warn("periodic announce: list peers failed", zap.Error(err))
		return
	}
	metrics.KnownPeers.Set(float64(len(known)))

	for _, p := range known {
		baseURL := fmt.Sprintf("http://%s:%d/", p.Host, p.Port)
		if _, err := l.client.Announce(ctx, baseURL, l.cfg.SelfHost, l.cfg.SelfPort); err != nil {
			l.logger.Debug("periodic announce failed", zap.String("target", baseURL), zap.Error(err))
			continue
		}
		if err := l.peers.Upsert(p.Host, p.Port); err != nil {
			l.logger.Warn("periodic announce: refresh last-seen failed", zap.Error(err))
		}
	}
}

func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
