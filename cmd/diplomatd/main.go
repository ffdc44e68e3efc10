// Command diplomatd runs one Proof-of-Diplomacy node: ledger, mempool, peer
// store, mining worker, RPC server, and discovery loops, wired from a YAML
// config file and shut down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xbucks-network/diplomat-node/internal/config"
	"github.com/xbucks-network/diplomat-node/internal/ledgerstore"
	"github.com/xbucks-network/diplomat-node/internal/logging"
	"github.com/xbucks-network/diplomat-node/internal/mempool"
	"github.com/xbucks-network/diplomat-node/internal/orchestrator"
	"github.com/xbucks-network/diplomat-node/internal/peerstore"
	"github.com/xbucks-network/diplomat-node/internal/pod"
	"github.com/xbucks-network/diplomat-node/internal/roaming"
	"github.com/xbucks-network/diplomat-node/internal/rpc"
	"github.com/xbucks-network/diplomat-node/internal/rpcauth"
	"github.com/xbucks-network/diplomat-node/internal/signer"
)

func main() {
	root := &cobra.Command{Use: "diplomatd", Short: "Proof-of-Diplomacy ledger node"}
	root.AddCommand(runCmd())
	root.AddCommand(keysCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the node and block until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults absent)")
	return cmd
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "keys", Short: "manage the node's signing identity"}
	var keysDir, name string
	show := &cobra.Command{
		Use:   "show",
		Short: "print the node identity's address and public key, generating one if absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := signer.LoadOrCreateEd25519Identity(keysDir, name)
			if err != nil {
				return fmt.Errorf("load or create identity: %w", err)
			}
			fmt.Printf("address: %s\npublic_key: %s\n", id.Address(), id.PublicKeyHex())
			return nil
		},
	}
	show.Flags().StringVar(&keysDir, "keys-dir", "keys", "directory holding the node's key pair")
	show.Flags().StringVar(&name, "name", "node", "key pair name")
	cmd.AddCommand(show)
	return cmd
}

func runNode(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	identity, err := signer.LoadOrCreateEd25519Identity(cfg.KeysDir, "node")
	if err != nil {
		return fmt.Errorf("load or create node identity: %w", err)
	}
	logger.Info("node identity ready", zap.String("address", identity.Address()))

	ledger, err := ledgerstore.Open(
		filepath.Join(cfg.DBDir, cfg.LedgerFile),
		filepath.Join(cfg.DBDir, cfg.LedgerFile+".idx"),
	)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	mp, err := mempool.Open(filepath.Join(cfg.DBDir, cfg.MempoolFile))
	if err != nil {
		return fmt.Errorf("open mempool: %w", err)
	}

	peers, err := peerstore.Open(filepath.Join(cfg.DBDir, cfg.PeerDBFile), nil)
	if err != nil {
		return fmt.Errorf("open peer store: %w", err)
	}

	podEngine := pod.New(pod.Params{
		K:                        cfg.PoDK,
		BaseDifficulty:           cfg.PoDBaseDifficulty,
		RepeatIncrement:          pod.DefaultParams().RepeatIncrement,
		MaxAttemptsPerDifficulty: 0,
	}, nil)

	hmacSigner := rpcauth.NewSigner([]byte(cfg.HMACSecret), nil)
	hmacVerifier := rpcauth.NewVerifier([]byte(cfg.HMACSecret), cfg.HMACTolerance(), nil)
	rpcClient := rpc.NewClient(cfg.RPCTimeout(), hmacSigner)

	orchCfg := orchestrator.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		MetricsAddr: cfg.MetricsAddr,
		Roam: roaming.Config{
			SelfHost:         cfg.Host,
			SelfPort:         cfg.Port,
			SubnetBase:       cfg.RoamSubnetBase,
			Ports:            cfg.RoamPorts,
			RoamInterval:     cfg.RoamIntervalDuration(),
			AnnounceInterval: cfg.PeriodicAnnounceIntervalDuration(),
		},
	}

	node := orchestrator.New(orchCfg, ledger, mp, peers, podEngine, identity, rpcClient, logger)

	server := rpc.New(cfg.Host, cfg.Port, ledger, peers, podEngine, hmacVerifier, node.ValidateAndAppend, logger)
	node.AttachRPCServer(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("node starting",
		zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.String("metrics_addr", cfg.MetricsAddr))

	runErr := node.Run(ctx)

	if err := node.Close(); err != nil {
		logger.Error("close subsystems", zap.Error(err))
	}
	return runErr
}
