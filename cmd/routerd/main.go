package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hyperdag/routing-plane/config"
	"github.com/hyperdag/routing-plane/internal/observability"
	"github.com/hyperdag/routing-plane/models"
	"github.com/hyperdag/routing-plane/services/consensus"
	"github.com/hyperdag/routing-plane/services/fuzzy"
	"github.com/hyperdag/routing-plane/services/health"
	"github.com/hyperdag/routing-plane/services/perfstore"
	"github.com/hyperdag/routing-plane/services/planner"
	"github.com/hyperdag/routing-plane/services/providers"
	"github.com/hyperdag/routing-plane/services/routing"
	"github.com/hyperdag/routing-plane/services/topology"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var topologyFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "routerd",
		Short: "Inference request routing plane",
		Long: `routerd routes inference requests across heterogeneous AI providers,
	picking the best execution path under cost, latency, and accuracy
	constraints, with an optional multi-provider consensus mode.`,
	}

	rootCmd.PersistentFlags().StringVar(&topologyFile, "topology", "topology.yaml", "path to topology seed file")

	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(topologyCmd())
	rootCmd.AddCommand(probeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func routeCmd() *cobra.Command {
	var priorityFlag string
	var consensusFlag bool

	cmd := &cobra.Command{
		Use:   "route [question]",
		Short: "Route one request through the topology and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			orchestrator, _, err := buildPlane(cfg, logger)
			if err != nil {
				return err
			}

			req := models.NewRouteRequest(args[0])
			req.Priority = models.Priority(priorityFlag)
			req.Requirements.ConsensusRequired = consensusFlag
			req.Requirements.ConsensusThreshold = cfg.Consensus.Threshold
			req.Requirements.MinConsensusProviders = cfg.Consensus.MinProviders

			result, err := orchestrator.RouteAdvancedRequest(context.Background(), req)
			if err != nil {
				return fmt.Errorf("routing failed: %w", err)
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&priorityFlag, "priority", "balanced", "routing priority: speed, cost, accuracy, balanced")
	cmd.Flags().BoolVar(&consensusFlag, "consensus", false, "require multi-provider consensus")
	return cmd
}

func topologyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Print the topology and its cycle-check verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			store, err := loadStore(cfg, logger)
			if err != nil {
				return err
			}

			snap := store.Snapshot()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NODE\tKIND\tSTATUS\tREGION\tREPUTATION")
			for _, node := range snap.Nodes() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
					node.ID, node.Kind, node.Status, node.Geo.Region, node.Reputation)
			}
			w.Flush()

			fmt.Printf("\nnodes: %d, edges: %d, cycles: %v\n",
				snap.NodeCount(), snap.EdgeCount(), store.DetectCycles())
			return nil
		},
	}
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Run one health sweep over the topology and print node states",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			store, err := loadStore(cfg, logger)
			if err != nil {
				return err
			}

			// Loopback prober: reports each node healthy with its last
			// known metrics, utilization refreshed from the load monitor.
			// Real deployments inject a network prober.
			loopback := health.ProberFunc(func(ctx context.Context, node *models.Node) models.ProbeResult {
				return models.ProbeResult{
					Success:        true,
					ResponseTimeMs: node.Metrics.ResponseTimeMs,
					GPUUtilization: node.Metrics.GPUUtilization,
					Availability:   node.Metrics.Availability,
					ErrorRate:      node.Metrics.ErrorRate,
				}
			})
			prober := health.NewLoadAwareProber(loopback, providers.NewMockExecutor())

			monitor := health.NewMonitor(store, prober, health.MonitorConfig{
				Interval:        cfg.Health.Interval,
				ProbeTimeout:    cfg.Health.ProbeTimeout,
				RecoveryBackoff: cfg.Health.RecoveryBackoff,
			}, logger)
			monitor.Sweep(cmd.Context())

			snap := store.Snapshot()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NODE\tSTATUS\tFAILURES\tREPUTATION")
			for _, node := range snap.Nodes() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n",
					node.ID, node.Status, node.FailureCount, node.Reputation)
			}
			return w.Flush()
		},
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// loadStore builds a topology store from the seed file.
func loadStore(cfg *config.Config, logger *zap.Logger) (*topology.Store, error) {
	seedPath := topologyFile
	if cfg.Topology.SeedFile != "" {
		seedPath = cfg.Topology.SeedFile
	}
	seed, err := config.LoadTopology(seedPath)
	if err != nil {
		return nil, err
	}

	store := topology.NewStore(topology.StoreConfig{MaxFailureCount: cfg.Topology.MaxFailureCount}, logger)
	for _, n := range seed.Nodes {
		if err := store.RegisterNode(n.Node()); err != nil {
			return nil, err
		}
	}
	for _, e := range seed.Edges {
		if err := store.AddEdge(e.Edge()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// buildPlane wires the full routing plane over a mock executor.
func buildPlane(cfg *config.Config, logger *zap.Logger) (*routing.Orchestrator, *topology.Store, error) {
	store, err := loadStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var perf perfstore.Store
	if cfg.Performance.Driver == "sqlite" {
		sqliteStore, err := perfstore.NewSQLiteStore(cfg.Performance.Path)
		if err != nil {
			return nil, nil, err
		}
		perf = sqliteStore
	} else {
		perf = perfstore.NewMemoryStore()
	}

	engine := fuzzy.NewEngine(logger)
	if history, err := perf.Load(context.Background()); err == nil {
		engine.SeedHistory(history)
	}

	// Every provider resolves to the mock executor until real backends
	// register themselves.
	executor := providers.NewRegistry()
	executor.SetFallback(providers.NewMockExecutor())

	pl := planner.NewPlanner(engine, logger)
	coordinator := consensus.NewCoordinator(executor, logger)

	orchestrator := routing.NewOrchestrator(
		store, pl, engine, coordinator, executor, perf, routing.NewKeywordScorer(),
		routing.Config{
			GatewayID: cfg.Topology.GatewayID,
			Consensus: consensus.Options{
				Threshold:    cfg.Consensus.Threshold,
				MinProviders: cfg.Consensus.MinProviders,
				Timeout:      cfg.Consensus.Timeout,
			},
		},
		logger,
	)
	return orchestrator, store, nil
}
