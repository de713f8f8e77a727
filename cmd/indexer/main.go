package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/willwe-labs/willwe-indexer/internal/chat"
	"github.com/willwe-labs/willwe-indexer/internal/common"
	internalconfig "github.com/willwe-labs/willwe-indexer/internal/config"
	"github.com/willwe-labs/willwe-indexer/internal/contracts"
	"github.com/willwe-labs/willwe-indexer/internal/db"
	"github.com/willwe-labs/willwe-indexer/internal/downloader"
	downloadermig "github.com/willwe-labs/willwe-indexer/internal/downloader/migrations"
	"github.com/willwe-labs/willwe-indexer/internal/events"
	"github.com/willwe-labs/willwe-indexer/internal/indexer"
	"github.com/willwe-labs/willwe-indexer/internal/logger"
	"github.com/willwe-labs/willwe-indexer/internal/metrics"
	"github.com/willwe-labs/willwe-indexer/internal/projector"
	"github.com/willwe-labs/willwe-indexer/internal/reorg"
	"github.com/willwe-labs/willwe-indexer/internal/resolver"
	"github.com/willwe-labs/willwe-indexer/internal/rpc"
	"github.com/willwe-labs/willwe-indexer/internal/store"
	storemig "github.com/willwe-labs/willwe-indexer/internal/store/migrations"
	"github.com/willwe-labs/willwe-indexer/internal/types"
	"github.com/willwe-labs/willwe-indexer/pkg/api"
	"github.com/willwe-labs/willwe-indexer/pkg/config"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "willwe-indexer",
	Short: "WillWe governance event indexer",
	Long: `willwe-indexer follows WillWe contract deployments across chains,
projects their events into queryable governance state (nodes, memberships,
membranes, signals, movements, signature queues) and serves that state over
a REST API.`,
	Version: version,
	RunE:    run,
}

var configSchemaCmd = &cobra.Command{
	Use:   "config-schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := jsonschema.Reflect(&config.Config{})
		data, err := schema.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal config schema: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(configSchemaCmd)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := internalconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	log := logger.NewComponentLogger(common.ComponentDownloader, cfg.Logging)

	registry, err := contracts.NewRegistry(cfg.Networks)
	if err != nil {
		return fmt.Errorf("failed to build contract registry: %w", err)
	}

	// Shared projection store
	if err := storemig.RunMigrations(cfg.Store.DB.Path); err != nil {
		return fmt.Errorf("failed to run store migrations: %w", err)
	}
	projectionDB, err := db.NewSQLiteDBFromConfig(cfg.Store.DB)
	if err != nil {
		return fmt.Errorf("failed to open projection database: %w", err)
	}
	defer projectionDB.Close()

	maintenance := db.NewMaintenance(
		cfg.Store.DB.Path,
		projectionDB,
		cfg.Store.Maintenance,
		logger.NewComponentLogger(common.ComponentStore, cfg.Logging),
	)
	if err := maintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database maintenance: %w", err)
	}
	defer maintenance.Stop()

	projectionStore := store.NewStore(projectionDB, logger.NewComponentLogger(common.ComponentStore, cfg.Logging))

	// One resolver over per-network RPC readers
	readers := make(map[string]resolver.ContractReader, len(cfg.Networks))
	chainIDs := make(map[string]string, len(cfg.Networks))
	networkNames := make([]string, 0, len(cfg.Networks))

	type networkRuntime struct {
		cfg        config.NetworkConfig
		client     *rpc.Client
		downloader *downloader.Downloader
	}
	runtimes := make([]*networkRuntime, 0, len(cfg.Networks))

	for _, network := range cfg.Networks {
		log.Infof("Connecting to %s (%s)", network.Name, network.RPCURL)
		client, err := rpc.NewClient(ctx, network.RPCURL, cfg.Retry)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", network.Name, err)
		}
		defer client.Close()

		readers[network.Name] = client
		chainIDs[network.Name] = strconv.FormatUint(network.ChainID, 10)
		networkNames = append(networkNames, network.Name)
		runtimes = append(runtimes, &networkRuntime{cfg: network, client: client})
	}

	res := resolver.NewResolver(
		readers,
		registry,
		cfg.Resolver.CallTimeout.Duration,
		logger.NewComponentLogger(common.ComponentResolver, cfg.Logging),
	)
	decoder := events.NewDecoder(registry, chainIDs)
	proj := projector.New(
		projectionStore,
		res,
		logger.NewComponentLogger(common.ComponentProjector, cfg.Logging),
	)

	// Per-network download pipelines
	for _, rt := range runtimes {
		network := rt.cfg

		if err := downloadermig.RunMigrations(network.DB.Path); err != nil {
			return fmt.Errorf("failed to run downloader migrations for %s: %w", network.Name, err)
		}
		checkpointDB, err := db.NewSQLiteDBFromConfig(network.DB)
		if err != nil {
			return fmt.Errorf("failed to open checkpoint database for %s: %w", network.Name, err)
		}
		defer checkpointDB.Close()

		finality, err := types.ParseBlockFinality(network.Finality)
		if err != nil {
			return fmt.Errorf("invalid finality for %s: %w", network.Name, err)
		}

		govIndexer := indexer.New(
			network.Name,
			network.StartBlock,
			registry,
			decoder,
			proj,
			projectionStore,
			logger.NewComponentLogger(common.ComponentProjector, cfg.Logging),
		)

		eventsToIndex, err := govIndexer.EventsToIndex()
		if err != nil {
			return fmt.Errorf("failed to build event filter for %s: %w", network.Name, err)
		}

		addresses := make([]ethcommon.Address, 0, len(eventsToIndex))
		topicSet := make(map[ethcommon.Hash]struct{})
		for address, topics := range eventsToIndex {
			addresses = append(addresses, address)
			for topic := range topics {
				topicSet[topic] = struct{}{}
			}
		}
		topics := make([]ethcommon.Hash, 0, len(topicSet))
		for topic := range topicSet {
			topics = append(topics, topic)
		}

		detector := reorg.NewDetector(
			checkpointDB,
			rt.client,
			network.Name,
			finality,
			network.FinalizedLag,
			logger.NewComponentLogger(common.ComponentReorgDetector, cfg.Logging),
		)

		fetcher := downloader.NewLogFetcher(
			downloader.LogFetcherConfig{
				ChunkSize:    network.ChunkSize,
				Finality:     finality,
				FinalizedLag: network.FinalizedLag,
				Addresses:    addresses,
				Topics:       [][]ethcommon.Hash{topics},
			},
			rt.client,
			detector,
			logger.NewComponentLogger(common.ComponentDownloader, cfg.Logging),
		)

		syncManager := downloader.NewSyncManager(
			checkpointDB,
			network.Name,
			logger.NewComponentLogger(common.ComponentSyncManager, cfg.Logging),
		)

		dl, err := downloader.New(
			network.Name,
			fetcher,
			syncManager,
			govIndexer,
			logger.NewComponentLogger(common.ComponentDownloader, cfg.Logging),
		)
		if err != nil {
			return fmt.Errorf("failed to create downloader for %s: %w", network.Name, err)
		}
		rt.downloader = dl
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, logger.NewComponentLogger("metrics", cfg.Logging))
		if err := metricsServer.Start(groupCtx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
	}

	if cfg.API != nil && cfg.API.Enabled {
		chatSvc := chat.NewService(
			projectionStore,
			networkNames,
			logger.NewComponentLogger(common.ComponentChat, cfg.Logging),
		)
		apiServer := api.NewServer(
			cfg.API,
			projectionStore,
			chatSvc,
			logger.NewComponentLogger(common.ComponentAPI, cfg.Logging),
		)
		group.Go(func() error {
			return apiServer.Start(groupCtx)
		})
	}

	for _, rt := range runtimes {
		dl := rt.downloader
		group.Go(func() error {
			defer dl.Close()
			return dl.Download(groupCtx)
		})
	}

	log.Infof("willwe-indexer v%s started, indexing %d network(s)", version, len(runtimes))

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("indexer failed: %w", err)
	}

	log.Info("willwe-indexer stopped")
	return nil
}
