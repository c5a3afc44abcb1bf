// Command nearindexerevents is the thin process entrypoint: parse flags,
// load configuration, wire the core's collaborators, and drive the block
// loop. Everything behavioral lives in the indexer/ packages; this file is
// deliberately free of pipeline logic, leaving all real work to internal
// packages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli"

	"github.com/near/near-indexer-events/config"
	"github.com/near/near-indexer-events/indexer/builder"
	"github.com/near/near-indexer-events/indexer/cache"
	"github.com/near/near-indexer-events/indexer/legacy"
	"github.com/near/near-indexer-events/indexer/oracle"
	"github.com/near/near-indexer-events/indexer/pipeline"
	"github.com/near/near-indexer-events/indexer/reconcile"
	"github.com/near/near-indexer-events/indexer/types"
	"github.com/near/near-indexer-events/internal/nearrpc"
	"github.com/near/near-indexer-events/log"
	"github.com/near/near-indexer-events/sink"
	"github.com/near/near-indexer-events/sink/kafkasink"
)

var logger = log.NewModuleLogger("main")

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the TOML configuration file",
	}
	rpcEndpointFlag = cli.StringFlag{
		Name:  "rpc-endpoint",
		Usage: "NEAR JSON-RPC endpoint used by the balance oracle",
		Value: "https://rpc.mainnet.near.org",
	}
	devFlag = cli.BoolFlag{
		Name:  "dev",
		Usage: "use human-readable, colorized logging instead of JSON",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "nearindexerevents"
	app.Usage = "reconstructs FT/NFT balance-change events from a NEAR block stream"
	app.Flags = []cli.Flag{configFlag, rpcEndpointFlag, devFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logger.Crit("fatal error", "err", err)
	}
}

func run(c *cli.Context) error {
	if c.Bool(devFlag.Name) {
		log.SetDevelopment()
	}

	cfg := config.Default()
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	balances, err := cache.NewBalanceCache(cfg.BalanceCacheCapacity)
	if err != nil {
		return err
	}

	db, err := sink.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	initialInconsistent, err := db.LoadInconsistentContractsAsOf(ctx, cfg.StartBlockHeight)
	if err != nil {
		return err
	}
	inconsistent := cache.NewInconsistentSet(initialInconsistent)

	rpcClient := nearrpc.New(c.String(rpcEndpointFlag.Name))
	oracleClient := oracle.NewClient(rpcClient, balances, cfg.OracleConfig())

	var publisher *kafkasink.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = kafkasink.Open(kafkasink.Config{Brokers: cfg.KafkaBrokers, TopicPrefix: "near-indexer-events"})
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	eventBuilder := builder.NewBuilder(oracleClient, balances, inconsistent)
	legacyRegistry := legacy.NewRegistry()
	reconciler := reconcile.New(db, oracleClient, inconsistent, cfg.ReconcileConfig())
	if publisher != nil {
		reconciler.SetPublisher(publisher)
	}
	p := pipeline.New(eventBuilder, legacyRegistry, oracleClient, balances, inconsistent, reconciler)

	logger.Info("starting", "chain", cfg.Chain, "start_block_height", cfg.StartBlockHeight)
	return runBlockLoop(ctx, p, cfg.StartBlockHeight)
}

// BlockSource is the stream-source collaborator external to the core:
// block ingestion from object storage is out of
// scope, so this interface is the seam a deployment plugs a concrete
// implementation into.
type BlockSource interface {
	NextBlock(ctx context.Context, afterHeight uint64) (types.BlockContext, error)
}

func runBlockLoop(ctx context.Context, p *pipeline.Pipeline, startHeight uint64) error {
	height := startHeight
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		block, err := fetchNextBlock(ctx, height)
		if err != nil {
			return fmt.Errorf("block stream: %w", err)
		}
		if err := p.ProcessBlock(ctx, block); err != nil {
			return fmt.Errorf("block %d: %w", block.Height, err)
		}
		height = block.Height + 1
	}
}

// fetchNextBlock is the wiring point for a concrete BlockSource. The core
// has no opinion on how blocks are fetched; a deployment supplies its own
// NEAR Lake Framework or equivalent source.
func fetchNextBlock(ctx context.Context, afterHeight uint64) (types.BlockContext, error) {
	return types.BlockContext{}, fmt.Errorf("no block source configured past height %d", afterHeight)
}
