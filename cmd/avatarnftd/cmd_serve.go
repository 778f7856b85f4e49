package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/vitwit/avatarnft"
	"github.com/vitwit/avatarnft/clients"
	"github.com/vitwit/avatarnft/logger"
	"github.com/vitwit/avatarnft/metrics"
	"github.com/vitwit/avatarnft/server"
	"github.com/vitwit/avatarnft/store"
	"github.com/vitwit/avatarnft/types"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Run the issuance engine and its HTTP API",
	Args:  cobra.NoArgs,
	Run:   serve,
}

var flagServe struct {
	Dev bool
}

func init() {
	cmdMain.AddCommand(cmdServe)
	cmdServe.Flags().BoolVar(&flagServe.Dev, "dev", false, "Use in-memory price feeds and tokens instead of the configured chain")
}

func serve(cmd *cobra.Command, _ []string) {
	config, err := loadConfig(flagMain.ConfigFile)
	checkf(err, "load config")

	log, err := logger.NewZapLogger(config.LogLevel)
	checkf(err, "create logger")
	defer log.Sync()

	db, err := store.Open(config.Store)
	checkf(err, "open %s store", config.Store.Driver)

	var caps avatarnft.Capabilities
	if flagServe.Dev {
		caps = devCapabilities(config)
		log.Warn("running with in-memory price feeds and tokens", nil)
	} else {
		client, err := clients.NewEVMClient(config.Chain)
		checkf(err, "connect to %s", config.Chain.RPCUrl)
		defer client.Close()
		caps = avatarnft.Capabilities{Feeds: client, Tokens: client, Native: client}
	}

	opts := []avatarnft.Option{
		avatarnft.WithLogger(log),
		avatarnft.WithStore(db),
		avatarnft.WithTimeout(config.DefaultTimeout),
	}
	var gatherer prometheus.Gatherer
	if config.EnableMetrics {
		reg := prometheus.NewRegistry()
		opts = append(opts, avatarnft.WithMetrics(metrics.NewPrometheusRecorder(reg)))
		gatherer = reg
	}

	engine, err := avatarnft.New(config, caps, opts...)
	check(err)
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	check(server.New(engine, log, gatherer).ListenAndServe(ctx, config.Listen))
}

// devCapabilities prices the native currency and every configured token at
// 2000 with 8 decimals, so one token unit is worth one native unit. Nothing
// funds the in-memory ledgers, so native and token mints are rejected.
func devCapabilities(config *types.Config) avatarnft.Capabilities {
	feeds := clients.NewMockAggregator()
	price := big.NewInt(2000_00000000)
	if config.NativeOracle != "" {
		feeds.SetPrice(common.HexToAddress(config.NativeOracle), price, 8)
	}
	for _, entry := range config.TokenEntries() {
		feeds.SetPrice(entry.Oracle, price, 8)
	}
	return avatarnft.Capabilities{
		Feeds:  feeds,
		Tokens: clients.NewMemoryTokens(config.FeeRecipientAddress()),
		Native: clients.NewMemoryNative(),
	}
}
