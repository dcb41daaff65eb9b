// Package main is the entry point for gate-demo, a command line exerciser
// for the Gate SDK. It creates and inspects orders, lists products, issues
// raw Gateway calls, runs concurrent load and serves a webhook listener.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	gate "github.com/applax-dev/gate-sdk"
	"github.com/applax-dev/gate-sdk/apierr"
	"github.com/applax-dev/gate-sdk/internal/platform/config"
	"github.com/applax-dev/gate-sdk/internal/platform/logging"
	"github.com/applax-dev/gate-sdk/internal/platform/telemetry"
	"github.com/applax-dev/gate-sdk/metrics"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD)"
var (
	// Version is the demo binary version.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env first, so GATE_ variables reach the SDK and GATE_DEMO_ ones
	// reach the demo config.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to gate-demo.yaml")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "gate-demo",
		Version: gate.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Debug("gate-demo starting",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("sdk_version", gate.Version),
	)

	ctx := context.Background()

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      gate.Version,
		Environment:  "demo",
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	args := flag.Args()

	switch args[0] {
	case "order":
		return withClient(logger, func(client *gate.Client) error {
			return runOrder(ctx, client, logger, args[1:])
		})
	case "products":
		return withClient(logger, func(client *gate.Client) error {
			return runProducts(ctx, client, logger, args[1:])
		})
	case "raw":
		return withClient(logger, func(client *gate.Client) error {
			return runRaw(ctx, client, args[1:])
		})
	case "load":
		return withClient(logger, func(client *gate.Client) error {
			return runLoad(ctx, client, logger, args[1:])
		})
	case "listen":
		return runListen(ctx, cfg, logger)
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// withClient builds the SDK client from the GATE_ environment and hands it
// to the command. The listener does not need one, so construction is
// deferred to here rather than run().
func withClient(logger *slog.Logger, fn func(*gate.Client) error) error {
	cfg, err := gate.FromEnv()
	if err != nil {
		return fmt.Errorf("reading GATE_ environment: %w", err)
	}

	client, err := gate.NewFromConfig(cfg,
		gate.WithLogger(logger),
		gate.WithMetrics(metrics.NewPrometheusRecorder()),
		gate.WithCircuitBreaker(5, 30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	return fn(client)
}

// runOrder creates a demo order and reads it back, printing the resulting
// document with its checkout URL and payment methods.
func runOrder(ctx context.Context, client *gate.Client, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	amount := fs.String("amount", "10.50", "order amount")
	currency := fs.String("currency", "EUR", "ISO 4217 currency code")
	title := fs.String("title", "Demo line item", "product title")
	skipCapture := fs.Bool("skip-capture", false, "authorize without capturing")

	if err := fs.Parse(args); err != nil {
		return err
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("parsing amount: %w", err)
	}

	req := &gate.OrderRequest{
		Amount:      amt,
		Currency:    *currency,
		Number:      uuid.NewString(),
		Description: "gate-demo order",
		SkipCapture: *skipCapture,
		Products: []gate.ProductRequest{
			{Title: *title, Price: amt, Quantity: 1},
		},
	}

	order, err := client.Orders.Create(ctx, req)
	if err != nil {
		return describeError(err)
	}

	logger.Info("order created",
		slog.String("id", order.ID()),
		slog.String("number", order.Number()),
		slog.String("status", order.Status()),
	)

	// Read it back to show the full document.
	fetched, err := client.Orders.Get(ctx, order.ID())
	if err != nil {
		return describeError(err)
	}

	printObject(fetched.Object)

	if u := fetched.CheckoutURL(); u != "" {
		fmt.Printf("\ncheckout: %s\n", u)
	}

	for _, m := range fetched.PaymentMethods() {
		fmt.Printf("pay via %s: %s\n", m.Name(), m.URL())
	}

	return nil
}

// runProducts lists catalog products.
func runProducts(ctx context.Context, client *gate.Client, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "page size")

	if err := fs.Parse(args); err != nil {
		return err
	}

	query := url.Values{}
	if *limit > 0 {
		query.Set("page_size", strconv.Itoa(*limit))
	}

	page, err := client.Products.List(ctx, query)
	if err != nil {
		return describeError(err)
	}

	logger.Info("products listed", slog.Int64("count", page.Count()))

	for _, doc := range page.Results() {
		p := gate.Product{Object: doc}
		fmt.Printf("%-36s  %10s %-3s  %s\n", p.ID(), p.Price(), p.Currency(), p.Title())
	}

	if next := page.Next(); next != "" {
		fmt.Printf("\nnext page: %s\n", next)
	}

	return nil
}

// runRaw issues an arbitrary Gateway call: raw METHOD ENDPOINT [JSON].
func runRaw(ctx context.Context, client *gate.Client, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: gate-demo raw METHOD ENDPOINT [JSON]")
	}

	method, endpoint := args[0], args[1]

	var payload any
	if len(args) > 2 {
		if err := json.Unmarshal([]byte(args[2]), &payload); err != nil {
			return fmt.Errorf("parsing payload: %w", err)
		}
	}

	doc, err := client.Raw(ctx, method, endpoint, payload, nil)
	if err != nil {
		return describeError(err)
	}

	printObject(doc)

	return nil
}

// runLoad creates orders concurrently and reports the throughput. Worker
// failures are tallied, not fatal: a load run should survive sporadic
// Gateway errors.
func runLoad(ctx context.Context, client *gate.Client, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	total := fs.Int("n", 20, "orders to create")
	concurrency := fs.Int("c", 4, "concurrent workers")
	amount := fs.String("amount", "1.00", "amount per order")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *total < 1 || *concurrency < 1 {
		return errors.New("-n and -c must be positive")
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("parsing amount: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)

	var created, failed atomic.Int64

	start := time.Now()

	for range *total {
		g.Go(func() error {
			req := &gate.OrderRequest{
				Amount:   amt,
				Currency: "EUR",
				Number:   uuid.NewString(),
			}

			order, err := client.Orders.Create(gctx, req)
			if err != nil {
				failed.Add(1)
				logger.Warn("create failed", slog.Any("error", err))
				return nil
			}

			created.Add(1)
			logging.Trace(gctx, logger, "order created", slog.String("id", order.ID()))

			return nil
		})
	}

	_ = g.Wait()

	elapsed := time.Since(start)

	logger.Info("load finished",
		slog.Int64("created", created.Load()),
		slog.Int64("failed", failed.Load()),
		slog.Duration("elapsed", elapsed),
		slog.Float64("orders_per_sec", float64(created.Load())/elapsed.Seconds()),
	)

	return nil
}

// describeError unwraps the SDK taxonomy into a message that tells the
// operator what to do next.
func describeError(err error) error {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apierr.IsValidation(err):
		return fmt.Errorf("request rejected: %s", apiErr.Message)
	case apierr.IsAuthentication(err):
		return fmt.Errorf("authentication failed, check GATE_API_KEY: %s", apiErr.Message)
	case apierr.IsRateLimit(err):
		return fmt.Errorf("rate limited, retry in %s", apiErr.RetryDelay())
	case apierr.IsNetwork(err):
		return fmt.Errorf("network failure (%s): %s", apiErr.Network, apiErr.Message)
	default:
		return err
	}
}

// printObject pretty-prints a Gateway document to stdout.
func printObject(doc gate.Object) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", doc)
		return
	}

	fmt.Println(string(out))
}

func usage() {
	fmt.Fprint(flag.CommandLine.Output(), `gate-demo exercises the Gate SDK against a live or sandbox Gateway.

Usage:
  gate-demo [-config path] <command> [flags]

Commands:
  order     create a demo order and read it back
  products  list catalog products
  raw       issue an arbitrary Gateway call: raw METHOD ENDPOINT [JSON]
  load      create orders concurrently: load -n 50 -c 8
  listen    run the webhook listener

SDK settings come from GATE_ environment variables (a .env file is
honored): GATE_API_KEY, GATE_SANDBOX, GATE_TIMEOUT, GATE_MAX_RETRIES.
Demo settings come from the config file and GATE_DEMO_ variables.
`)
}
