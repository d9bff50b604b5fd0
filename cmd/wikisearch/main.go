// Command wikisearch evaluates a boolean keyword query against the posting
// store and prints the ranked matches, one "<url> (<score>)" per line.
//
// Usage:
//
//	wikisearch [-config file] [-desc] [-limit n] java AND coffee MINUS island
//	wikisearch -demo
//	wikisearch -init-schema
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/resultset"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "wikisearch: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("wikisearch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	desc := fs.Bool("desc", false, "print the most relevant match first")
	limit := fs.Int("limit", 0, "maximum number of matches to print (0 for all)")
	demo := fs.Bool("demo", false, "run the built-in TEST1/TEST2 walkthrough")
	initSchema := fs.Bool("init-schema", false, "create the postgres term_counts table, then run the query if one is given")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(logger.New(stderr, cfg.Logging.Level, cfg.Logging.Format))

	if *demo {
		return runDemo(stdout)
	}

	query := strings.Join(fs.Args(), " ")
	if *initSchema {
		if err := createSchema(ctx, cfg); err != nil {
			return err
		}
		if strings.TrimSpace(query) == "" {
			return nil
		}
	}
	if strings.TrimSpace(query) == "" {
		fs.Usage()
		return errors.New("no query given")
	}

	postings, err := store.Open(ctx, cfg, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer postings.Close()

	order := executor.OrderAsc
	if *desc {
		order = executor.OrderDesc
	}
	plan := parser.Parse(query)
	res, err := executor.New(postings, cfg.Search.MaxConcurrentLookups).Execute(ctx, plan, *limit, order)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Query: %s\n", plan.String())
	return presenter.Render(stdout, res.Results)
}

func createSchema(ctx context.Context, cfg *config.Config) error {
	if cfg.Store.Backend != config.BackendPostgres {
		return fmt.Errorf("-init-schema needs the %s backend, configured backend is %q", config.BackendPostgres, cfg.Store.Backend)
	}
	client, err := postgres.New(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer client.Close()
	if err := store.InitSchema(ctx, client); err != nil {
		return err
	}
	slog.Info("posting schema ready", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	return nil
}

// runDemo evaluates two fixed postings lists and their AND, OR and MINUS
// combinations.
func runDemo(w io.Writer) error {
	test1 := resultset.New(map[string]int{"Page1": 1, "Page2": 2, "Page3": 3})
	test2 := resultset.New(map[string]int{"Page2": 4, "Page3": 5, "Page4": 7})

	steps := []struct {
		label string
		rs    *resultset.ResultSet
	}{
		{"TEST 1 (Page1:1, Page2:2, Page3:3)", test1},
		{"TEST 2 (Page2:4, Page3:5, Page4:7)", test2},
		{"TEST 1 AND TEST 2", test1.And(test2)},
		{"TEST 1 OR TEST 2", test1.Or(test2)},
		{"TEST 1 MINUS TEST 2", test1.Minus(test2)},
	}
	for _, s := range steps {
		if _, err := fmt.Fprintf(w, "\nQuery: %s\n", s.label); err != nil {
			return err
		}
		if err := presenter.RenderSet(w, s.rs); err != nil {
			return err
		}
	}
	return nil
}
