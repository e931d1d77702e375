// Command expense-tracker is a small front end over the expense store:
// it lists, adds and summarizes expenses in the local database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	recorder, registry := cli.SetupMetrics(cfg)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	manager := cli.InitStorage(cfg, logger, recorder)
	caches := cache.NewManager(logger)
	store := cli.InitStore(cfg, manager, logger, recorder, caches)

	store.InitializeApp(ctx)
	if msg := store.GetState().Error; msg != "" {
		logger.Warn("Running without the database", log.FieldError, msg)
	}

	a := &app{store: store, engine: manager, gatherer: registry, out: os.Stdout}
	err := a.run(ctx, flag.Args())

	store.Close()
	caches.Stop()
	if cerr := storage.ResetInstance(); cerr != nil {
		logger.Warn("Closing database failed", log.FieldError, cerr)
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: expense-tracker <command> [flags]

Commands:
  list        list expenses (-category, -search, -min, -max, -from, -to)
  add         add an expense (-amount, -vendor, -category, -currency, -date, -description, -notes, -tags, -payment)
  categories  show the category tree
  vendors     show popular vendors, or suggestions for [query]
  summary     total and per-category breakdown of the listed expenses
  health      check the database
  stats       storage operation counters for this run

Configuration is read from the environment, a .env file and the optional
YAML file named by EXPENSE_CONFIG_FILE.
`)
}
