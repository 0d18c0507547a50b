// Command process-recurring runs a single engine pass against the configured
// store and exits. Useful for catch-up after downtime or cron deployments
// where the long-running daemon is not wanted.
package main

import (
	"context"
	"os"
	"time"

	"budgetd/internal/cli"
	"budgetd/internal/log"
	"budgetd/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.Setup(log.ComponentEngine)

	ctx := context.Background()

	st := cli.OpenStore(ctx, cfg, logger)
	defer st.Close()

	publisher := cli.SetupPublisher(cfg, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	engine := services.NewEngine(st, publisher)

	summary, err := engine.ProcessAll(ctx, time.Now())
	if err != nil {
		logger.Error("Engine pass failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Engine pass complete",
		"rules_processed", summary.RulesProcessed,
		"transactions_generated", summary.TransactionsGenerated,
		"rules_failed", summary.RulesFailed)
}
