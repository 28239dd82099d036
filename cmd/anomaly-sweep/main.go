// anomaly-sweep raises NEGATIVE_INVENTORY anomalies for ledger rows below
// zero. Intended for a scheduled job; safe to rerun.
//
// Usage:
//
//	go run ./cmd/anomaly-sweep                  # every business with a negative row
//	go run ./cmd/anomaly-sweep -business-id <id>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	businessID := flag.String("business-id", "", "Optional: sweep only this business")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry(ctx)
	logger := config.GetLogger()

	var (
		results []workflow.SweepResult
		err     error
	)
	if id := strings.TrimSpace(*businessID); id != "" {
		var r workflow.SweepResult
		r, err = workflow.SweepNegativeInventory(ctx, logger, id)
		results = append(results, r)
	} else {
		results, err = workflow.SweepAllBusinesses(ctx, logger)
	}

	for _, r := range results {
		logger.WithFields(logrus.Fields{
			"field":       "anomaly-sweep",
			"business_id": r.BusinessId,
			"checked":     r.Checked,
			"raised":      r.Raised,
		}).Info("sweep finished")
	}
	if err != nil {
		config.LogError(logger, "anomaly-sweep", "main", "sweep", *businessID, err)
		os.Exit(1)
	}
}
