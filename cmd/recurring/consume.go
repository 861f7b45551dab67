package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"moneta/internal/app"
	"moneta/internal/config"
	"moneta/internal/events"
	"moneta/internal/logger"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Write transaction-due events from AMQP to the ledger",
	RunE:  runConsume,
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}

func runConsume(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required to consume events")
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Named("consumer")
	transactions := application.Services.Transactions
	err = application.AMQP.Consume(ctx, func(ctx context.Context, evt events.TransactionDue) error {
		tx, err := transactions.CreateFromDue(ctx, evt)
		if err != nil {
			return err
		}
		log.Infow("Recorded recurring transaction",
			"transaction_id", tx.ID,
			"recurring_transaction_id", evt.RecurringTransactionID,
			"workspace_id", evt.WorkspaceID,
			"date", evt.Date,
		)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
