// Package app wires configuration, storage, services and event delivery into
// one object shared by the binaries.
package app

import (
	"fmt"

	"gorm.io/gorm"

	"moneta/internal/config"
	"moneta/internal/database"
	"moneta/internal/events"
	"moneta/internal/logger"
	"moneta/internal/recurring"
	"moneta/internal/repository"
	"moneta/internal/server"
	"moneta/internal/services"
)

// App holds the assembled application.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Services  server.Services
	Publisher events.Publisher

	// AMQP is set when AMQP_URL is configured.
	AMQP *events.AMQPClient
}

// New connects to the database, applies migrations and builds every
// service. Due events go to AMQP when it is configured and straight to the
// ledger otherwise.
func New(cfg *config.Config) (*App, error) {
	dbConfig, err := database.NewConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	a := &App{Config: cfg, DB: dbManager.DB()}

	if cfg.AMQPURL != "" {
		client, err := events.NewAMQPClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		logger.Get().Infow("Publishing due events to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		a.AMQP = client
	}

	a.wire()
	return a, nil
}

// NewWithDB builds the services over an existing database and an
// in-process event bus.
func NewWithDB(cfg *config.Config, db *gorm.DB) *App {
	a := &App{Config: cfg, DB: db}
	a.wire()
	return a
}

func (a *App) wire() {
	db := a.DB
	accounts := services.NewAccountService(db)
	transactions := services.NewTransactionService(db, accounts)
	recurringRepo := repository.NewRecurringRepository(db)

	if a.AMQP != nil {
		a.Publisher = a.AMQP
	} else {
		bus := events.NewBus()
		services.SubscribeLedger(bus, transactions)
		a.Publisher = bus
	}

	opts := recurring.DefaultProcessOptions()
	opts.AutoPauseAtEnd = a.Config.RecurringAutoPauseAtEnd

	a.Services = server.Services{
		Users:        services.NewUserService(db),
		Workspaces:   services.NewWorkspaceService(db),
		Accounts:     accounts,
		Categories:   services.NewCategoryService(db),
		Transactions: transactions,
		Budgets:      services.NewBudgetService(db),
		Recurring:    services.NewRecurringService(db, recurringRepo),
		Processor: services.NewRecurringProcessor(recurringRepo, a.Publisher, services.ProcessorConfig{
			Concurrency: a.Config.RecurringConcurrency,
			Options:     opts,
		}),
		Audit: services.NewAuditService(db),
	}
}

// Close releases the AMQP connection and the database pool.
func (a *App) Close() {
	if a.AMQP != nil {
		_ = a.AMQP.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
