package main

import (
	"context"
	"fmt"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/memory"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// stores is the storage backend selected by ledger.backend
type stores struct {
	scope        appledger.TransactionScope
	quantities   ledger.QuantityReader
	balances     ledger.BalanceReader
	journal      ledger.JournalReader
	transactions ledger.TransactionReader
	levels       ledger.StockLevelReader
	products     catalog.ProductRepository
	warehouses   partner.WarehouseRepository
	parties      partner.PartyRepository
	accounts     finance.AccountRepository

	ping  func(ctx context.Context) error
	close func()
}

func openStores(cfg *config.Config, meter metric.Meter, log *zap.Logger) (*stores, error) {
	if cfg.Ledger.Backend == config.BackendMemory {
		mode := memory.ReadModeCache
		if cfg.Ledger.DeriveOnRead {
			mode = memory.ReadModeDerive
		}
		store := memory.NewStore(mode)
		log.Warn("Using the in-memory ledger backend; committed state is lost on restart")
		return &stores{
			scope:        store,
			quantities:   store,
			balances:     store,
			journal:      store,
			transactions: store,
			levels:       store,
			products:     store,
			warehouses:   store,
			parties:      store,
			accounts:     store,
			ping:         func(context.Context) error { return nil },
			close:        func() {},
		}, nil
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}

	if err := migrateSchema(cfg, db, log); err != nil {
		closeDB()
		return nil, err
	}

	instrumentation, err := telemetry.InstrumentDB(db.DB, telemetry.DBConfig{
		Tracing:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		DBName:             cfg.Database.DBName,
	}, meter, log)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("failed to instrument database: %w", err)
	}

	log.Info("Database connected",
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("derive_on_read", cfg.Ledger.DeriveOnRead),
	)

	repos := persistence.NewRepositories(db.DB, cfg.Ledger.DeriveOnRead)
	return &stores{
		scope:        repos.Scope,
		quantities:   repos.Quantities,
		balances:     repos.Balances,
		journal:      repos.Journal,
		transactions: repos.Transactions,
		levels:       repos.Quantities,
		products:     repos.Products,
		warehouses:   repos.Warehouses,
		parties:      repos.Parties,
		accounts:     repos.Accounts,
		ping:         func(context.Context) error { return db.Ping() },
		close: func() {
			if err := instrumentation.Stop(); err != nil {
				log.Warn("Failed to stop database instrumentation", zap.Error(err))
			}
			closeDB()
		},
	}, nil
}

// migrateSchema applies the versioned migrations on postgres. sqlite has no
// migration history and is created from the models.
func migrateSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver == config.DriverSQLite {
		return db.AutoMigrate()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	m, err := migration.NewEmbedded(sqlDB, log)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// closing the migrator would close the shared sql.DB
	if err := m.Up(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
