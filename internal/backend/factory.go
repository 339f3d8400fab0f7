package backend

import (
	"context"
	"fmt"

	"costoflife/internal/amqp"
	"costoflife/internal/cache"
	"costoflife/internal/core"
	"costoflife/internal/ledger"
	"costoflife/internal/ledger/memory"
	"costoflife/internal/log"
	"costoflife/internal/parser"
	"costoflife/internal/services"
	"costoflife/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *log.Logger
	builder parser.Builder
}

// NewFactory creates a new backend factory. A zero builder parses against
// the wall clock.
func NewFactory(logger *log.Logger, builder parser.Builder) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(log.ComponentBackend),
		builder: builder,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional; without it the worker's pending sweep does the export.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", log.FieldError, err)
		} else {
			publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result := f.assemble(repo, publisher, config)
	result.Repo = repo
	result.Transactions.CloseWith(repo)
	if publisher != nil {
		result.Transactions.CloseWith(amqpClient)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	if config.JournalPath != "" {
		var err error
		store, err = memory.NewFromFile(config.JournalPath, f.builder)
		if err != nil {
			return nil, fmt.Errorf("failed to load journal: %w", err)
		}
	}

	result := f.assemble(store, nil, config)
	if config.JournalPath != "" {
		result.Transactions.OnWrite(func() error {
			return store.Save(config.JournalPath)
		})
	}

	f.logger.Info("Initialized memory backend",
		"journal", config.JournalPath,
		log.FieldCount, store.Len())
	return result, nil
}

// assemble builds the services shared by every backend over store.
func (f *DefaultFactory) assemble(store ledger.Store, publisher services.Publisher, config Config) *BackendResult {
	txs := services.NewTransactionService(store, publisher, f.builder, f.logger)

	var results *cache.LRUCache[core.Result]
	manager := cache.NewManager(f.logger)
	if config.CacheTTL > 0 {
		size := config.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		results = cache.NewLRUCache[core.Result](size, config.CacheTTL)
		manager.Register(results)
		manager.StartCleanup(config.CacheTTL)
	}
	reports := services.NewReportService(store, results, config.EvalWorkers, f.logger)

	return &BackendResult{
		Transactions: txs,
		Reports:      reports,
		Cleanup: func() error {
			manager.Stop()
			return txs.Close()
		},
	}
}
