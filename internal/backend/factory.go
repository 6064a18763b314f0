package backend

import (
	"context"
	"fmt"

	"kakeibo/internal/amqp"
	"kakeibo/internal/config"
	"kakeibo/internal/docstore"
	docmem "kakeibo/internal/docstore/memory"
	"kakeibo/internal/docstore/webdav"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/sheets"
	gsheet "kakeibo/internal/sheets/google"
	"kakeibo/internal/sheets/memory"
	"kakeibo/internal/storage"
	"kakeibo/internal/workbook"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

type composite struct {
	sheets.EntryAppender
	sheets.OptionsReader
}

func (c composite) Preflight(ctx context.Context) error {
	if p, ok := c.EntryAppender.(sheets.Preflighter); ok {
		return p.Preflight(ctx)
	}
	return nil
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		appender sheets.EntryAppender
		target   string
		err      error
	)
	switch config.Type {
	case WebDAVBackend:
		appender, target = f.createWebDAVAppender(config)
	case SheetsBackend:
		appender, target, err = f.createSheetsAppender(ctx, config)
	case MemoryBackend:
		appender, target, err = f.createMemoryAppender(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	opts := []services.Option{services.WithLogger(f.logger)}

	var journal *storage.SQLiteRepository
	if config.SubmissionLogPath != "" {
		journal, err = storage.NewSQLiteRepository(config.SubmissionLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize submission journal: %w", err)
		}
		opts = append(opts, services.WithJournal(journal))
		f.logger.Info("Initialized submission journal", "db_path", config.SubmissionLogPath)
	}

	// Initialize AMQP client (optional)
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
		}
	}

	submissions := services.NewSubmissionService(appender, config.Type.String(), target, opts...)
	options := memory.NewFromFiles(config.DataDirectory, config.StoreOptions, config.PaymentMethodOptions)

	return &BackendResult{
		Backend: composite{EntryAppender: submissions, OptionsReader: options},
		Journal: journal,
		Target:  target,
		Cleanup: submissions.Close,
	}, nil
}

func (f *DefaultFactory) createWebDAVAppender(cfg Config) (sheets.EntryAppender, string) {
	svc := services.NewAppendService(cfg.Connection, webdav.Open, f.logger)
	conn := cfg.Connection()
	if missing := conn.Missing(); len(missing) > 0 {
		f.logger.Warn("WebDAV configuration incomplete, appends will fail until it is set",
			log.FieldMissing, missing)
	}
	f.logger.Info("Initialized WebDAV backend", log.FieldDocumentPath, conn.Path)
	return svc, svc.Target()
}

func (f *DefaultFactory) createSheetsAppender(ctx context.Context, cfg Config) (sheets.EntryAppender, string, error) {
	cli, err := gsheet.NewFromConfig(ctx, &config.Config{
		GoogleSpreadsheetID:      cfg.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend")
	return cli, cli.Target(), nil
}

func (f *DefaultFactory) createMemoryAppender(cfg Config) (sheets.EntryAppender, string, error) {
	path := cfg.SpreadsheetPath
	if path == "" {
		path = DefaultMemoryPath
	}

	seed, err := workbook.New("", nil)
	if err != nil {
		return nil, "", fmt.Errorf("seed memory document: %w", err)
	}
	store := docmem.New()
	store.Put(path, seed)

	conn := config.Connection{URL: "memory://", Username: "memory", Password: "memory", Path: path}
	svc := services.NewAppendService(func() config.Connection { return conn }, docstore.Static(store), f.logger)

	f.logger.Info("Initialized memory backend", log.FieldDocumentPath, path)
	return svc, path, nil
}
