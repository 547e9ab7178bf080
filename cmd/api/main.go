package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/redisbus"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/tracing"
)

// storage repositorios del driver elegido (postgres o memoria).
type storage struct {
	txRunner   inventory.TxRunner
	lines      repository.InventoryLineRepository
	ledger     repository.LedgerRepository
	sales      repository.SaleRepository
	alerts     repository.AlertRepository
	catalog    repository.CatalogRepository
	warehouses repository.WarehouseRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer store.close()
	if cfg.App.StoreDriver == "memory" && cfg.App.MemorySeedFile == "" {
		log.Warn().Msg("driver en memoria sin MEMORY_SEED_FILE: catálogo vacío, las ventas responderán 404")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics := metrics.NewPrometheus(registry)

	// Notificación de alertas: Kafka si hay brokers
	var notifier inventory.AlertNotifier = inventory.NoopNotifier{}
	if cfg.Kafka.Enabled() {
		kn, err := kafka.NewAlertNotifier(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic, *log.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Kafka")
		}
		defer kn.Close()
		notifier = kn
	}

	// Difusión de cambios de stock: Redis si hay dirección
	var broadcaster inventory.StockBroadcaster = inventory.NoopBroadcaster{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		broadcaster = redisbus.NewStockBroadcaster(rdb, cfg.Redis.StockChannel)
	}

	display := inventory.NewDisplayStockSync(store.lines, store.catalog, log.Zerolog())
	monitor := inventory.NewLowStockMonitor(inventory.MonitorDeps{
		Lines:    store.lines,
		Alerts:   store.alerts,
		Notifier: notifier,
		Logger:   log.Zerolog(),
		Metrics:  promMetrics,
	})
	settings := inventory.DefaultSettings()
	settings.DefaultLowStockThreshold = cfg.Inventory.DefaultLowStockThreshold
	settings.TaxRate = cfg.Inventory.TaxRate
	settings.HookRetries = cfg.Inventory.HookRetries

	stockSvc := inventory.NewStockTransactionService(inventory.ServiceDeps{
		TxRunner: store.txRunner,
		Lines:    store.lines,
		Ledger:   store.ledger,
		Settings: settings,
		Logger:   log.Zerolog(),
		Metrics:  promMetrics,
		Hooks:    []inventory.PostCommitHook{display, monitor, inventory.NewStockBroadcastHook(broadcaster)},
	})
	saleCoordinator := inventory.NewSaleCoordinator(stockSvc, store.catalog, store.warehouses, store.sales)
	sweeper := inventory.NewSweeper(monitor, cfg.Inventory.SweepInterval, log.Zerolog())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Stock:     stockSvc,
		Sales:     saleCoordinator,
		Monitor:   monitor,
		Display:   display,
		JWTSecret: cfg.JWT.Secret,
		Gatherer:  registry,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("apagado del servidor")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("cierre de trazas")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("servidor HTTP finalizado")
	}
	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.App.StoreDriver == "memory" {
		mem := memory.New(memory.WithLockTimeout(cfg.Inventory.LockTimeout))
		if cfg.App.MemorySeedFile != "" {
			seed, err := config.LoadCatalogSeed(cfg.App.MemorySeedFile)
			if err != nil {
				return nil, err
			}
			if err := seedMemory(mem, seed); err != nil {
				return nil, err
			}
		}
		return &storage{
			txRunner:   mem,
			lines:      mem.Lines(),
			ledger:     mem.Ledger(),
			sales:      mem.Sales(),
			alerts:     mem.Alerts(),
			catalog:    mem.Catalog(),
			warehouses: mem.Warehouses(),
			close:      func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &storage{
		txRunner:   postgres.NewTxRunner(pool, cfg.Inventory.LockTimeout),
		lines:      postgres.NewInventoryLineRepository(pool),
		ledger:     postgres.NewLedgerRepository(pool),
		sales:      postgres.NewSaleRepository(pool),
		alerts:     postgres.NewAlertRepository(pool),
		catalog:    postgres.NewCatalogRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		close:      pool.Close,
	}, nil
}

func seedMemory(mem *memory.Store, seed *config.CatalogSeed) error {
	warehouses := make([]entity.Warehouse, 0, len(seed.Warehouses))
	for _, w := range seed.Warehouses {
		warehouses = append(warehouses, entity.Warehouse{ID: w.ID, Name: w.Name, Address: w.Address})
	}
	products := make([]entity.Product, 0, len(seed.Products))
	for _, p := range seed.Products {
		products = append(products, entity.Product{ID: p.ID, Name: p.Name})
	}
	variants := make([]entity.Variant, 0, len(seed.Variants))
	for _, v := range seed.Variants {
		variants = append(variants, entity.Variant{ID: v.ID, ProductID: v.ProductID, Name: v.Name})
	}
	return mem.Seed(warehouses, products, variants)
}
