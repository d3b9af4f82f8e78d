package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/redhat-data-and-ai/favourites/internal/controller"
	"github.com/redhat-data-and-ai/favourites/internal/httpapi/handlers"
	"github.com/redhat-data-and-ai/favourites/internal/httpapi/server"
	"github.com/redhat-data-and-ai/favourites/pkg/cache"
	"github.com/redhat-data-and-ai/favourites/pkg/clients/entityservice"
	"github.com/redhat-data-and-ai/favourites/pkg/config"
	"github.com/redhat-data-and-ai/favourites/pkg/events"
	"github.com/redhat-data-and-ai/favourites/pkg/events/rabbitmq"
	"github.com/redhat-data-and-ai/favourites/pkg/favourites"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/redhat-data-and-ai/favourites/pkg/persistence/badgerstore"
	"github.com/redhat-data-and-ai/favourites/pkg/persistence/postgres"
	"github.com/redhat-data-and-ai/favourites/pkg/sharedentity"
	"github.com/redhat-data-and-ai/favourites/pkg/store"
	"github.com/redhat-data-and-ai/favourites/pkg/telemetry"
)

// App holds the wired components of a favourites node
type App struct {
	Config    *config.AppConfig
	Cache     cache.Cache
	Store     *store.Store
	Accessors *sharedentity.Registry
	Manager   *favourites.DefaultManager
	Bus       *events.Bus
	Publisher events.Publisher
	Server    *server.APIServer
	Jobs      *controller.PeriodicTasksController

	backend     favourites.Store
	db          *sql.DB
	broadcaster *rabbitmq.Broadcaster
	closers     []func() error
}

// New builds every component described by cfg. On error the components
// created so far are closed
func New(ctx context.Context, cfg *config.AppConfig) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if err := a.initTelemetry(ctx); err != nil {
		return nil, err
	}
	if err := a.initBackend(ctx); err != nil {
		return nil, err
	}

	c, err := cache.New(&cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	a.Cache = c
	if closer, ok := c.(io.Closer); ok {
		a.closers = append(a.closers, closer.Close)
	}
	if sized, ok := c.(interface{ ItemCount() int }); ok {
		if err := telemetry.InitCacheSizeGauge(telemetry.GetMeter(cfg.App.Name), sized.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to initialize cache size gauge: %w", err)
		}
	}

	var opts []store.Option
	if cfg.Favourites.CacheTTL > 0 {
		opts = append(opts, store.WithTTL(cfg.Favourites.CacheTTL))
	}
	a.Store = store.New(c, a.backend, opts...)

	if err := a.initAccessors(ctx); err != nil {
		return nil, err
	}
	if err := a.initEvents(); err != nil {
		return nil, err
	}

	a.Manager = favourites.NewDefaultManager(a.Store.Favourites, a.Accessors, a.Accessors)
	a.Server = server.NewAPIServer(cfg, handlers.NewHandlers(cfg, a.Manager, a.Accessors, a.Publisher))

	lister, _ := a.backend.(favourites.PartitionLister)
	if cfg.Jobs.Compaction.Enabled && cfg.Entities.Source == config.EntitySourceMemory && cfg.PersistentFavourites() {
		// the memory source starts from the seed on every boot, compacting
		// durable favourites against it would drop entities it never knew
		logger.Logger(ctx).Warn("favourites compaction disabled: the memory entity source does not outlive the process")
		lister = nil
	}
	a.Jobs = controller.NewPeriodicTasksController(cfg.Jobs, lister, a.Manager)

	logger.Logger(ctx).WithFields(logrus.Fields{
		"backend":   cfg.Favourites.Backend,
		"cache":     cfg.Cache.Driver,
		"entities":  cfg.Entities.Source,
		"broadcast": cfg.Broadcast.Driver,
	}).Info("favourites service initialized")
	return a, nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	tcfg := a.Config.Telemetry
	if tcfg.ServiceName == "" {
		tcfg.ServiceName = a.Config.App.Name
	}
	if tcfg.ServiceVersion == "" {
		tcfg.ServiceVersion = a.Config.App.Version
	}
	if err := telemetry.Init(ctx, tcfg); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error { return telemetry.Shutdown(context.Background()) })

	if err := telemetry.InitFavouritesMetrics(telemetry.GetMeter(a.Config.App.Name)); err != nil {
		return fmt.Errorf("failed to initialize favourites metrics: %w", err)
	}
	return nil
}

func (a *App) initBackend(ctx context.Context) error {
	switch a.Config.Favourites.Backend {
	case config.BackendPostgres:
		db, err := a.postgresDB(ctx)
		if err != nil {
			return err
		}
		a.backend = postgres.NewStore(db)
	default:
		s, err := badgerstore.Open(a.Config.Favourites.Badger)
		if err != nil {
			return fmt.Errorf("failed to open favourites database: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		a.backend = s
	}
	return nil
}

// postgresDB opens and migrates the database once, it is shared by the
// favourites backend and the postgres entity source
func (a *App) postgresDB(ctx context.Context) (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := postgres.Open(ctx, a.Config.Favourites.Postgres)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *App) initAccessors(ctx context.Context) error {
	a.Accessors = sharedentity.NewRegistry()

	var remote *entityservice.Client
	for _, name := range a.Config.Entities.Types {
		entityType := favourites.EntityType(name)

		switch a.Config.Entities.Source {
		case config.EntitySourcePostgres:
			db, err := a.postgresDB(ctx)
			if err != nil {
				return err
			}
			a.Accessors.Register(entityType, postgres.NewEntityAccessor(db, entityType))
		case config.EntitySourceRemote:
			if remote == nil {
				client, err := entityservice.NewClient(a.Config.Entities.Remote)
				if err != nil {
					return fmt.Errorf("failed to create entity service client: %w", err)
				}
				remote = client
			}
			a.Accessors.Register(entityType, remote.Accessor(entityType))
		default:
			a.Accessors.Register(entityType, a.seededAccessor(ctx, entityType))
		}
	}
	return nil
}

func (a *App) seededAccessor(ctx context.Context, entityType favourites.EntityType) *sharedentity.MemoryAccessor {
	accessor := sharedentity.NewMemoryAccessor(entityType)
	seeded := 0
	for _, seed := range a.Config.Entities.Seed {
		if favourites.EntityType(seed.Type) != entityType {
			continue
		}
		accessor.Put(favourites.SharedEntity{
			Identifier: favourites.Identifier{ID: seed.ID, OwnerKey: seed.Owner},
			Name:       seed.Name,
		}, seed.Public, seed.Grantees...)
		seeded++
	}
	logger.Logger(ctx).WithFields(logrus.Fields{
		"entityType": entityType.String(),
		"entities":   seeded,
	}).Info("memory entity source seeded")
	return accessor
}

func (a *App) initEvents() error {
	a.Bus = events.NewBus()
	a.Bus.Subscribe(a.Store.Favourites)

	if a.Config.Broadcast.Driver != config.BroadcastRabbitMQ {
		a.Publisher = a.Bus
		return nil
	}

	rabbitCfg := a.Config.Broadcast.RabbitMQ
	b, err := rabbitmq.Dial(rabbitCfg, a.Bus)
	if err != nil {
		return fmt.Errorf("failed to connect clear cache broadcaster: %w", err)
	}
	a.closers = append(a.closers, b.Close)
	a.broadcaster = b
	a.Publisher = b
	return nil
}

// Run serves the API, the periodic jobs and the broadcast consumer until ctx
// is cancelled or one of them fails
func (a *App) Run(ctx context.Context) error {
	if a.broadcaster != nil {
		if err := a.broadcaster.Start(ctx); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Server.Start(ctx) })
	g.Go(func() error { return a.Jobs.Start(ctx) })
	return g.Wait()
}

// Close releases the components in reverse creation order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
