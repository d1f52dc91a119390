package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/sbilibin2017/gw-operation-ledger/internal/facades"
	"github.com/sbilibin2017/gw-operation-ledger/internal/handlers"
	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
	"github.com/sbilibin2017/gw-operation-ledger/internal/middlewares"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories/memory"
	"github.com/sbilibin2017/gw-operation-ledger/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

const (
	storagePostgres = "postgres"
	storageMemory   = "memory"
)

// config holds every setting read from the environment.
type config struct {
	appHost  string
	appPort  string
	logLevel string

	storageDriver string

	pgHost         string
	pgPort         int
	pgUser         string
	pgPassword     string
	pgDB           string
	pgMaxOpenConns int
	pgMaxIdleConns int

	redisHost         string
	redisPort         int
	redisDB           int
	redisPassword     string
	redisPoolSize     int
	redisMinIdleConns int
	redisExp          time.Duration

	kafkaBrokers        []string
	kafkaOperationTopic string
	kafkaUserLimitTopic string

	defaultCurrencyTag    string
	defaultCurrencySymbol string
	maxWalletsPerUser     int
	timezone              string
	pendingTTL            time.Duration
	reaperInterval        time.Duration
}

func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the
// application, storage, cache, messaging and ledger configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}
	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		v, err := getInt(key, defaultValue)
		return time.Duration(v) * time.Second, err
	}

	// Application config
	cfg.appHost = getEnv("APP_HOST", "localhost")
	cfg.appPort = getEnv("APP_PORT", "8080")
	cfg.logLevel = getEnv("APP_LOG_LEVEL", "info")

	cfg.storageDriver = getEnv("STORAGE_DRIVER", storagePostgres)
	if cfg.storageDriver != storagePostgres && cfg.storageDriver != storageMemory {
		err = fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.storageDriver)
		return
	}

	// PostgreSQL config
	cfg.pgHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.pgUser = getEnv("POSTGRES_USER", "user")
	cfg.pgPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.pgDB = getEnv("POSTGRES_DB", "database")
	if cfg.pgPort, err = getInt("POSTGRES_PORT", "5432"); err != nil {
		return
	}
	if cfg.pgMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", "16"); err != nil {
		return
	}
	if cfg.pgMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", "8"); err != nil {
		return
	}

	// Redis config, an empty host disables the reference cache
	cfg.redisHost = getEnv("REDIS_HOST", "localhost")
	if v, ok := os.LookupEnv("REDIS_HOST"); ok && v == "" {
		cfg.redisHost = ""
	}
	if cfg.redisPort, err = getInt("REDIS_PORT", "6379"); err != nil {
		return
	}
	if cfg.redisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return
	}
	cfg.redisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.redisPoolSize, err = getInt("REDIS_POOL_SIZE", "10"); err != nil {
		return
	}
	if cfg.redisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", "2"); err != nil {
		return
	}
	if cfg.redisExp, err = getSeconds("REDIS_EXP_SECOND", "300"); err != nil {
		return
	}

	// Kafka config, no brokers disables publishing
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.kafkaBrokers = append(cfg.kafkaBrokers, b)
		}
	}
	cfg.kafkaOperationTopic = getEnv("KAFKA_OPERATION_TOPIC", "operation-events")
	cfg.kafkaUserLimitTopic = getEnv("KAFKA_USER_LIMIT_TOPIC", "user-limit-events")

	// Ledger config
	cfg.defaultCurrencyTag = getEnv("LEDGER_DEFAULT_CURRENCY_TAG", "REAL")
	cfg.defaultCurrencySymbol = getEnv("LEDGER_DEFAULT_CURRENCY_SYMBOL", "R$")
	if cfg.maxWalletsPerUser, err = getInt("LEDGER_MAX_WALLETS_PER_USER", "1"); err != nil {
		return
	}
	cfg.timezone = getEnv("LEDGER_TIMEZONE", "UTC")
	if _, err = time.LoadLocation(cfg.timezone); err != nil {
		err = fmt.Errorf("LEDGER_TIMEZONE: %w", err)
		return
	}
	if cfg.pendingTTL, err = getSeconds("LEDGER_PENDING_TTL_SECOND", "900"); err != nil {
		return
	}
	if cfg.reaperInterval, err = getSeconds("LEDGER_REAPER_INTERVAL_SECOND", "60"); err != nil {
		return
	}

	return
}

// storage bundles the repositories the services are built from.
type storage struct {
	tx               services.Transactor
	currencies       services.CurrencyReader
	transactionTypes services.TransactionTypeReader
	users            services.UserReader
	wallets          services.WalletReader
	accounts         services.WalletAccountRepository
	ledger           services.WalletAccountTransactionRepository
	ops              services.OperationRepository
	limitTypes       services.LimitTypeReader
	globalLimits     services.GlobalLimitRepository
	userLimits       services.UserLimitRepository
	trackers         services.UserLimitTrackerRepository
}

func newSQLStorage(db *sqlx.DB) storage {
	txGetter := repositories.GetTxFromContext
	return storage{
		tx:               repositories.NewTxManager(db),
		currencies:       repositories.NewCurrencyRepository(db, txGetter),
		transactionTypes: repositories.NewTransactionTypeRepository(db, txGetter),
		users:            repositories.NewUserRepository(db, txGetter),
		wallets:          repositories.NewWalletRepository(db, txGetter),
		accounts:         repositories.NewWalletAccountRepository(db, txGetter),
		ledger:           repositories.NewWalletAccountTransactionRepository(db, txGetter),
		ops:              repositories.NewOperationRepository(db, txGetter),
		limitTypes:       repositories.NewLimitTypeRepository(db, txGetter),
		globalLimits:     repositories.NewGlobalLimitRepository(db, txGetter),
		userLimits:       repositories.NewUserLimitRepository(db, txGetter),
		trackers:         repositories.NewUserLimitTrackerRepository(db, txGetter),
	}
}

func newMemoryStorage(store *memory.Store) storage {
	return storage{
		tx:               store,
		currencies:       store.Currencies(),
		transactionTypes: store.TransactionTypes(),
		users:            store.Users(),
		wallets:          store.Wallets(),
		accounts:         store.WalletAccounts(),
		ledger:           store.WalletAccountTransactions(),
		ops:              store.Operations(),
		limitTypes:       store.LimitTypes(),
		globalLimits:     store.GlobalLimits(),
		userLimits:       store.UserLimits(),
		trackers:         store.UserLimitTrackers(),
	}
}

// ledger is the assembled core.
type ledger struct {
	operations *services.OperationService
	userLimits *services.UserLimitService
	balances   *services.BalanceManager
	reaper     *services.PendingOperationReaper
}

func newLedger(cfg config, st storage, cache services.ReferenceCache, opEvents services.OperationEventEmitter, limitEvents services.UserLimitEventEmitter) (*ledger, error) {
	loc, err := time.LoadLocation(cfg.timezone)
	if err != nil {
		return nil, err
	}

	references := services.NewReferenceService(st.currencies, st.transactionTypes, cache)
	balances := services.NewBalanceManager(st.accounts, st.ledger)
	limits := services.NewLimitVerifier(st.limitTypes, st.globalLimits, st.userLimits, st.trackers, limitEvents, services.LimitConfig{Location: loc})

	operations := services.NewOperationService(
		services.OperationConfig{
			DefaultCurrencyTag:    cfg.defaultCurrencyTag,
			DefaultCurrencySymbol: cfg.defaultCurrencySymbol,
			MaxWalletsPerUser:     cfg.maxWalletsPerUser,
		},
		st.tx, references, st.users, st.wallets, st.accounts, st.ops, st.ledger,
		balances, limits, opEvents,
	)

	return &ledger{
		operations: operations,
		userLimits: services.NewUserLimitService(st.tx, st.globalLimits, st.userLimits, limitEvents),
		balances:   balances,
		reaper:     services.NewPendingOperationReaper(st.ops, operations, cfg.pendingTTL, cfg.reaperInterval),
	}, nil
}

func newKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// run initializes the logger, storage, Redis, Kafka writers and the ledger,
// then serves health endpoints and reaps stale operations until a shutdown
// signal arrives.
func run(ctx context.Context, cfg config) error {
	if err := logger.Initialize(cfg.logLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.logLevel)

	checks := make(map[string]handlers.Pinger)

	var st storage
	switch cfg.storageDriver {
	case storagePostgres:
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.pgUser, cfg.pgPassword, cfg.pgHost, cfg.pgPort, cfg.pgDB)
		logger.Log.Infow("Connecting to PostgreSQL", "host", cfg.pgHost, "port", cfg.pgPort, "db", cfg.pgDB)

		db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
		if err != nil {
			return fmt.Errorf("PostgreSQL connection error: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.pgMaxOpenConns)
		db.SetMaxIdleConns(cfg.pgMaxIdleConns)

		st = newSQLStorage(db)
		checks["postgres"] = db.PingContext
	default:
		logger.Log.Warn("Using in-memory storage, state is lost on restart")
		store := memory.New()
		seedDefaultCurrency(store, cfg)
		st = newMemoryStorage(store)
	}

	var cache services.ReferenceCache
	if cfg.redisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.redisHost, cfg.redisPort),
			Password:     cfg.redisPassword,
			DB:           cfg.redisDB,
			PoolSize:     cfg.redisPoolSize,
			MinIdleConns: cfg.redisMinIdleConns,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("Redis connection error: %w", err)
		}
		defer rdb.Close()

		cache = repositories.NewReferenceCacheRepository(rdb, cfg.redisExp)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var opWriter, limitWriter facades.KafkaWriter
	if len(cfg.kafkaBrokers) > 0 {
		ow := newKafkaWriter(cfg.kafkaBrokers, cfg.kafkaOperationTopic)
		lw := newKafkaWriter(cfg.kafkaBrokers, cfg.kafkaUserLimitTopic)
		defer ow.Close()
		defer lw.Close()
		opWriter, limitWriter = ow, lw
	} else {
		logger.Log.Warn("KAFKA_BROKERS is empty, events will not be published")
	}

	l, err := newLedger(cfg, st,
		cache,
		facades.NewOperationEventPublisher(opWriter),
		facades.NewUserLimitEventPublisher(limitWriter),
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)
	r.Get("/healthz", handlers.NewLivenessHandler())
	r.Get("/readyz", handlers.NewReadinessHandler(checks))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.appHost, cfg.appPort),
		Handler: r,
	}

	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctxShutdown)
	g.Go(func() error {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.appHost, cfg.appPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return l.reaper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorw("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Log.Info("Service stopped gracefully")
	return nil
}

// seedDefaultCurrency registers the default currency so a memory backed
// ledger can resolve requests that name no currency.
func seedDefaultCurrency(store *memory.Store, cfg config) {
	store.PutCurrency(models.Currency{
		ID:        uuid.New(),
		Symbol:    cfg.defaultCurrencySymbol,
		Tag:       cfg.defaultCurrencyTag,
		Decimal:   2,
		Title:     cfg.defaultCurrencyTag,
		CreatedAt: time.Now(),
	})
}
