package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories/memory"
	"github.com/sbilibin2017/gw-operation-ledger/internal/services"
)

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

// resetEnv clears env vars used by parseConfig
func resetEnv() {
	os.Clearenv()
}

func TestParseFlags_Default(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd"}
	assert.Equal(t, "config.env", parseFlags())
}

func TestParseFlags_Custom(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "-c", "myconfig.env"}
	assert.Equal(t, "myconfig.env", parseFlags())
}

func TestPrintBuildInfo_Output(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	buildVersion = "v1.0.0"
	buildCommit = "abcd1234"
	buildDate = "2025-09-26"

	printBuildInfo()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	assert.Equal(t, "Starting service version v1.0.0, commit abcd1234, build 2025-09-26\n", buf.String())
}

func TestParseConfig_Defaults(t *testing.T) {
	resetEnv()

	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.appHost)
	assert.Equal(t, "8080", cfg.appPort)
	assert.Equal(t, "info", cfg.logLevel)
	assert.Equal(t, storagePostgres, cfg.storageDriver)

	assert.Equal(t, "localhost", cfg.pgHost)
	assert.Equal(t, 5432, cfg.pgPort)
	assert.Equal(t, "user", cfg.pgUser)
	assert.Equal(t, "password", cfg.pgPassword)
	assert.Equal(t, "database", cfg.pgDB)
	assert.Equal(t, 16, cfg.pgMaxOpenConns)
	assert.Equal(t, 8, cfg.pgMaxIdleConns)

	assert.Equal(t, "localhost", cfg.redisHost)
	assert.Equal(t, 6379, cfg.redisPort)
	assert.Equal(t, 0, cfg.redisDB)
	assert.Equal(t, 10, cfg.redisPoolSize)
	assert.Equal(t, 2, cfg.redisMinIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.redisExp)

	assert.Empty(t, cfg.kafkaBrokers)
	assert.Equal(t, "operation-events", cfg.kafkaOperationTopic)
	assert.Equal(t, "user-limit-events", cfg.kafkaUserLimitTopic)

	assert.Equal(t, "REAL", cfg.defaultCurrencyTag)
	assert.Equal(t, "R$", cfg.defaultCurrencySymbol)
	assert.Equal(t, 1, cfg.maxWalletsPerUser)
	assert.Equal(t, "UTC", cfg.timezone)
	assert.Equal(t, 15*time.Minute, cfg.pendingTTL)
	assert.Equal(t, time.Minute, cfg.reaperInterval)
}

func TestParseConfig_CustomEnv(t *testing.T) {
	resetEnv()
	os.Setenv("APP_HOST", "127.0.0.1")
	os.Setenv("APP_PORT", "9090")
	os.Setenv("APP_LOG_LEVEL", "debug")
	os.Setenv("STORAGE_DRIVER", "memory")

	os.Setenv("POSTGRES_HOST", "pg.example.com")
	os.Setenv("POSTGRES_PORT", "5433")
	os.Setenv("POSTGRES_MAX_OPEN_CONNS", "20")

	os.Setenv("REDIS_HOST", "redis.example.com")
	os.Setenv("REDIS_DB", "2")
	os.Setenv("REDIS_EXP_SECOND", "120")

	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	os.Setenv("KAFKA_OPERATION_TOPIC", "ops")

	os.Setenv("LEDGER_DEFAULT_CURRENCY_TAG", "USD")
	os.Setenv("LEDGER_TIMEZONE", "America/Sao_Paulo")
	os.Setenv("LEDGER_PENDING_TTL_SECOND", "30")

	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.appHost)
	assert.Equal(t, "9090", cfg.appPort)
	assert.Equal(t, "debug", cfg.logLevel)
	assert.Equal(t, storageMemory, cfg.storageDriver)
	assert.Equal(t, "pg.example.com", cfg.pgHost)
	assert.Equal(t, 5433, cfg.pgPort)
	assert.Equal(t, 20, cfg.pgMaxOpenConns)
	assert.Equal(t, "redis.example.com", cfg.redisHost)
	assert.Equal(t, 2, cfg.redisDB)
	assert.Equal(t, 2*time.Minute, cfg.redisExp)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.kafkaBrokers)
	assert.Equal(t, "ops", cfg.kafkaOperationTopic)
	assert.Equal(t, "USD", cfg.defaultCurrencyTag)
	assert.Equal(t, "America/Sao_Paulo", cfg.timezone)
	assert.Equal(t, 30*time.Second, cfg.pendingTTL)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "STORAGE_DRIVER", "mysql"},
		{"bad port", "POSTGRES_PORT", "abc"},
		{"bad ttl", "LEDGER_PENDING_TTL_SECOND", "soon"},
		{"bad timezone", "LEDGER_TIMEZONE", "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEnv()
			os.Setenv(tt.key, tt.val)

			_, err := parseConfig("nonexistent.env")
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestNewLedger_Memory(t *testing.T) {
	resetEnv()
	os.Setenv("STORAGE_DRIVER", "memory")
	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	store := memory.New()
	seedDefaultCurrency(store, cfg)

	deposit := models.TransactionType{
		ID:           uuid.New(),
		Tag:          "DEPOSIT",
		Participants: models.ParticipantsBeneficiary,
		State:        models.TransactionTypeStateActive,
	}
	store.PutTransactionType(deposit)

	user := models.User{ID: uuid.New(), State: models.UserStateActive, CreatedAt: time.Now()}
	store.PutUser(user)
	wallet := models.Wallet{ID: uuid.New(), UserID: user.ID, State: models.WalletStateActive, CreatedAt: time.Now()}
	store.PutWallet(wallet)

	l, err := newLedger(cfg, newMemoryStorage(store), nil, services.NoopEventEmitter{}, services.NoopEventEmitter{})
	require.NoError(t, err)

	ctx := context.Background()
	op, err := l.operations.CreateAndAcceptOperation(ctx, services.CreateOperationRequest{
		ID:                  uuid.New(),
		TransactionTag:      "DEPOSIT",
		RawValue:            decimal.NewFromInt(25),
		BeneficiaryWalletID: &wallet.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OperationStateAccepted, op.State)

	require.NotNil(t, op.BeneficiaryWalletAccountID)
	acc, err := l.balances.GetWalletAccount(ctx, *op.BeneficiaryWalletAccountID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(25)))

	n, err := l.reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_MemoryShutdown(t *testing.T) {
	resetEnv()
	os.Setenv("STORAGE_DRIVER", "memory")
	os.Setenv("REDIS_HOST", "")
	os.Setenv("APP_PORT", "0")
	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.NoError(t, run(ctx, cfg))
}
