//go:build integration

package persistence

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/accounting"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appacc "github.com/ledger/backend/internal/application/accounting"
)

func migrationsPath(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(filename), "..", "..", "..", "migrations")
}

// newPostgresTestDB starts a PostgreSQL container and applies the SQL migrations
func newPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), GormConfig(logger.Discard))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)

	m, err := migration.New(sqlDB, migrationsPath(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return db
}

func TestPostgres_PostingRoundTrip(t *testing.T) {
	db := newPostgresTestDB(t)
	ctx := context.Background()
	companyID := uuid.New()

	scope := NewGormTransactionScope(db)
	vouchers := NewGormVoucherRepository(db)
	ledger := NewGormLedgerRepository(db)

	v := postedRepoTestVoucher(t, companyID, "JE-2025-000001", "2025-03-01", "1250.75")
	err := scope.Execute(ctx, func(ctx context.Context, repos appacc.TransactionalRepositories) error {
		if err := repos.Vouchers().Save(ctx, v); err != nil {
			return err
		}
		return repos.Ledger().RecordForVoucher(ctx, v)
	})
	require.NoError(t, err)

	t.Run("voucher and ledger rows persist", func(t *testing.T) {
		found, err := vouchers.FindByIDForUpdate(ctx, companyID, v.GetID())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, found.IsPosted())
		assert.Equal(t, accounting.PostingLockFlexibleLocked, found.PostingLockPolicy())

		balances, err := ledger.AccountBalances(ctx, companyID, "2025-03-31")
		require.NoError(t, err)
		assert.True(t, balances["acc-rent"].Equal(decimal.RequireFromString("1250.75")))
		assert.True(t, balances["acc-cash"].Equal(decimal.RequireFromString("-1250.75")))
	})

	t.Run("voucher numbers are unique per company", func(t *testing.T) {
		dup := newRepoTestVoucher(t, companyID, "JE-2025-000001", "2025-03-02", "10")
		assert.ErrorIs(t, vouchers.Save(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("concurrent number allocation never repeats", func(t *testing.T) {
		gen := NewGormVoucherNumberGenerator(db)
		const workers = 8

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			numbers = map[string]bool{}
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				no, err := gen.Next(ctx, companyID, accounting.VoucherTypePayment, "2025-03-01")
				assert.NoError(t, err)
				mu.Lock()
				numbers[no] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, numbers, workers)
	})
}
