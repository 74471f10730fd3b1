package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ledgerRow struct {
	ID        uint   `gorm:"primaryKey"`
	VoucherNo string `gorm:"size:32"`
	CreatedAt time.Time
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerRow{}))
	return db
}

func setupRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func attrsOf(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, a := range span.Attributes() {
		out[a.Key] = a.Value
	}
	return out
}

func TestNewDBTracingPlugin_Defaults(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", p.config.DBSystem)

	def := DefaultDBTracingConfig()
	assert.False(t, def.Enabled)
	assert.False(t, def.LogFullSQL)
}

func TestDBTracingPlugin_RegisterOtelGorm(t *testing.T) {
	t.Run("disabled registers nothing", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop()).RegisterOtelGorm(db))
		assert.Nil(t, db.Callback().Query().Get("otel_slow_query:query"))
	})

	t.Run("enabled traces queries", func(t *testing.T) {
		tp, sr := setupRecorder(t)
		original := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		t.Cleanup(func() { otel.SetTracerProvider(original) })

		db := setupTestDB(t)
		cfg := DefaultDBTracingConfig()
		cfg.Enabled = true
		require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))
		assert.NotNil(t, db.Callback().Query().Get("otel_slow_query:query"))

		ctx, parent := tp.Tracer("test").Start(context.Background(), "voucher.post")
		require.NoError(t, db.WithContext(ctx).Create(&ledgerRow{VoucherNo: "JE-2025-000001"}).Error)
		var got ledgerRow
		require.NoError(t, db.WithContext(ctx).First(&got).Error)
		parent.End()

		var children int
		for _, s := range sr.Ended() {
			if s.Parent().SpanID() == parent.SpanContext().SpanID() {
				children++
			}
		}
		assert.GreaterOrEqual(t, children, 2)
	})
}

func TestSlowQueryCallback(t *testing.T) {
	newStatement := func(t *testing.T, ctx context.Context) *gorm.DB {
		tx := setupTestDB(t).WithContext(ctx)
		tx.Statement.Table = "ledger_entries"
		tx.Statement.RowsAffected = 2
		return tx
	}

	t.Run("annotates slow query and error", func(t *testing.T) {
		tp, sr := setupRecorder(t)
		core, logs := observer.New(zapcore.WarnLevel)
		p := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Millisecond}, zap.New(core))

		ctx, span := tp.Tracer("test").Start(context.Background(), "query")
		ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second))
		tx := newStatement(t, ctx)
		tx.Error = errors.New("deadlock detected")

		p.slowQueryCallback(tx)
		span.End()

		recorded := sr.Ended()[0]
		attrs := attrsOf(recorded)
		assert.Equal(t, int64(2), attrs["db.rows_affected"].AsInt64())
		assert.Equal(t, "ledger_entries", attrs["db.sql.table"].AsString())
		assert.True(t, attrs["db.slow_query"].AsBool())
		assert.Equal(t, codes.Error, recorded.Status().Code)

		var names []string
		for _, e := range recorded.Events() {
			names = append(names, e.Name)
		}
		assert.Contains(t, names, "slow_query_warning")
		assert.Equal(t, 1, logs.FilterMessage("Slow query").Len())
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		tp, sr := setupRecorder(t)
		p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())

		ctx, span := tp.Tracer("test").Start(context.Background(), "query")
		tx := newStatement(t, WithQueryStartTime(ctx))
		tx.Error = gorm.ErrRecordNotFound

		p.slowQueryCallback(tx)
		span.End()

		recorded := sr.Ended()[0]
		assert.NotEqual(t, codes.Error, recorded.Status().Code)
		assert.NotContains(t, attrsOf(recorded), attribute.Key("db.slow_query"))
	})

	t.Run("non-recording span is ignored", func(t *testing.T) {
		p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
		assert.NotPanics(t, func() {
			p.slowQueryCallback(newStatement(t, context.Background()))
		})
	})
}
