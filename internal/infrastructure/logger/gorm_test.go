package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewGormLogger_Options(t *testing.T) {
	gormLog := NewGormLogger(zap.NewNop(), gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, gormlogger.Info, gormLog.level)
	assert.Equal(t, 500*time.Millisecond, gormLog.slowQuery)
	assert.True(t, gormLog.reportNotFound)

	switched, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, switched.level)
	assert.Equal(t, gormlogger.Info, gormLog.level, "LogMode must not mutate the receiver")
}

func TestGormLogger_Messages(t *testing.T) {
	tests := []struct {
		name  string
		level gormlogger.LogLevel
		call  func(l *GormLogger)
		want  string
	}{
		{"info at info", gormlogger.Info, func(l *GormLogger) { l.Info(context.Background(), "migrated %s", "vouchers") }, "migrated vouchers"},
		{"info suppressed when silent", gormlogger.Silent, func(l *GormLogger) { l.Info(context.Background(), "hidden") }, ""},
		{"warn at warn", gormlogger.Warn, func(l *GormLogger) { l.Warn(context.Background(), "retry %d", 2) }, "retry 2"},
		{"info suppressed at warn", gormlogger.Warn, func(l *GormLogger) { l.Info(context.Background(), "hidden") }, ""},
		{"error at error", gormlogger.Error, func(l *GormLogger) { l.Error(context.Background(), "broken") }, "broken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			tt.call(NewGormLogger(zap.New(core), tt.level))

			if tt.want == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			assert.Equal(t, tt.want, recorded.All()[0].Message)
		})
	}
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM vouchers WHERE id = $1", 1 }

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		elapsed   time.Duration
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{name: "error", level: gormlogger.Error, err: errors.New("deadlock detected"), wantMsg: "SQL Error", wantLevel: zapcore.ErrorLevel},
		{name: "record not found ignored", level: gormlogger.Error, err: gormlogger.ErrRecordNotFound},
		{name: "record not found ignored at info", level: gormlogger.Info, err: gormlogger.ErrRecordNotFound},
		{
			name: "record not found reported when configured", level: gormlogger.Error,
			opts: []GormLoggerOption{WithIgnoreRecordNotFoundError(false)},
			err:  gormlogger.ErrRecordNotFound, wantMsg: "SQL Error", wantLevel: zapcore.ErrorLevel,
		},
		{
			name: "slow query", level: gormlogger.Warn,
			opts:    []GormLoggerOption{WithSlowThreshold(time.Millisecond)},
			elapsed: time.Second, wantMsg: "SLOW SQL >= 1ms", wantLevel: zapcore.WarnLevel,
		},
		{name: "normal query at info", level: gormlogger.Info, wantMsg: "SQL Query", wantLevel: zapcore.DebugLevel},
		{name: "normal query hidden at warn", level: gormlogger.Warn},
		{name: "silent", level: gormlogger.Silent, err: errors.New("ignored")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gormLog := NewGormLogger(zap.New(core), tt.level, tt.opts...)

			gormLog.Trace(context.Background(), time.Now().Add(-tt.elapsed), query, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, "SELECT * FROM vouchers WHERE id = $1", entry.ContextMap()["sql"])
		})
	}
}

func TestGormLogger_Trace_WithContextFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx := WithIdentity(WithRequestID(context.Background(), "req-7"), "company-7", "user-7")
	gormLog.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT * FROM vouchers WHERE company_id = 'company-7'", 3
	}, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "company-7", fields["company_id"])
	assert.Equal(t, "user-7", fields["user_id"])
	assert.Equal(t, int64(3), fields["rows"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"DEBUG", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			result := MapGormLogLevel(tt.level)
			assert.Equal(t, tt.expected, result)
		})
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
