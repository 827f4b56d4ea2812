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

const reserveSQL = `UPDATE "products" SET "stock_quantity"=stock_quantity - 2 WHERE id = 'p1'`

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(zap.NewNop(), gormlogger.Info)
	quiet := l.LogMode(gormlogger.Error).(*GormLogger)

	assert.Equal(t, gormlogger.Info, l.level)
	assert.Equal(t, gormlogger.Error, quiet.level)
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("error carries request id", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)
		ctx := WithRequestID(context.Background(), "req-9")

		l.Trace(ctx, time.Now(), sqlFn(reserveSQL, 0), errors.New("deadlock detected"))

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "sql statement failed", entries[0].Message)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-9", fields["request_id"])
		assert.Equal(t, "UPDATE", fields["statement"])
		assert.NotContains(t, fields, "sql")
	})

	t.Run("record not found is silent", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		l.Trace(context.Background(), time.Now(), sqlFn("SELECT * FROM sales", 0), gormlogger.ErrRecordNotFound)

		assert.Zero(t, recorded.Len())
	})

	t.Run("slow statement", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(10*time.Millisecond), WithSQL(true))

		l.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn(reserveSQL, 1), nil)

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "slow sql statement", entries[0].Message)
		assert.Equal(t, reserveSQL, entries[0].ContextMap()["sql"])
	})

	t.Run("fast statement below info", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		l.Trace(context.Background(), time.Now(), sqlFn(reserveSQL, 1), nil)

		assert.Zero(t, recorded.Len())
	})

	t.Run("info logs every statement", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info)

		l.Trace(context.Background(), time.Now(), sqlFn("INSERT INTO sales (id) VALUES ('x')", 1), nil)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, "INSERT", recorded.All()[0].ContextMap()["statement"])
	})

	t.Run("silent", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Silent)

		l.Trace(context.Background(), time.Now(), sqlFn(reserveSQL, 1), errors.New("boom"))

		assert.Zero(t, recorded.Len())
	})
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, GormLevel("silent"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLevel("warn"))
	assert.Equal(t, gormlogger.Warn, GormLevel("unknown"))
}
