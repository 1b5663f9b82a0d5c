package retry

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/scholar-hub/internal/logger"
)

// captureLog 将全局 logger 重定向到 buffer，返回恢复函数。
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := logger.L
	logger.L = zerolog.New(&buf)
	t.Cleanup(func() { logger.L = old })
	return &buf
}

func countWarnings(buf *bytes.Buffer) int {
	count := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "[Retry]") {
			count++
		}
	}
	return count
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	buf := captureLog(t)

	calls := 0
	got, err := Do("step", 3, 0, func() (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, countWarnings(buf))
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	buf := captureLog(t)

	// 失败 max_attempts-1 次后成功：返回成功值，告警恰好 max_attempts-1 条
	calls := 0
	got, err := Do("step", 3, 0, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("瞬时失败")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, countWarnings(buf))
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	buf := captureLog(t)

	// 全部失败：原样返回最后一次错误，告警恰好 max_attempts 条
	lastErr := errors.New("最后一次失败")
	calls := 0
	_, err := Do("step", 3, 0, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("前置失败")
		}
		return 0, lastErr
	})

	require.Error(t, err)
	assert.Same(t, lastErr, err, "错误应原样传播，不得包装")
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, countWarnings(buf))
}

func TestDo_FixedDelay(t *testing.T) {
	captureLog(t)

	start := time.Now()
	_, _ = Do("step", 3, 20*time.Millisecond, func() (int, error) {
		return 0, errors.New("失败")
	})

	// 3 次尝试，两次间隔；最后一次失败后不再等待
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}
