package retry

import (
	"time"

	"github.com/azhengyongqin/scholar-hub/internal/logger"
)

// Do 以固定间隔重试关键步骤，最多执行 attempts 次。
// 每次失败记录 warn 日志（步骤名 + 第几次尝试），
// 全部失败时原样返回最后一次的错误，不做包装。
// 外部服务的失败多为瞬时抖动而非负载问题，因此间隔固定、不做指数退避。
func Do[T any](name string, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		logger.Warn().
			Str("step", name).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Err(err).
			Msg("[Retry] 步骤执行失败")

		if attempt < attempts {
			time.Sleep(delay)
		}
	}

	logger.Error().
		Str("step", name).
		Int("max_attempts", attempts).
		Msg("[Failed] 步骤在重试后最终失败")
	return zero, lastErr
}
