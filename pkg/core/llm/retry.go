package llm

import (
	"context"
	"math"
	"time"

	"github.com/blacksky-llc/maurice-go/pkg/core/errors"
)

// RetryFunc 可重试的函数类型
type RetryFunc func() error

// retry 执行带指数退避的重试
func retry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn RetryFunc) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return errors.ErrContextCanceled
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !errors.IsRetryable(err) {
			return err
		}

		if attempt < maxRetries {
			delay := calculateBackoff(attempt, baseDelay)
			select {
			case <-ctx.Done():
				return errors.ErrContextCanceled
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}

// calculateBackoff 计算指数退避时间
// 使用公式: baseDelay * 2^attempt + jitter
// 最大延迟限制为 30 秒
func calculateBackoff(attempt int, baseDelay time.Duration) time.Duration {
	exp := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(baseDelay) * exp)

	// 添加 10% 的抖动
	jitter := time.Duration(float64(delay) * 0.1)
	delay += jitter

	maxDelay := 30 * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
