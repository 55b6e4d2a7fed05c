package media

import (
	"context"
	"errors"
	"time"

	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/internal/worker"
	"github.com/anoixa/photogram/utils/generator"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

// DispatchConfig 调用策略
type DispatchConfig struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// Dispatcher 把每次远端调用放到协程池中执行，附加超时和重试，
// 失败统一归类为 errs.ErrStorageUnavailable
type Dispatcher struct {
	backend      Store
	pool         *worker.Pool
	cfg          DispatchConfig
	retryInPlace bool
	log          *zap.Logger
}

var _ Store = (*Dispatcher)(nil)

// NewDispatcher 创建调度器
func NewDispatcher(backend Store, pool *worker.Pool, cfg DispatchConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	// 对象存储的原地变换读取并覆盖同一个键，超时后重试可能叠加两次变换
	retryInPlace := false
	if it, ok := backend.(IdempotentTransformer); ok {
		retryInPlace = it.InPlaceTransformIdempotent()
	}
	return &Dispatcher{
		backend:      backend,
		pool:         pool,
		cfg:          cfg,
		retryInPlace: retryInPlace,
		log:          logger.Named("media").With(zap.String("backend", backend.Name())),
	}
}

// dispatch 执行一次调用，idempotent 为 true 时失败后按线性退避重试
// 每次尝试使用独立的结果通道，超时后仍在运行的尝试不会影响返回值
func dispatch[T any](ctx context.Context, d *Dispatcher, op string, idempotent bool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	defer func() {
		callDuration.WithLabelValues(d.backend.Name(), op).Observe(time.Since(start).Seconds())
	}()

	attempts := 1
	if idempotent {
		attempts += d.cfg.Retries
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(d.cfg.Backoff * time.Duration(i)):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				err = ctx.Err()
				break
			}
		}

		results := make(chan T, 1)
		callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		err = d.pool.Run(callCtx, func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			results <- v
			return nil
		})
		cancel()

		if err == nil {
			callsTotal.WithLabelValues(d.backend.Name(), op, "ok").Inc()
			return <-results, nil
		}
		if errors.Is(err, errs.ErrValidation) {
			callsTotal.WithLabelValues(d.backend.Name(), op, "rejected").Inc()
			return zero, err
		}
		d.log.Warn("Media store call failed",
			zap.String("op", op),
			zap.Int("attempt", i+1),
			zap.Int("attempts", attempts),
			zap.Error(err))
	}

	callsTotal.WithLabelValues(d.backend.Name(), op, "error").Inc()
	return zero, errs.Wrap(errs.ErrStorageUnavailable, err, "media store "+op+" failed")
}

func (d *Dispatcher) UploadOriginal(ctx context.Context, userID uint, data []byte, kind generator.Kind) (Asset, error) {
	return dispatch(ctx, d, "upload_original", false, func(ctx context.Context) (Asset, error) {
		return d.backend.UploadOriginal(ctx, userID, data, kind)
	})
}

func (d *Dispatcher) UploadTransformed(ctx context.Context, userID uint, source Asset, params *imaging.Params) (Asset, error) {
	return dispatch(ctx, d, "upload_transformed", false, func(ctx context.Context) (Asset, error) {
		return d.backend.UploadTransformed(ctx, userID, source, params)
	})
}

func (d *Dispatcher) ApplyTransformInPlace(ctx context.Context, publicID string, params *imaging.Params) (string, error) {
	return dispatch(ctx, d, "explicit_transform", d.retryInPlace, func(ctx context.Context) (string, error) {
		return d.backend.ApplyTransformInPlace(ctx, publicID, params)
	})
}

func (d *Dispatcher) UploadQR(ctx context.Context, userID uint, png []byte) (Asset, error) {
	return dispatch(ctx, d, "upload_qr", false, func(ctx context.Context) (Asset, error) {
		return d.backend.UploadQR(ctx, userID, png)
	})
}

func (d *Dispatcher) Delete(ctx context.Context, publicID string) error {
	_, err := dispatch(ctx, d, "delete", true, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.backend.Delete(ctx, publicID)
	})
	return err
}

func (d *Dispatcher) Name() string {
	return d.backend.Name()
}
