package media

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/internal/worker"
	"github.com/anoixa/photogram/utils/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStore 前 failures 次调用失败，之后成功
type scriptedStore struct {
	calls      atomic.Int32
	failures   int32
	err        error
	delay      time.Duration
	idempotent bool
}

func (s *scriptedStore) InPlaceTransformIdempotent() bool { return s.idempotent }

func (s *scriptedStore) step(ctx context.Context) error {
	n := s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= s.failures {
		return s.err
	}
	return nil
}

func (s *scriptedStore) UploadOriginal(ctx context.Context, _ uint, _ []byte, _ generator.Kind) (Asset, error) {
	if err := s.step(ctx); err != nil {
		return Asset{}, err
	}
	return Asset{URL: "https://cdn/a.webp", PublicID: "a"}, nil
}

func (s *scriptedStore) UploadTransformed(ctx context.Context, _ uint, _ Asset, _ *imaging.Params) (Asset, error) {
	if err := s.step(ctx); err != nil {
		return Asset{}, err
	}
	return Asset{URL: "https://cdn/t.webp", PublicID: "t"}, nil
}

func (s *scriptedStore) ApplyTransformInPlace(ctx context.Context, _ string, _ *imaging.Params) (string, error) {
	if err := s.step(ctx); err != nil {
		return "", err
	}
	return "https://cdn/t.webp?v=2", nil
}

func (s *scriptedStore) UploadQR(ctx context.Context, _ uint, _ []byte) (Asset, error) {
	if err := s.step(ctx); err != nil {
		return Asset{}, err
	}
	return Asset{URL: "https://cdn/q.png", PublicID: "q"}, nil
}

func (s *scriptedStore) Delete(ctx context.Context, _ string) error {
	return s.step(ctx)
}

func (s *scriptedStore) Name() string { return "scripted" }

func newDispatcher(t *testing.T, backend Store, cfg DispatchConfig) *Dispatcher {
	t.Helper()
	pool := worker.NewPool(2, 8)
	t.Cleanup(pool.Stop)
	return NewDispatcher(backend, pool, cfg)
}

func TestDispatcher_RetriesIdempotentCalls(t *testing.T) {
	backend := &scriptedStore{failures: 2, err: errors.New("connection reset")}
	d := newDispatcher(t, backend, DispatchConfig{Timeout: time.Second, Retries: 2, Backoff: time.Millisecond})

	require.NoError(t, d.Delete(context.Background(), "a"))
	assert.Equal(t, int32(3), backend.calls.Load())
}

func TestDispatcher_RetriesExhausted(t *testing.T) {
	backend := &scriptedStore{failures: 10, err: errors.New("connection reset"), idempotent: true}
	d := newDispatcher(t, backend, DispatchConfig{Timeout: time.Second, Retries: 2, Backoff: time.Millisecond})

	url, err := d.ApplyTransformInPlace(context.Background(), "t", &imaging.Params{})
	require.Error(t, err)
	assert.Empty(t, url)
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))
	assert.Equal(t, int32(3), backend.calls.Load())
}

func TestDispatcher_UploadsAreNotRetried(t *testing.T) {
	backend := &scriptedStore{failures: 1, err: errors.New("remote rejected")}
	d := newDispatcher(t, backend, DispatchConfig{Timeout: time.Second, Retries: 2, Backoff: time.Millisecond})

	_, err := d.UploadOriginal(context.Background(), 1, []byte("x"), generator.KindOriginal)
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))
	assert.Equal(t, int32(1), backend.calls.Load())

	asset, err := d.UploadOriginal(context.Background(), 1, []byte("x"), generator.KindOriginal)
	require.NoError(t, err)
	assert.Equal(t, "a", asset.PublicID)
}

func TestDispatcher_Timeout(t *testing.T) {
	backend := &scriptedStore{delay: time.Second}
	d := newDispatcher(t, backend, DispatchConfig{Timeout: 20 * time.Millisecond, Retries: 0})

	start := time.Now()
	_, err := d.UploadQR(context.Background(), 1, []byte("png"))
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDispatcher_ValidationPassesThrough(t *testing.T) {
	backend := &scriptedStore{failures: 5, err: errs.New(errs.ErrValidation, "angle must be a multiple of 90"), idempotent: true}
	d := newDispatcher(t, backend, DispatchConfig{Timeout: time.Second, Retries: 2, Backoff: time.Millisecond})

	_, err := d.ApplyTransformInPlace(context.Background(), "t", &imaging.Params{})
	assert.True(t, errors.Is(err, errs.ErrValidation))
	assert.False(t, errors.Is(err, errs.ErrStorageUnavailable))
	assert.Equal(t, int32(1), backend.calls.Load())
}

// rotatingStore 每次原地变换都在上一次结果上叠加旋转，且超时后仍会完成写入
type rotatingStore struct {
	scriptedStore
	mu    sync.Mutex
	angle int
}

func (s *rotatingStore) ApplyTransformInPlace(_ context.Context, _ string, params *imaging.Params) (string, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	s.mu.Lock()
	s.angle += *params.Angle
	s.mu.Unlock()
	return "https://cdn/t.webp", nil
}

func (s *rotatingStore) Angle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle
}

func TestDispatcher_InPlaceTransformNotRetriedOnObjectStores(t *testing.T) {
	backend := &rotatingStore{scriptedStore: scriptedStore{delay: 60 * time.Millisecond}}
	d := newDispatcher(t, backend, DispatchConfig{Timeout: 20 * time.Millisecond, Retries: 2, Backoff: time.Millisecond})

	angle := 90
	_, err := d.ApplyTransformInPlace(context.Background(), "t", &imaging.Params{Angle: &angle})
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))

	// 等待超时的那次调用写完
	assert.Eventually(t, func() bool { return backend.Angle() == 90 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Equal(t, 90, backend.Angle())
}

func TestDispatcher_InPlaceTransformRetriedWhenIdempotent(t *testing.T) {
	backend := &scriptedStore{failures: 1, err: errors.New("connection reset"), idempotent: true}
	d := newDispatcher(t, backend, DispatchConfig{Timeout: time.Second, Retries: 2, Backoff: time.Millisecond})

	url, err := d.ApplyTransformInPlace(context.Background(), "t", &imaging.Params{})
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Equal(t, int32(2), backend.calls.Load())
}
