package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatedata/querykit/pkg/apperrors"
)

func fastConfig() *Config {
	return &Config{MaxAttempts: 3, Delay: time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("boom")
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestDoRespectsContextDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := &Config{MaxAttempts: 3, Delay: time.Minute}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		calls++
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoWithResultRecoversOnLaterAttempt(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoWithReauthInvalidatesBetweenAttempts(t *testing.T) {
	calls := 0
	invalidations := 0
	got, err := DoWithReauth(context.Background(), fastConfig(),
		func() { invalidations++ },
		func() (string, error) {
			calls++
			if calls == 1 {
				return "", fmt.Errorf("%w: 401", apperrors.ErrAuthenticationFailed)
			}
			return "rows", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "rows", got)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, invalidations)
}

func TestDoWithReauthDoesNotRetryTransport(t *testing.T) {
	calls := 0
	_, err := DoWithReauth(context.Background(), fastConfig(),
		func() { t.Fatal("must not invalidate on transport failure") },
		func() (string, error) {
			calls++
			return "", fmt.Errorf("%w: connection reset", apperrors.ErrTransport)
		})
	require.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Equal(t, 1, calls)
}

func TestDoWithReauthExhaustsAuthRetries(t *testing.T) {
	calls := 0
	_, err := DoWithReauth(context.Background(), fastConfig(),
		func() {},
		func() (string, error) {
			calls++
			return "", fmt.Errorf("%w: still rejected", apperrors.ErrAuthenticationFailed)
		})
	require.ErrorIs(t, err, apperrors.ErrAuthenticationFailed)
	assert.Equal(t, 3, calls)
}
