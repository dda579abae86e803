package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("fetch losers: %w", NewStatusError("histock", "rank page", 503))

	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.False(t, errors.Is(err, ErrNotConfigured))
	assert.Equal(t, "fetch losers: histock rank page: status 503", err.Error())
}

func TestSourceError_UnwrapsCause(t *testing.T) {
	err := NewSourceError("yahoo", "chart GLD", context.DeadlineExceeded)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestConfigError_MatchesSentinel(t *testing.T) {
	err := &ConfigError{Setting: "rapidapi_api_key"}

	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.False(t, errors.Is(err, ErrSourceUnavailable))
	assert.Equal(t, "rapidapi_api_key is not configured", err.Error())
}
