package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConfig(t *testing.T) {
	cfg := gormConfig()

	t.Run("Error Translation Enabled", func(t *testing.T) {
		// Duplicate-key handling in the repositories depends on the driver
		// translating unique violations into gorm.ErrDuplicatedKey.
		assert.True(t, cfg.TranslateError)
	})

	t.Run("Timestamps In UTC", func(t *testing.T) {
		require.NotNil(t, cfg.NowFunc)
		assert.Equal(t, time.UTC, cfg.NowFunc().Location())
	})
}
