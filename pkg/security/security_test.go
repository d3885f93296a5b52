package security

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateImage(t *testing.T) {
	data := pngBytes(t)

	t.Run("valid png", func(t *testing.T) {
		res := ValidateImage("photo.PNG", data)
		assert.True(t, res.Valid, res.Error)
		assert.Equal(t, "image/png", res.DetectedMIME)
	})

	t.Run("png bytes with jpg extension", func(t *testing.T) {
		res := ValidateImage("photo.jpg", data)
		assert.False(t, res.Valid)
	})

	t.Run("pdf not allowed", func(t *testing.T) {
		res := ValidateImage("doc.pdf", []byte("%PDF-1.4 ..."))
		assert.False(t, res.Valid)
		assert.Contains(t, res.Error, "not allowed")
	})

	t.Run("no extension", func(t *testing.T) {
		res := ValidateImage("photo", data)
		assert.False(t, res.Valid)
	})
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@campus.edu", MaskEmail("asha@campus.edu"))
	assert.Equal(t, "***", MaskEmail("ab"))
	assert.Equal(t, "***@x.io", MaskEmail("a@x.io"))
}

func TestSecurityLogger_SeverityAndPersist(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := WithZap(zap.New(core), "marketplace", "test")

	var mu sync.Mutex
	var persisted []SecurityEvent
	sl.SetPersistFunc(func(ctx context.Context, e SecurityEvent) error {
		mu.Lock()
		defer mu.Unlock()
		persisted = append(persisted, e)
		return nil
	})

	sl.LogRoleModified(context.Background(), "admin-1", "u-2", "buyer", "seller")
	sl.LogRoleTransition(context.Background(), "u-2", "", "buyer", "sign_in")
	require.NoError(t, sl.Close())

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "role_modified", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, persisted, 2)
	for _, e := range persisted {
		assert.NotEmpty(t, e.Severity)
		assert.Equal(t, "marketplace", e.Service)
	}
}

func TestLoginTracker_NoRedisFailsOpen(t *testing.T) {
	lt := NewLoginTracker(nil, LoginTrackerConfig{}, NopLogger())
	ctx := context.Background()

	blocked, err := lt.IsBlocked(ctx, "a@b.c", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, blocked)

	blocked, n, err := lt.RecordFailedAttempt(ctx, "a@b.c", RequestMeta{IP: "1.2.3.4"}, "invalid_credentials")
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.Zero(t, n)

	assert.NoError(t, lt.ClearAttempts(ctx, "a@b.c", "1.2.3.4"))
}
