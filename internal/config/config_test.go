package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLA_WARN_RATIO", "")
	t.Setenv("SLA_SWEEP_CHUNK_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.8, cfg.SLA.WarnRatio, 1e-9)
	assert.Equal(t, 200, cfg.SLA.SweepChunkSize)
	assert.Equal(t, 2, cfg.Critical.UserWeight)
	assert.Equal(t, 1, cfg.Critical.AreaWeight)
	assert.Equal(t, int64(10<<20), cfg.Attachment.MaxBytes)
	assert.Contains(t, cfg.Attachment.AllowedContentTypes, "application/pdf")
}

func TestLoadRejectsBadWarnRatio(t *testing.T) {
	t.Setenv("SLA_WARN_RATIO", "1.5")
	_, err := Load()
	assert.Error(t, err)
}

func TestAttachmentTypesFromEnv(t *testing.T) {
	t.Setenv("SLA_WARN_RATIO", "")
	t.Setenv("ATTACHMENT_ALLOWED_TYPES", "image/png, text/csv ,")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"image/png", "text/csv"}, cfg.Attachment.AllowedContentTypes)
}
