package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classic-jersey-studio/internal/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuildWithoutAI(t *testing.T) {
	c, err := Build(context.Background(), config.Config{MockupEngine: config.EngineTint}, discard)
	require.NoError(t, err)

	assert.Nil(t, c.Mockups)
	assert.NotNil(t, c.Tint)
	assert.Len(t, c.Catalog.Designs(), 3)
}

func TestBuildWithAI(t *testing.T) {
	cfg := config.Config{GeminiAPIKey: "key", GeminiBackend: "rest", MockupEngine: config.EngineAI}
	c, err := Build(context.Background(), cfg, discard)
	require.NoError(t, err)
	assert.NotNil(t, c.Mockups)
}

func TestBuildLoadsCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw := "designs:\n  - {id: solo, name: Solo, image_url: https://example.com/solo.png, max_colors: 1}\n" +
		"colors:\n  - {name: Black, hex: \"#000000\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	c, err := Build(context.Background(), config.Config{CatalogFile: path}, discard)
	require.NoError(t, err)
	require.Len(t, c.Catalog.Designs(), 1)
	assert.Equal(t, "solo", c.Catalog.Designs()[0].ID)

	_, err = Build(context.Background(), config.Config{CatalogFile: filepath.Join(t.TempDir(), "missing.yaml")}, discard)
	assert.Error(t, err)
}
