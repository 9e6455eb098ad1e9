package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetKnownPresets(t *testing.T) {
	for _, slug := range []string{"tiny", "default", "large"} {
		preset, err := Get(slug)
		require.NoError(t, err)
		require.Equal(t, slug, preset.Slug)
		require.Greater(t, preset.TotalBlocks, uint32(0))
	}
}

func TestGetUnknownPreset(t *testing.T) {
	_, err := Get("does-not-exist")
	require.Error(t, err)
}

func TestNamesOrder(t *testing.T) {
	require.Equal(t, []string{"tiny", "default", "large"}, Names())
}

func TestPresetSuperblockMatchesTotalBlocks(t *testing.T) {
	preset, err := Get("tiny")
	require.NoError(t, err)

	sb := preset.Superblock()
	require.EqualValues(t, preset.TotalBlocks, sb.DataStart()+sb.NBlocks)
}
