package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRankingConfig_MatchesSpecLiterals(t *testing.T) {
	cfg := DefaultRankingConfig()
	assert.Equal(t, 0.4, cfg.RuleTextRankWeight)
	assert.Equal(t, 0.3, cfg.RulePreferenceWeight)
	assert.Equal(t, 0.2, cfg.RulePopularityWeight)
	assert.Equal(t, 0.1, cfg.RuleInteractionWeight)
	assert.Equal(t, 0.65, cfg.FinalRuleWeight)
	assert.Equal(t, 0.35, cfg.FinalNeuralWeight)
	assert.Equal(t, 0.6, cfg.RecommendRuleWeight)
	assert.Equal(t, 0.4, cfg.RecommendModelWeight)
}

func TestLoadRankingConfigFromPath_OverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranking.toml")
	require.NoError(t, os.WriteFile(path, []byte("final_rule_weight = 0.8\nfinal_neural_weight = 0.2\n"), 0o644))

	fileCfg, err := loadRankingConfigFromPath(path)
	require.NoError(t, err)
	require.NotNil(t, fileCfg)

	base := DefaultRankingConfig()
	mergeRankingConfig(base, fileCfg)

	assert.Equal(t, 0.8, base.FinalRuleWeight)
	assert.Equal(t, 0.2, base.FinalNeuralWeight)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.4, base.RuleTextRankWeight)
	assert.Equal(t, 0.6, base.RecommendRuleWeight)
}

func TestLoadRankingConfigFromPath_MissingFileIsNotAnError(t *testing.T) {
	fileCfg, err := loadRankingConfigFromPath(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Nil(t, fileCfg)
}
