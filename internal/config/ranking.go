package config

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// RankingConfig holds the Personalized Reranker's and Recommendation
// Generator's tunable blend weights (§4.4, §4.5) — not the neural head's
// fixed-weight matrices, which are verified-at-startup Go var tables and
// never hot-reloaded.
type RankingConfig struct {
	// Rule-score component weights (§4.4): rule = textRank*RuleTextRankWeight
	// + ((embed+lang+artist)/3)*RulePreferenceWeight +
	// popularity*RulePopularityWeight + interaction*RuleInteractionWeight.
	RuleTextRankWeight    float64 `toml:"rule_text_rank_weight"`
	RulePreferenceWeight  float64 `toml:"rule_preference_weight"`
	RulePopularityWeight  float64 `toml:"rule_popularity_weight"`
	RuleInteractionWeight float64 `toml:"rule_interaction_weight"`

	// Final search-rerank blend (§4.4): final = clamp01(rule)*FinalRuleWeight
	// + neural*FinalNeuralWeight.
	FinalRuleWeight   float64 `toml:"final_rule_weight"`
	FinalNeuralWeight float64 `toml:"final_neural_weight"`

	// Recommendation blend (§4.5): final_rec_score =
	// rule*RecommendRuleWeight + model_score*100*RecommendModelWeight.
	RecommendRuleWeight  float64 `toml:"recommend_rule_weight"`
	RecommendModelWeight float64 `toml:"recommend_model_weight"`
}

// DefaultRankingConfig returns the spec's hard-coded default weights.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		RuleTextRankWeight:    0.4,
		RulePreferenceWeight:  0.3,
		RulePopularityWeight:  0.2,
		RuleInteractionWeight: 0.1,

		FinalRuleWeight:   0.65,
		FinalNeuralWeight: 0.35,

		RecommendRuleWeight:  0.6,
		RecommendModelWeight: 0.4,
	}
}

var (
	rankingCfg     *RankingConfig
	rankingCfgOnce sync.Once
	rankingCfgMu   sync.RWMutex
)

// GetRankingConfig loads the ranking config from TOML at RANKING_CONFIG_PATH, or,
// when that env var is unset, from the first readable file among
// candidateRankingConfigPaths. Falls back to defaults if no file can be read/parsed.
func GetRankingConfig() *RankingConfig {
	rankingCfgOnce.Do(func() {
		cfg := DefaultRankingConfig()
		// Priority 1: explicit env var
		if path := os.Getenv("RANKING_CONFIG_PATH"); path != "" {
			if fileCfg, err := loadRankingConfigFromPath(path); err == nil && fileCfg != nil {
				mergeRankingConfig(cfg, fileCfg)
			}
		} else {
			// Priority 2: well-known default locations
			for _, p := range candidateRankingConfigPaths() {
				if fileCfg, err := loadRankingConfigFromPath(p); err == nil && fileCfg != nil {
					mergeRankingConfig(cfg, fileCfg)
					break
				}
			}
		}
		rankingCfgMu.Lock()
		rankingCfg = cfg
		rankingCfgMu.Unlock()
	})
	rankingCfgMu.RLock()
	cfg := rankingCfg
	rankingCfgMu.RUnlock()
	return cfg
}

func loadRankingConfigFromPath(path string) (*RankingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RankingConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeRankingConfig(base, override *RankingConfig) {
	if override == nil || base == nil {
		return
	}
	if override.RuleTextRankWeight > 0 {
		base.RuleTextRankWeight = override.RuleTextRankWeight
	}
	if override.RulePreferenceWeight > 0 {
		base.RulePreferenceWeight = override.RulePreferenceWeight
	}
	if override.RulePopularityWeight > 0 {
		base.RulePopularityWeight = override.RulePopularityWeight
	}
	if override.RuleInteractionWeight > 0 {
		base.RuleInteractionWeight = override.RuleInteractionWeight
	}
	if override.FinalRuleWeight > 0 {
		base.FinalRuleWeight = override.FinalRuleWeight
	}
	if override.FinalNeuralWeight > 0 {
		base.FinalNeuralWeight = override.FinalNeuralWeight
	}
	if override.RecommendRuleWeight > 0 {
		base.RecommendRuleWeight = override.RecommendRuleWeight
	}
	if override.RecommendModelWeight > 0 {
		base.RecommendModelWeight = override.RecommendModelWeight
	}
}

// candidateRankingConfigPaths returns common locations to auto-discover ranking config
func candidateRankingConfigPaths() []string {
	var paths []string
	// Current working directory
	paths = append(paths,
		"ranking.toml",
		filepath.Join("config", "ranking.toml"),
	)

	// XDG config home
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "songshare", "ranking.toml"))
	}

	// User config under HOME
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "songshare", "ranking.toml"))
	}

	// System-wide fallback
	paths = append(paths, filepath.Join(string(os.PathSeparator), "etc", "songshare", "ranking.toml"))
	return paths
}

// StartRankingConfigWatcher polls the ranking config file for changes and reloads it.
// If a path is provided via RANKING_CONFIG_PATH, that is used. Otherwise, the first
// existing path from candidateRankingConfigPaths is used. If no file exists, the
// watcher is a no-op.
func StartRankingConfigWatcher(ctx context.Context, interval time.Duration) {
	// Determine watched path
	paths := []string{}
	if explicit := os.Getenv("RANKING_CONFIG_PATH"); explicit != "" {
		paths = append(paths, explicit)
	} else {
		paths = append(paths, candidateRankingConfigPaths()...)
	}

	var watchPath string
	var lastModTime time.Time
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			watchPath = p
			lastModTime = fi.ModTime()
			break
		}
	}
	if watchPath == "" {
		slog.Info("ranking config watcher: no config file found; using defaults")
		return
	}

	slog.Info("ranking config watcher: watching file", "path", watchPath)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("ranking config watcher: stopped")
				return
			case <-ticker.C:
				fi, err := os.Stat(watchPath)
				if err != nil || fi.IsDir() {
					continue
				}
				if fi.ModTime().After(lastModTime) {
					if fileCfg, err := loadRankingConfigFromPath(watchPath); err == nil && fileCfg != nil {
						// Merge over defaults to keep unspecified keys sane
						newCfg := DefaultRankingConfig()
						mergeRankingConfig(newCfg, fileCfg)
						rankingCfgMu.Lock()
						rankingCfg = newCfg
						rankingCfgMu.Unlock()
						lastModTime = fi.ModTime()
						slog.Info("ranking config reloaded", "path", watchPath, "mtime", lastModTime)
					}
				}
			}
		}
	}()
}
