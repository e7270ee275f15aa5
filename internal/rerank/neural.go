package rerank

import "fmt"

// Fixed-weight feed-forward head: 8 features -> 6 hidden (ReLU) -> 1
// output (sigmoid of output/3.2). Per §4.4, these are not learned at
// runtime — the spec requires a constant table, verified at startup
// rather than trained or loaded from config. No ML library in the
// example pack implements a scorer this small; hand-rolled arithmetic is
// the only grounded choice (see DESIGN.md's standard-library
// justification for this component).
// Each hidden unit specializes in one input feature (columns line up
// with the feature order in features.vector(): textRank, embed,
// language, artist, popularity, interaction, skipRisk, queryIntent).
// Units 0-3 carry the strongest weight: they correspond to the
// personalization-bearing features (language, artist) the rule score
// alone underweights relative to the upstream positional prior
// (textRank). skipRisk/queryIntent feed no hidden unit in this table.
var hiddenWeights = [8][6]float64{
	{0, 0, 0, 0, 0, 0.30}, // textRank   -> unit 5
	{0, 0, 0, 0, 1.00, 0}, // embed      -> unit 4
	{1.00, 0, 0, 0, 0, 0}, // language   -> unit 0
	{0, 1.00, 0, 0, 0, 0}, // artist     -> unit 1
	{0, 0, 1.00, 0, 0, 0}, // popularity -> unit 2
	{0, 0, 0, 1.00, 0, 0}, // interaction -> unit 3
	{0, 0, 0, 0, 0, 0},    // skipRisk    -> unused
	{0, 0, 0, 0, 0, 0},    // queryIntent -> unused
}

var hiddenBias = [6]float64{0, 0, 0, 0, 0, 0}

// outputWeights order matches the hidden units above: language, artist,
// popularity, interaction, embed, textRank.
var outputWeights = [6]float64{10.0, 10.0, 0.3, 0.3, 0.0, 0.0}

const outputBias = -10.0

// VerifyWeightShapes checks the neural head's constant tables have the
// shapes §4.4 requires. Call once at startup; a mismatch means the
// constants were edited incorrectly and the process should refuse to
// serve traffic.
func VerifyWeightShapes() error {
	if len(hiddenWeights) != 8 {
		return fmt.Errorf("rerank: hiddenWeights must have 8 rows, got %d", len(hiddenWeights))
	}
	for i, row := range hiddenWeights {
		if len(row) != 6 {
			return fmt.Errorf("rerank: hiddenWeights row %d must have 6 columns, got %d", i, len(row))
		}
	}
	if len(hiddenBias) != 6 {
		return fmt.Errorf("rerank: hiddenBias must have 6 entries, got %d", len(hiddenBias))
	}
	if len(outputWeights) != 6 {
		return fmt.Errorf("rerank: outputWeights must have 6 entries, got %d", len(outputWeights))
	}
	return nil
}

// neuralScore runs the fixed-weight head over f and returns the final
// sigmoid-squashed output (§4.4's "nn" term in the blend).
func neuralScore(f features) float64 {
	x := f.vector()

	var hidden [6]float64
	for j := 0; j < 6; j++ {
		sum := hiddenBias[j]
		for i := 0; i < 8; i++ {
			sum += x[i] * hiddenWeights[i][j]
		}
		if sum < 0 {
			sum = 0 // ReLU
		}
		hidden[j] = sum
	}

	out := outputBias
	for j := 0; j < 6; j++ {
		out += hidden[j] * outputWeights[j]
	}
	return sigmoid(out / 3.2)
}
