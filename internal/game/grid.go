// internal/game/grid.go
//
// Grid generation.
//
// A grid of n×n tiles is built from random color pairs:
//   1. Draw n²/2 colors (with replacement) from the usable palette.
//   2. Duplicate the draws so every drawn color contributes a pair.
//   3. Odd boards get one extra unpaired tile.
//   4. Top up / truncate to exactly n², then shuffle.
//
// The usable palette is the first max(2, n) colors of the active palette.
// Colors repeat across pairs on purpose, so per-color counts vary.

package game

import (
	"github.com/google/uuid"
)

const (
	// MinDimension is the smallest board the engine will build (2×2).
	MinDimension = 2
	// MaxDimension bounds board size for callers that take it from user input.
	MaxDimension = 16
)

// Rand is the randomness the grid builder needs.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// UsablePalette returns the prefix of palette that a board of dimension n draws from.
func UsablePalette(palette []string, n int) []string {
	k := max(2, n)
	if k > len(palette) {
		k = len(palette)
	}
	return palette[:k]
}

// BuildGrid returns a shuffled grid of n² tiles whose ColorIndex values index into
// UsablePalette(palette, n).
func BuildGrid(n int, palette []string, rng Rand) ([]Tile, error) {
	if err := validateDimension(n); err != nil {
		return nil, err
	}
	if err := validatePalette(palette); err != nil {
		return nil, err
	}

	usable := len(UsablePalette(palette, n))
	total := n * n
	pairs := total / 2

	colors := make([]int, 0, total+1)
	for i := 0; i < pairs; i++ {
		colors = append(colors, rng.IntN(usable))
	}
	colors = append(colors, colors...)

	if total%2 == 1 {
		colors = append(colors, rng.IntN(usable))
	}
	for len(colors) < total {
		colors = append(colors, rng.IntN(usable))
	}
	colors = colors[:total]
	rng.Shuffle(len(colors), func(i, j int) { colors[i], colors[j] = colors[j], colors[i] })

	grid := make([]Tile, total)
	for i, c := range colors {
		grid[i] = Tile{ID: uuid.NewString(), ColorIndex: c}
	}
	return grid, nil
}

// ColorCounts tallies tiles per ColorIndex.
func ColorCounts(grid []Tile) map[int]int {
	out := make(map[int]int)
	for _, t := range grid {
		out[t.ColorIndex]++
	}
	return out
}

func validateDimension(n int) error {
	if n < MinDimension || n > MaxDimension {
		return &ConfigurationError{Field: "dimension", Reason: "must be between 2 and 16"}
	}
	return nil
}

func validatePalette(palette []string) error {
	if len(palette) < 2 {
		return &ConfigurationError{Field: "palette", Reason: "needs at least 2 colors"}
	}
	seen := make(map[string]struct{}, len(palette))
	for _, c := range palette {
		if _, dup := seen[c]; dup {
			return &ConfigurationError{Field: "palette", Reason: "duplicate color " + c}
		}
		seen[c] = struct{}{}
	}
	return nil
}
