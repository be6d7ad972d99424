package benchmark

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/tilecraft/slide/heuristic"
	"github.com/tilecraft/slide/search"
	"github.com/tilecraft/slide/stats"
)

// TileCount is how often a max tile was reached.
type TileCount struct {
	Tile    int     `yaml:"tile" json:"tile"`
	Count   int     `yaml:"count" json:"count"`
	Percent float64 `yaml:"percent" json:"percent"`
}

type Report struct {
	Algorithm string            `yaml:"algorithm" json:"algorithm"`
	Depth     int               `yaml:"depth" json:"depth"`
	Weights   heuristic.Weights `yaml:"weights" json:"weights"`

	Games int `yaml:"total_games" json:"total_games"`
	// WinRate is the percentage of games that reached WinTile.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`

	AvgScore    float64 `yaml:"avg_score" json:"avg_score"`
	MaxScore    float64 `yaml:"max_score" json:"max_score"`
	StdDevScore float64 `yaml:"std_dev_score" json:"std_dev_score"`
	MedianScore float64 `yaml:"median_score" json:"median_score"`
	// ScoreCI95 is the half-width of the 95% interval around AvgScore.
	ScoreCI95 float64 `yaml:"score_ci95" json:"score_ci95"`

	AvgMoves float64 `yaml:"avg_moves" json:"avg_moves"`

	AvgTimePerGame float64 `yaml:"avg_time_per_game" json:"avg_time_per_game"`
	TotalDuration  float64 `yaml:"total_duration" json:"total_duration"`
	Elapsed        float64 `yaml:"elapsed" json:"elapsed"`

	TileDistribution []TileCount `yaml:"tile_distribution" json:"tile_distribution"`

	Records []GameRecord `yaml:"-" json:"-"`
}

// Summarize aggregates game records. Durations are in seconds.
func Summarize(opts search.Options, records []GameRecord) *Report {
	r := &Report{
		Algorithm: string(opts.Algorithm),
		Depth:     opts.Depth,
		Weights:   opts.Weights,
		Games:     len(records),
		Records:   records,
	}
	if len(records) == 0 {
		return r
	}
	var score, moves, secs stats.Statistic
	for _, rec := range records {
		score.Push(float64(rec.Score))
		moves.Push(float64(rec.Moves))
		secs.Push(rec.Duration.Seconds())
	}
	r.AvgScore = score.Mean()
	r.MaxScore = score.Max()
	r.StdDevScore = score.Stdev()
	r.ScoreCI95 = score.MarginOfError(95)
	r.AvgMoves = moves.Mean()
	r.AvgTimePerGame = secs.Mean()
	r.TotalDuration = secs.Mean() * float64(secs.Count())

	sorted := r.Scores()
	slices.Sort(sorted)
	r.MedianScore = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	n := len(records)
	wins := lo.CountBy(records, func(rec GameRecord) bool { return rec.MaxTile >= WinTile })
	r.WinRate = float64(wins) / float64(n) * 100

	counts := lo.CountValuesBy(records, func(rec GameRecord) int { return rec.MaxTile })
	tiles := lo.Keys(counts)
	sort.Sort(sort.Reverse(sort.IntSlice(tiles)))
	r.TileDistribution = lo.Map(tiles, func(tile int, _ int) TileCount {
		return TileCount{
			Tile:    tile,
			Count:   counts[tile],
			Percent: float64(counts[tile]) / float64(n) * 100,
		}
	})
	return r
}

// Scores returns the per-game scores in play order.
func (r *Report) Scores() []float64 {
	return lo.Map(r.Records, func(rec GameRecord, _ int) float64 {
		return float64(rec.Score)
	})
}

func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// Fprint writes a human-readable summary followed by a score histogram.
func (r *Report) Fprint(w io.Writer) error {
	var ss strings.Builder
	fmt.Fprintf(&ss, "%-20s%s (depth %d)\n", "Algorithm", r.Algorithm, r.Depth)
	fmt.Fprintf(&ss, "%-20s%s\n", "Weights", r.Weights)
	fmt.Fprintf(&ss, "%-20s%d\n", "Games", r.Games)
	fmt.Fprintf(&ss, "%-20s%.1f%%\n", "Win rate", r.WinRate)
	fmt.Fprintf(&ss, "%-20s%.1f ± %.1f\n", "Avg score", r.AvgScore, r.ScoreCI95)
	fmt.Fprintf(&ss, "%-20s%.0f\n", "Median score", r.MedianScore)
	fmt.Fprintf(&ss, "%-20s%.0f\n", "Max score", r.MaxScore)
	fmt.Fprintf(&ss, "%-20s%.1f\n", "Std dev", r.StdDevScore)
	fmt.Fprintf(&ss, "%-20s%.1f\n", "Avg moves", r.AvgMoves)
	fmt.Fprintf(&ss, "%-20s%.2fs\n", "Avg time per game", r.AvgTimePerGame)
	fmt.Fprintf(&ss, "\n%-8s%-8s%-8s\n", "Tile", "Count", "%")
	for _, tc := range r.TileDistribution {
		fmt.Fprintf(&ss, "%-8d%-8d%-8.1f\n", tc.Tile, tc.Count, tc.Percent)
	}
	if _, err := io.WriteString(w, ss.String()); err != nil {
		return err
	}
	scores := r.Scores()
	// a histogram needs a spread of values.
	if len(lo.Uniq(scores)) < 2 {
		return nil
	}
	if _, err := io.WriteString(w, "\nScores:\n"); err != nil {
		return err
	}
	return histogram.Fprint(w, histogram.Hist(10, scores), histogram.Linear(40))
}
