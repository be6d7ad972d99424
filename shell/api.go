package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tilecraft/slide/benchmark"
	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/game"
	"github.com/tilecraft/slide/search"
)

const waitTimeout = 10 * time.Second

var errNoStore = errors.New("no results store is open")

func displayText(snap game.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Score: %d  Best: %d  Moves: %d", snap.Score, snap.Best, snap.Moves)
	if snap.Autoplay {
		sb.WriteString("  [auto]")
	}
	sb.WriteString("\n")
	sb.WriteString(snap.Board.String())
	if snap.Over {
		sb.WriteString("No moves left.\n")
	}
	return sb.String()
}

func (sc *ShellController) newGame() (*Response, error) {
	sc.game.NewGame(context.Background())
	return msg(displayText(sc.game.Snapshot())), nil
}

func (sc *ShellController) show() (*Response, error) {
	return msg(displayText(sc.game.Snapshot())), nil
}

func (sc *ShellController) move(cmd *shellcmd) (*Response, error) {
	d, err := board.ParseDirection(cmd.cmd)
	if err != nil {
		return nil, err
	}
	if sc.game.Snapshot().Over {
		return nil, errors.New("game is over; start a new one with `new`")
	}
	sc.game.Move(d)
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := sc.game.WaitIdle(ctx); err != nil {
		return nil, err
	}
	return msg(displayText(sc.game.Snapshot())), nil
}

func (sc *ShellController) undo() (*Response, error) {
	if !sc.game.Undo() {
		return nil, errors.New("nothing to undo")
	}
	return msg(displayText(sc.game.Snapshot())), nil
}

// auto toggles autonomous play, or sets it with `auto on` / `auto off`.
func (sc *ShellController) auto(cmd *shellcmd) (*Response, error) {
	on := !sc.game.Snapshot().Autoplay
	if len(cmd.args) > 0 {
		switch cmd.args[0] {
		case "on":
			on = true
		case "off", "stop":
			on = false
		default:
			return nil, errors.New("auto [on|off]")
		}
	}
	if !on {
		sc.game.SetAutoplay(false)
		return msg("Autoplay off."), nil
	}
	if sc.game.Snapshot().Over {
		return nil, errors.New("game is over; start a new one with `new`")
	}
	sc.player.Start(sc.autoCtx)
	s := sc.game.Settings()
	return msg(fmt.Sprintf("Autoplay on: %s, depth %d, every %v.", s.Algorithm, s.Depth, s.Interval)), nil
}

func (sc *ShellController) depth(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("depth <n>")
	}
	n, err := strconv.Atoi(cmd.args[0])
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, errors.New("depth must be at least 1")
	}
	sc.game.UpdateSettings(func(s *game.Settings) { s.Depth = n })
	return msg(fmt.Sprintf("Search depth set to %d.", n)), nil
}

// speed sets the wait between autonomous turns. A bare number is read as
// milliseconds.
func (sc *ShellController) speed(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("speed <duration|ms>")
	}
	d, err := parseInterval(cmd.args[0])
	if err != nil {
		return nil, err
	}
	sc.game.UpdateSettings(func(s *game.Settings) { s.Interval = d })
	return msg(fmt.Sprintf("Autoplay interval set to %v.", d)), nil
}

func parseInterval(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		if ms < 0 {
			return 0, errors.New("interval cannot be negative")
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("interval cannot be negative")
	}
	return d, nil
}

func (sc *ShellController) weight(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 2 {
		return nil, errors.New("weight <empty|smooth|mono|max> <value>")
	}
	v, err := strconv.ParseFloat(cmd.args[1], 64)
	if err != nil {
		return nil, err
	}
	var setErr error
	s := sc.game.UpdateSettings(func(s *game.Settings) {
		setErr = s.Weights.Set(cmd.args[0], v)
	})
	if setErr != nil {
		return nil, setErr
	}
	return msg("Weights: " + s.Weights.String()), nil
}

func (sc *ShellController) algo(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		var sb strings.Builder
		cur := sc.game.Settings().Algorithm
		for _, a := range search.Algorithms {
			mark := " "
			if a == cur {
				mark = "*"
			}
			fmt.Fprintf(&sb, "%s %s\n", mark, a)
		}
		return msg(sb.String()), nil
	}
	a := search.ParseAlgorithm(strings.Join(cmd.args, " "))
	sc.game.UpdateSettings(func(s *game.Settings) { s.Algorithm = a })
	return msg(fmt.Sprintf("Algorithm set to %s.", a)), nil
}

func (sc *ShellController) settings() (*Response, error) {
	s := sc.game.Settings()
	var sb strings.Builder
	sb.WriteString("Settings:\n")
	identity := s.Identity
	if identity == "" {
		identity = "(anonymous)"
	}
	fmt.Fprintf(&sb, "  identity: %s\n", identity)
	fmt.Fprintf(&sb, "  algorithm: %s\n", s.Algorithm)
	fmt.Fprintf(&sb, "  depth: %d\n", s.Depth)
	fmt.Fprintf(&sb, "  weights: %s\n", s.Weights)
	fmt.Fprintf(&sb, "  interval: %v\n", s.Interval)
	fmt.Fprintf(&sb, "  settle: %v (skipped below %v while autoplaying)\n",
		s.Pacing.Settle, s.Pacing.FastThreshold)
	return msg(sb.String()), nil
}

func (sc *ShellController) best() (*Response, error) {
	snap := sc.game.Snapshot()
	identity := sc.game.Settings().Identity
	if sc.store == nil || identity == "" {
		return msg(fmt.Sprintf("Best this session: %d", snap.Best)), nil
	}
	pb, err := sc.store.PersonalBest(context.Background(), identity)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("Best this session: %d\nPersonal best for %s: %d", snap.Best, identity, pb)), nil
}

func (sc *ShellController) leaderboard(cmd *shellcmd) (*Response, error) {
	if sc.store == nil {
		return nil, errNoStore
	}
	n := 0
	if len(cmd.args) > 0 {
		var err error
		if n, err = strconv.Atoi(cmd.args[0]); err != nil {
			return nil, err
		}
	}
	entries, err := sc.store.Leaderboard(context.Background(), n)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return msg("No results recorded yet."), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-4s%-16s%-8s%-8s%-7s%s\n", "#", "Player", "Score", "Tile", "Moves", "Played by")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%-4d%-16s%-8d%-8d%-7d%s\n", i+1, e.Identity, e.Score, e.MaxTile, e.Moves, e.Algorithm)
	}
	return msg(sb.String()), nil
}

// bench plays -games self-play games with the current search settings.
// -out writes the report as YAML.
func (sc *ShellController) bench(cmd *shellcmd) (*Response, error) {
	games, err := cmd.options.IntDefault("games", benchmark.DefaultGames)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", 0)
	if err != nil {
		return nil, err
	}
	maxMoves, err := cmd.options.IntDefault("moves", benchmark.MaxMoves)
	if err != nil {
		return nil, err
	}
	opts := sc.config.SearchOptions()
	s := sc.game.Settings()
	opts.Depth = s.Depth
	opts.Algorithm = s.Algorithm
	opts.Weights = s.Weights

	sc.showMessage(fmt.Sprintf("Benchmarking %s at depth %d over %d games...", opts.Algorithm, opts.Depth, games))
	r, err := benchmark.Run(context.Background(), benchmark.Options{
		Games:    games,
		Threads:  threads,
		MaxMoves: maxMoves,
		Search:   opts,
	})
	if err != nil {
		return nil, err
	}
	if path := cmd.options.String("out"); path != "" {
		out, err := r.YAML()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return nil, err
		}
	}
	var sb strings.Builder
	if err := r.Fprint(&sb); err != nil {
		return nil, err
	}
	return msg(sb.String()), nil
}
