// Package shell is an interactive REPL for playing a sliding-tile game:
// manual moves, undo, autonomous play and benchmarks.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/tilecraft/slide/autoplay"
	"github.com/tilecraft/slide/bot"
	"github.com/tilecraft/slide/config"
	"github.com/tilecraft/slide/game"
	"github.com/tilecraft/slide/mechanics"
	"github.com/tilecraft/slide/search"
	"github.com/tilecraft/slide/store"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errQuit              = errors.New("sending quit signal")
)

type Response struct {
	message string
}

func msg(message string) *Response {
	return &Response{message: message}
}

// CmdOptions are the -key value pairs of a command line. A key given more
// than once keeps every value.
type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

// extractFields splits a line into a command, positional arguments and
// -key value options. Quoting follows shell rules.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		// negative numbers are arguments, not options.
		if strings.HasPrefix(f, "-") && len(f) > 1 && !isNumber(f) {
			if i == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := f[1:]
			options[key] = append(options[key], fields[i+1])
			i++
			continue
		}
		args = append(args, f)
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

type ShellController struct {
	l          *readline.Instance
	config     *config.Config
	execPath   string
	gitVersion string

	outMu sync.Mutex
	out   io.Writer

	game   *game.Game
	player *autoplay.Player
	store  *store.Store
	nc     *nats.Conn

	autoCtx     context.Context
	autoCancel  context.CancelFunc
	unsubscribe func()
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func (sc *ShellController) showMessage(msg string) {
	sc.outMu.Lock()
	defer sc.outMu.Unlock()
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// NewShellController wires a game to its recorder and mover from the
// config. A store or NATS connection that cannot be opened is logged and
// left out: results go unrecorded and the search runs in-process.
func NewShellController(cfg *config.Config, execPath, gitVersion string) *ShellController {
	var rec game.Recorder
	st, err := store.Open(context.Background(), cfg.GetString(config.ConfigDBPath))
	if err != nil {
		log.Err(err).Msg("results-store-unavailable")
	} else {
		rec = st
	}

	var mover autoplay.Mover = search.NewLocal(cfg.SearchOptions())
	var nc *nats.Conn
	if cfg.GetBool(config.ConfigRemoteSearch) {
		nc, err = nats.Connect(cfg.GetString(config.ConfigNatsURL))
		if err != nil {
			log.Err(err).Msg("nats-unavailable-searching-locally")
		} else {
			mover = bot.NewClient(nc, cfg.GetString(config.ConfigBotSubject),
				cfg.GetDuration(config.ConfigBotTimeout), uint(cfg.GetInt(config.ConfigBotAttempts)))
		}
	}

	g := game.New(cfg.GameSettings(), mechanics.NewSource(cfg.GetInt64(config.ConfigSeed)), rec)
	sc := newController(cfg, g, mover, os.Stderr)
	sc.execPath = execPath
	sc.gitVersion = gitVersion
	sc.store = st
	sc.nc = nc

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[33mslide>\033[0m ",
		HistoryFile:     "/tmp/slide_readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

func newController(cfg *config.Config, g *game.Game, mover autoplay.Mover, out io.Writer) *ShellController {
	sc := &ShellController{
		config: cfg,
		out:    out,
		game:   g,
		player: autoplay.NewPlayer(g, mover),
	}
	sc.autoCtx, sc.autoCancel = context.WithCancel(context.Background())
	sc.unsubscribe = g.Subscribe(sc.onSnapshot)
	g.NewGame(context.Background())
	return sc
}

// onSnapshot echoes boards committed by the autonomous player. Manual moves
// print their own result.
func (sc *ShellController) onSnapshot(snap game.Snapshot) {
	if !snap.Autoplay {
		return
	}
	sc.showMessage(displayText(snap))
	if snap.Over {
		sc.showMessage("Game over.")
	}
}

func (sc *ShellController) handle(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "new", "n":
		return sc.newGame()
	case "left", "l", "right", "r", "up", "u", "down", "d":
		return sc.move(cmd)
	case "undo", "z":
		return sc.undo()
	case "auto", "a":
		return sc.auto(cmd)
	case "show", "s":
		return sc.show()
	case "depth":
		return sc.depth(cmd)
	case "speed":
		return sc.speed(cmd)
	case "weight":
		return sc.weight(cmd)
	case "algo":
		return sc.algo(cmd)
	case "settings":
		return sc.settings()
	case "best":
		return sc.best()
	case "leaderboard", "lb":
		return sc.leaderboard(cmd)
	case "bench":
		return sc.bench(cmd)
	case "help", "h":
		return sc.help(cmd)
	case "exit", "bye":
		return nil, errQuit
	default:
		msg := fmt.Sprintf("command %v not found", strconv.Quote(cmd.cmd))
		log.Info().Msg(msg)
		return nil, errors.New(msg)
	}
}

// Execute runs a single command line, as given on the command line.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	if sc.executeLine(line) {
		sig <- syscall.SIGINT
	}
}

// executeLine runs one line and reports whether the shell should exit.
func (sc *ShellController) executeLine(line string) bool {
	cmd, err := extractFields(line)
	if err != nil {
		if !errors.Is(err, errNoData) {
			sc.showError(err)
		}
		return false
	}
	resp, err := sc.handle(cmd)
	if errors.Is(err, errQuit) {
		return true
	}
	if err != nil {
		sc.showError(err)
	} else if resp != nil {
		sc.showMessage(resp.message)
	}
	return false
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		if sc.executeLine(strings.TrimSpace(line)) {
			sig <- syscall.SIGINT
			break
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup stops autonomous play and releases the store and NATS connection.
func (sc *ShellController) Cleanup() {
	sc.autoCancel()
	sc.game.SetAutoplay(false)
	sc.unsubscribe()
	sc.game.Close()
	if sc.nc != nil {
		sc.nc.Close()
	}
	if sc.store != nil {
		if err := sc.store.Close(); err != nil {
			log.Err(err).Msg("store-close")
		}
	}
}
