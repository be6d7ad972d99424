package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellCompleter completes command names and their arguments for readline.
type ShellCompleter struct{}

func NewShellCompleter() *ShellCompleter {
	return &ShellCompleter{}
}

type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"auto":   {Args: []string{"on", "off"}},
	"bench":  {Options: []string{"-games", "-threads", "-moves", "-out"}},
	"weight": {Args: []string{"empty", "smooth", "mono", "max"}},
	"algo":   {Args: []string{"expectimax", "minimax", "mcts", "dfs", "bfs"}},
	"help":   {Args: []string{"auto", "bench", "weight"}},
}

var commandNames = []string{
	"new", "left", "right", "up", "down", "undo", "auto", "show", "depth",
	"speed", "weight", "algo", "settings", "best", "leaderboard", "bench",
	"help", "exit",
}

// Do implements readline.AutoCompleter.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string
	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		if md, ok := commandMetadata[fields[0]]; ok {
			if strings.HasPrefix(prefix, "-") || len(md.Args) == 0 {
				completions = md.Options
			} else {
				completions = md.Args
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
