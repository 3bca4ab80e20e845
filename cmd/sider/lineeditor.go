// =============================================================================
// lineeditor.go - Line Editor with Dual-Mode Operation
// =============================================================================
//
// The line editor picks its input method from the terminal:
//
//   - Interactive mode: ergochat/readline with Emacs keybindings, persistent
//     history, Ctrl-R search and tab completion of shell verbs.
//   - Non-interactive mode: bufio.Scanner over the input, printing the prompt
//     manually. Used for piped input (echo "GET k" | sider), Emacs comint,
//     and tests.
//
// History lives at ~/.sider_history by default with a 500-entry limit; both
// are configurable (history.file / history.size).
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

// errInterrupted is returned by GetLine when the user presses Ctrl-C at the
// prompt. The shell keeps running.
var errInterrupted = errors.New("interrupted")

// historyConfig configures persistent history. An empty file disables it.
type historyConfig struct {
	file string
	size int
}

// LineEditor wraps line editing with dual-mode operation.
type LineEditor struct {
	// interactive is true when input is a TTY outside Emacs.
	interactive bool

	// rl is the readline instance in interactive mode, nil otherwise.
	rl *readline.Instance

	// scanner reads lines in non-interactive mode, nil otherwise.
	scanner *bufio.Scanner

	// out receives the prompt in non-interactive mode.
	out io.Writer

	// closeOnce guards rl.Close. rl itself is never reassigned after
	// construction, so the signal handler can close the editor while the
	// loop is blocked in Readline.
	closeOnce sync.Once
}

// GO CONCEPT: Accepting Interfaces
// --------------------------------
// NewLineEditor takes an io.Reader rather than reading os.Stdin directly.
// Only an *os.File can be a terminal, so a type assertion decides whether
// readline is possible; any other reader (a pipe, a strings.Reader in a
// test) gets the scanner path.

// NewLineEditor creates a LineEditor reading from in, with automatic mode
// detection. Prompts in non-interactive mode are written to out.
func NewLineEditor(in io.Reader, out io.Writer, history historyConfig) *LineEditor {
	nonInteractive := &LineEditor{
		scanner: bufio.NewScanner(in),
		out:     out,
	}

	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) || os.Getenv("INSIDE_EMACS") != "" {
		return nonInteractive
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            history.file,
		HistoryLimit:           history.size,
		DisableAutoSaveHistory: true,
		AutoComplete:           newCompleter(),
		Prompt:                 "",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return nonInteractive
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
		out:         out,
	}
}

// completionVerbs are offered by tab completion, in display order.
var completionVerbs = []string{"PUT", "GET", "DEL", "COMPACT", "CONNECT", "STATS", "HELP", "EXIT", "QUIT"}

// newCompleter completes shell verbs and HELP topics.
func newCompleter() *readline.PrefixCompleter {
	items := make([]*readline.PrefixCompleter, 0, len(completionVerbs))
	for _, verb := range completionVerbs {
		if verb != "HELP" {
			items = append(items, readline.PcItem(verb))
			continue
		}
		topics := make([]*readline.PrefixCompleter, 0, len(completionVerbs))
		for _, v := range completionVerbs {
			if v != "HELP" && v != "QUIT" {
				topics = append(topics, readline.PcItem(strings.ToLower(v)))
			}
		}
		items = append(items, readline.PcItem(verb, topics...))
	}
	return readline.NewPrefixCompleter(items...)
}

// GetLine reads one line with the given prompt.
//
// It returns ("", io.EOF) on Ctrl-D or exhausted input and
// ("", errInterrupted) on Ctrl-C in interactive mode.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", errInterrupted
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close saves history and releases the terminal. It is idempotent and safe
// to call from another goroutine while GetLine is blocked; the pending
// GetLine then returns an error.
func (le *LineEditor) Close() {
	le.closeOnce.Do(func() {
		if le.rl != nil {
			le.rl.Close()
		}
	})
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}
