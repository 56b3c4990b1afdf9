package ui

import (
	"context"
	"errors"
	"sync"

	"github.com/chzyer/readline"
)

// ErrInterrupt is returned when the user presses Ctrl+C at a prompt.
var ErrInterrupt = errors.New("interrupted")

// LineReader reads one line at a time. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

type lineResult struct {
	line string
	err  error
}

// Input serializes line reads from the chat loop and the confirmation
// prompt. A read abandoned by its context stays outstanding: the next
// ReadLine takes it over, replacing its prompt, and receives its line.
type Input struct {
	reader LineReader
	// turn admits one ReadLine at a time.
	turn chan struct{}

	mu sync.Mutex
	// pending delivers the outstanding read, if any.
	pending chan lineResult
}

// NewInput wraps reader.
func NewInput(reader LineReader) *Input {
	return &Input{
		reader: reader,
		turn:   make(chan struct{}, 1),
	}
}

// NewReadline creates a readline instance with history and completion of
// the chat commands.
func NewReadline(historyFile string, commands ...string) (*readline.Instance, error) {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
}

func (in *Input) read(prompt string, out chan<- lineResult) {
	in.reader.SetPrompt(prompt)
	line, err := in.reader.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		err = ErrInterrupt
	}
	out <- lineResult{line: line, err: err}
}

// ReadLine shows prompt and waits for a line. It returns io.EOF at end of
// input and ErrInterrupt on Ctrl+C.
func (in *Input) ReadLine(ctx context.Context, prompt string) (string, error) {
	select {
	case in.turn <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-in.turn }()

	in.mu.Lock()
	ch := in.pending
	if ch == nil {
		ch = make(chan lineResult, 1)
		in.pending = ch
		go in.read(prompt, ch)
	} else {
		in.reader.SetPrompt(prompt)
	}
	in.mu.Unlock()

	select {
	case res := <-ch:
		in.mu.Lock()
		in.pending = nil
		in.mu.Unlock()
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
