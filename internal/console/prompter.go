package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Prompter asks the user a question and returns the answer. It returns
// context.Canceled when the user aborts and io.EOF when input ends.
type Prompter interface {
	Ask(ctx context.Context, question string) (string, error)
}

// NewPrompter returns an interactive editor when in is a terminal and a
// plain line reader otherwise.
func NewPrompter(in *os.File, out io.Writer) Prompter {
	if term.IsTerminal(int(in.Fd())) {
		return &TeaPrompter{in: in, out: out}
	}
	return NewLinePrompter(in, out)
}

// LinePrompter reads one line per answer.
type LinePrompter struct {
	r       *bufio.Reader
	out     io.Writer
	lines   chan lineResult
	pending bool
}

type lineResult struct {
	text string
	err  error
}

// NewLinePrompter creates a prompter reading lines from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		r:     bufio.NewReader(in),
		out:   out,
		lines: make(chan lineResult, 1),
	}
}

func (p *LinePrompter) read() {
	line, err := p.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	p.lines <- lineResult{text: strings.TrimRight(line, "\r\n"), err: err}
}

// Ask prints question and waits for a line. A read left pending by a
// cancelled Ask serves the next call.
func (p *LinePrompter) Ask(ctx context.Context, question string) (string, error) {
	if question != "" {
		fmt.Fprintln(p.out, agentStyle.Render(question))
	}
	fmt.Fprint(p.out, "> ")

	if !p.pending {
		p.pending = true
		go p.read()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-p.lines:
		p.pending = false
		return r.text, r.err
	}
}

// TeaPrompter shows the question above a multi-line editor. Enter submits,
// Alt+Enter inserts a newline, Esc or Ctrl+C aborts.
type TeaPrompter struct {
	in  io.Reader
	out io.Writer
}

// Ask implements Prompter.
func (p *TeaPrompter) Ask(ctx context.Context, question string) (string, error) {
	prog := tea.NewProgram(newAskModel(question),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		return "", fmt.Errorf("running prompt: %w", err)
	}

	m := final.(askModel)
	if m.aborted {
		return "", context.Canceled
	}
	if question != "" {
		fmt.Fprintln(p.out, agentStyle.Render(question))
	}
	fmt.Fprintln(p.out, "> "+m.answer)
	return m.answer, nil
}

type askModel struct {
	question string
	ta       textarea.Model
	answer   string
	aborted  bool
	done     bool
}

func newAskModel(question string) askModel {
	ta := textarea.New()
	ta.Placeholder = "Type your answer. Enter to send, leave empty to let the agent decide."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(4)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()
	return askModel{question: question, ta: ta}
}

func (m askModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ta.SetWidth(max(20, msg.Width-4))
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			if msg.Alt {
				break
			}
			m.answer = strings.TrimSpace(m.ta.Value())
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m askModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	var sb strings.Builder
	if m.question != "" {
		sb.WriteString(boxStyle.Render(m.question))
		sb.WriteString("\n")
	}
	sb.WriteString(m.ta.View())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Enter send • Alt+Enter newline • Esc cancel"))
	return sb.String()
}

// ErrEmptyIdea is returned by AskIdea when the user gives no idea.
var ErrEmptyIdea = errors.New("no game idea provided")

// AskIdea prompts for the game idea.
func AskIdea(ctx context.Context, p Prompter) (string, error) {
	idea, err := p.Ask(ctx, "Describe your game idea:")
	if err != nil {
		return "", err
	}
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return "", ErrEmptyIdea
	}
	return idea, nil
}
