package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/gradeprobe/internal/assessment"
	"github.com/abhisek/gradeprobe/internal/ui/components"
)

type phase int

const (
	phaseQuestion phase = iota
	phaseSubmitting
	phaseQuitConfirm
	phaseDone
)

const answerCharLimit = 80

// Engine is the part of the session manager the screen drives.
type Engine interface {
	Submit(ctx context.Context, sessionID, answer string) (*assessment.Outcome, error)
	Abort(ctx context.Context, sessionID string) error
}

// Model is the interactive assessment screen for one started session.
type Model struct {
	ctx       context.Context
	engine    Engine
	sessionID string
	subject   string
	total     int

	item     *assessment.Item
	number   int
	input    components.AnswerInput
	choices  components.ChoiceList
	mcActive bool

	phase    phase
	feedback *assessment.Response
	notice   string
	// queued holds keys typed while an answer is being processed. They
	// are replayed against the next item.
	queued []tea.KeyPressMsg

	result  *assessment.Result
	aborted bool
	err     error
}

var _ tea.Model = (*Model)(nil)

// New creates the screen for a session started with h.
func New(ctx context.Context, engine Engine, h *assessment.Handle, subject string, totalItems int) *Model {
	m := &Model{
		ctx:       ctx,
		engine:    engine,
		sessionID: h.SessionID,
		subject:   subject,
		total:     totalItems,
		number:    1,
	}
	m.show(h.Item)
	return m
}

func (m *Model) Init() tea.Cmd {
	if m.mcActive {
		return nil
	}
	return m.input.Init()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case answerResultMsg:
		return m.handleAnswer(msg)
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	// Cursor blinks and other input events.
	if m.phase == phaseQuestion && !m.mcActive {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Result returns the final result, or nil if the session did not complete.
func (m *Model) Result() *assessment.Result { return m.result }

// Aborted reports whether the student quit the session.
func (m *Model) Aborted() bool { return m.aborted }

// Err returns the error that ended the session early, if any.
func (m *Model) Err() error { return m.err }

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}

	switch m.phase {
	case phaseDone:
		return m, tea.Quit
	case phaseSubmitting:
		m.queued = append(m.queued, msg)
		return m, nil
	case phaseQuitConfirm:
		switch key {
		case "y", "Y":
			return m.quit()
		case "n", "N", "esc":
			m.phase = phaseQuestion
		}
		return m, nil
	}

	if key == "esc" {
		m.phase = phaseQuitConfirm
		return m, nil
	}

	if m.mcActive {
		m.choices, _ = m.choices.Update(msg)
		if m.choices.Chosen {
			return m.submit(m.choices.Value())
		}
		return m, nil
	}

	if key == "enter" {
		return m.submit(m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends answer to the engine. Blank answers are rejected here so
// the item stays on screen.
func (m *Model) submit(answer string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(answer) == "" {
		m.notice = "Please enter an answer."
		return m, nil
	}
	m.notice = ""
	m.phase = phaseSubmitting

	ctx, engine, id := m.ctx, m.engine, m.sessionID
	return m, func() tea.Msg {
		out, err := engine.Submit(ctx, id, answer)
		return answerResultMsg{Outcome: out, Err: err}
	}
}

func (m *Model) handleAnswer(msg answerResultMsg) (tea.Model, tea.Cmd) {
	if m.phase == phaseDone {
		return m, nil
	}

	if errors.Is(msg.Err, assessment.ErrEmptyAnswer) {
		m.notice = "Please enter an answer."
		m.phase = phaseQuestion
		m.show(m.item)
		return m.replay(nil)
	}
	if msg.Outcome == nil {
		m.err = fmt.Errorf("submit answer: %w", msg.Err)
		return m.finish()
	}

	resp := msg.Outcome.Response
	m.feedback = &resp
	switch {
	case msg.Err != nil:
		m.err = fmt.Errorf("session aborted after %d answers: %w", resp.SequenceIndex, msg.Err)
		return m.finish()
	case msg.Outcome.Complete():
		m.result = msg.Outcome.Result
		return m.finish()
	}

	m.number++
	m.phase = phaseQuestion
	return m.replay(m.show(msg.Outcome.NextItem))
}

// replay feeds keys queued during submission to the new item.
func (m *Model) replay(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	queued := m.queued
	m.queued = nil

	cmds := []tea.Cmd{cmd}
	for _, k := range queued {
		_, c := m.handleKey(k)
		cmds = append(cmds, c)
		if m.phase == phaseDone {
			break
		}
	}
	return m, tea.Batch(cmds...)
}

// show puts item on screen with the matching answer widget.
func (m *Model) show(item *assessment.Item) tea.Cmd {
	m.item = item
	if _, ok := item.Kind.(assessment.MultipleChoice); ok {
		m.mcActive = true
		m.choices = components.NewChoiceList(item)
		return nil
	}
	m.mcActive = false
	m.input = components.NewAnswerInput("Type your answer...", answerCharLimit)
	return m.input.Init()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.phase != phaseDone {
		if err := m.engine.Abort(m.ctx, m.sessionID); err != nil {
			m.err = err
		}
		m.aborted = true
	}
	return m.finish()
}

func (m *Model) finish() (tea.Model, tea.Cmd) {
	m.phase = phaseDone
	m.queued = nil
	return m, tea.Quit
}
