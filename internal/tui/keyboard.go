// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"polysynth/internal/audio"
	"polysynth/internal/control"
	"polysynth/internal/synth"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	refreshInterval = 100 * time.Millisecond

	defaultBaseNote = 60 // C4 on the home row's first key
	minBaseNote     = 24
	maxBaseNote     = 96

	amplitudeStep = 0.1
	maxKnobHz     = 2000
)

// pianoKeys maps the home row to a chromatic octave, black keys on the row above.
var pianoKeys = map[string]uint8{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4, "f": 5, "t": 6,
	"g": 7, "y": 8, "h": 9, "u": 10, "j": 11, "k": 12,
}

var (
	octaveDownKeys = key.NewBinding(key.WithKeys("z"))
	octaveUpKeys   = key.NewBinding(key.WithKeys("x"))
	louderKeys     = key.NewBinding(key.WithKeys("=", "+"))
	softerKeys     = key.NewBinding(key.WithKeys("-", "_"))
	knobUpKeys     = key.NewBinding(key.WithKeys("]"))
	knobDownKeys   = key.NewBinding(key.WithKeys("["))
	panicKeys      = key.NewBinding(key.WithKeys(" ", "space"))
	exitKeys       = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))
)

// StatusSource is the engine view the keyboard displays.
type StatusSource interface {
	Snapshot() audio.Snapshot
}

// PeakSource reports the dominant output frequency.
type PeakSource interface {
	PeakFrequency() float64
}

type tickMsg time.Time

// KeyboardModel turns key presses into control messages. Terminals report
// no key-up events, so a piano key toggles its note: the first press
// triggers it and the second releases it.
type KeyboardModel struct {
	sender   control.Sender
	status   StatusSource
	spectrum PeakSource

	baseNote  int
	held      map[string]float64 // sounding pitch per toggled key
	lastKey   string             // key of the voice the frequency knob moves
	amplitude float64
	frequency float64

	snapshot audio.Snapshot
	dropped  int
}

// NewKeyboardModel starts the knobs at amplitude and frequency. spectrum
// may be nil.
func NewKeyboardModel(sender control.Sender, status StatusSource, spectrum PeakSource, amplitude, frequency float64) KeyboardModel {
	return KeyboardModel{
		sender:    sender,
		status:    status,
		spectrum:  spectrum,
		baseNote:  defaultBaseNote,
		held:      make(map[string]float64),
		amplitude: amplitude,
		frequency: frequency,
		snapshot:  status.Snapshot(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m KeyboardModel) Init() tea.Cmd {
	return tick()
}

func (m KeyboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snapshot = m.status.Snapshot()
		return m, tick()

	case tea.KeyMsg:
		k := msg.String()
		if offset, ok := pianoKeys[k]; ok {
			m.toggle(k, offset)
			return m, nil
		}

		switch {
		case key.Matches(msg, exitKeys):
			m.allNotesOff()
			return m, tea.Quit
		case key.Matches(msg, panicKeys):
			m.allNotesOff()
		case key.Matches(msg, octaveDownKeys):
			m.baseNote = max(minBaseNote, m.baseNote-12)
		case key.Matches(msg, octaveUpKeys):
			m.baseNote = min(maxBaseNote, m.baseNote+12)
		case key.Matches(msg, louderKeys):
			m.setAmplitude(m.amplitude + amplitudeStep)
		case key.Matches(msg, softerKeys):
			m.setAmplitude(m.amplitude - amplitudeStep)
		case key.Matches(msg, knobUpKeys):
			m.setFrequency(m.frequency * math.Pow(2, 1.0/12))
		case key.Matches(msg, knobDownKeys):
			m.setFrequency(m.frequency / math.Pow(2, 1.0/12))
		}
	}
	return m, nil
}

func (m *KeyboardModel) send(msg control.Message) {
	if !m.sender.Send(msg) {
		m.dropped++
	}
}

func (m *KeyboardModel) toggle(k string, offset uint8) {
	if f, ok := m.held[k]; ok {
		delete(m.held, k)
		if k == m.lastKey {
			m.lastKey = ""
		}
		m.send(control.NoteRelease(f))
		return
	}
	f := control.NoteFrequency(uint8(m.baseNote) + offset)
	m.held[k] = f
	m.lastKey = k
	m.send(control.NoteTrigger(f))
	m.frequency = f // the knob follows the last triggered voice
}

func (m *KeyboardModel) allNotesOff() {
	clear(m.held)
	m.lastKey = ""
	m.send(control.AllNotesOff())
}

func (m *KeyboardModel) setAmplitude(v float64) {
	// Round away float drift from repeated steps.
	m.amplitude = math.Round(math.Max(0, math.Min(1, v))*10) / 10
	m.send(control.SetAmplitude(m.amplitude))
}

func (m *KeyboardModel) setFrequency(f float64) {
	m.frequency = math.Max(synth.MinFrequency, math.Min(maxKnobHz, f))
	// The release must carry the pitch the voice now sounds at.
	if _, ok := m.held[m.lastKey]; ok {
		m.held[m.lastKey] = m.frequency
	}
	m.send(control.SetFrequency(m.frequency))
}

func (m KeyboardModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("polysynth"))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Amplitude %s  Frequency knob %s  Octave %s\n\n",
		highlightStyle.Render(fmt.Sprintf("%.1f", m.amplitude)),
		highlightStyle.Render(fmt.Sprintf("%.2f Hz", m.frequency)),
		highlightStyle.Render(fmt.Sprintf("C%d", m.baseNote/12-1)))

	for i, v := range m.snapshot.Voices {
		line := fmt.Sprintf("  voice %d  %8.2f Hz", i, v.Frequency)
		if v.Active {
			sb.WriteString(highlightStyle.Render("● " + line))
		} else {
			sb.WriteString(dimStyle.Render("○ " + line))
		}
		sb.WriteString("\n")
	}

	if m.spectrum != nil {
		if peak := m.spectrum.PeakFrequency(); peak > 0 && m.snapshot.ActiveVoices > 0 {
			fmt.Fprintf(&sb, "\nPeak %.1f Hz", peak)
		}
	}
	fmt.Fprintf(&sb, "\nActive %d/%d  Messages %d  Callbacks %d\n",
		m.snapshot.ActiveVoices, len(m.snapshot.Voices), m.snapshot.Messages, m.snapshot.Callbacks)

	if lost := m.snapshot.DroppedMessages + uint64(m.dropped); lost > 0 {
		sb.WriteString(warnStyle.Render(fmt.Sprintf("Dropped control messages: %d", lost)))
		sb.WriteString("\n")
	}
	if m.snapshot.InvalidParams > 0 {
		sb.WriteString(warnStyle.Render(fmt.Sprintf("Clamped parameters: %d", m.snapshot.InvalidParams)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("a-k: Toggle note • z/x: Octave • -/=: Amplitude • [/]: Frequency • Space: All off • q: Quit"))
	return sb.String()
}

// StartKeyboardUI runs the keyboard until the user quits or ctx is done.
func StartKeyboardUI(ctx context.Context, m KeyboardModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
