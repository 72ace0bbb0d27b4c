package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

var reviewUser string

// reviewCmd launches the human-in-the-loop approve/correct/reject console
// for pending booking proposals. The web UI is out of scope, so this is
// the pipeline's §4.1 state machine's only operator surface besides the
// scripted submit/approve/correct/reject commands.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review pending booking proposals in an interactive console",
	RunE: func(cmd *cobra.Command, args []string) error {
		proposals, err := svc.Pipeline.Pending(clientID)
		if err != nil {
			return err
		}
		model := newReviewModel(proposals, reviewUser)
		p := tea.NewProgram(model, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewUser, "user", "reviewer", "User id recorded against each decision")
}

var (
	reviewHeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	reviewCursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	reviewDimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	reviewWarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	reviewErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// reviewMode tracks which sub-view the console is in: browsing the list,
// or typing a reject reason before confirming.
type reviewMode int

const (
	modeBrowse reviewMode = iota
	modeRejectReason
)

type reviewModel struct {
	proposals   []*types.BookingProposal
	cursor      int
	user        string
	mode        reviewMode
	rejectInput textinput.Model
	status      string
	statusErr   bool
	width       int
	height      int
}

func newReviewModel(proposals []*types.BookingProposal, user string) reviewModel {
	ti := textinput.New()
	ti.Placeholder = "razlog odbijanja"
	ti.CharLimit = 120
	return reviewModel{proposals: proposals, user: user, rejectInput: ti}
}

func (m reviewModel) Init() tea.Cmd { return nil }

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeRejectReason {
			return m.updateRejectReason(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m reviewModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.proposals)-1 {
			m.cursor++
		}
		return m, nil

	case "a":
		return m.approveCurrent()

	case "r":
		if len(m.proposals) == 0 {
			return m, nil
		}
		m.mode = modeRejectReason
		m.rejectInput.SetValue("")
		m.rejectInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m reviewModel) updateRejectReason(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.rejectInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.rejectInput.Blur()
		return m.rejectCurrent(m.rejectInput.Value())
	}
	var cmd tea.Cmd
	m.rejectInput, cmd = m.rejectInput.Update(msg)
	return m, cmd
}

// approveCurrent approves the proposal under the cursor and removes it
// from the in-memory list so the console always reflects the pipeline's
// persisted state (spec.md §4.1: "every transition is a compare-and-swap
// against the persisted status").
func (m reviewModel) approveCurrent() (tea.Model, tea.Cmd) {
	if len(m.proposals) == 0 {
		return m, nil
	}
	current := m.proposals[m.cursor]
	_, err := svc.Pipeline.Approve(current.ID, m.user)
	if err != nil {
		m.status = err.Error()
		m.statusErr = true
		return m, nil
	}
	m.status = fmt.Sprintf("approved %s", current.ID)
	m.statusErr = false
	m.removeCurrent()
	return m, nil
}

func (m reviewModel) rejectCurrent(reason string) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if len(m.proposals) == 0 {
		return m, nil
	}
	current := m.proposals[m.cursor]
	_, err := svc.Pipeline.Reject(current.ID, m.user, reason)
	if err != nil {
		m.status = err.Error()
		m.statusErr = true
		return m, nil
	}
	m.status = fmt.Sprintf("rejected %s: %s", current.ID, reason)
	m.statusErr = false
	m.removeCurrent()
	return m, nil
}

func (m *reviewModel) removeCurrent() {
	m.proposals = append(m.proposals[:m.cursor], m.proposals[m.cursor+1:]...)
	if m.cursor >= len(m.proposals) && m.cursor > 0 {
		m.cursor--
	}
}

func (m reviewModel) View() string {
	var sb strings.Builder
	sb.WriteString(reviewHeaderStyle.Render(fmt.Sprintf("Pending proposals (%d)", len(m.proposals))))
	sb.WriteString("\n\n")

	if len(m.proposals) == 0 {
		sb.WriteString(reviewDimStyle.Render("Nothing awaiting review.\n"))
	}
	for i, p := range m.proposals {
		line := fmt.Sprintf("%-10s %-18s %-12s %s", p.ID, p.DocumentKind, p.Meta.DocumentNo, p.Meta.PartnerName)
		if i == m.cursor {
			sb.WriteString(reviewCursorStyle.Render("> " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.mode == modeRejectReason {
		sb.WriteString(reviewWarningStyle.Render("Reject reason: ") + m.rejectInput.View() + "\n")
		sb.WriteString(reviewDimStyle.Render("enter to confirm, esc to cancel\n"))
	} else {
		sb.WriteString(reviewDimStyle.Render("up/down move, a approve, r reject, q quit\n"))
	}

	if m.status != "" {
		style := reviewDimStyle
		if m.statusErr {
			style = reviewErrorStyle
		}
		sb.WriteString(style.Render(m.status) + "\n")
	}
	return sb.String()
}
