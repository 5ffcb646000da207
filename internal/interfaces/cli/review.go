package cli

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kspify/kspify/internal/app"
	"github.com/kspify/kspify/internal/core/report"
)

// NewReviewCommand creates the review command: a dry-run migration whose
// per-file diffs are browsed in an interactive terminal view.
func NewReviewCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "review <path>...",
		Short: "Browse pending migration changes interactively",
		Long: `Run a dry-run migration over the inputs and browse the resulting
per-file changes and issues in an interactive pager. Nothing is written.

Keys: left/right switch files, up/down scroll, q quits.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := runBatch(cmd, container, args, app.RunOptions{Mode: app.ModeDryRun})
			if err != nil {
				return err
			}

			model := newReviewModel(batch)
			if len(model.files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to review")
				return nil
			}
			if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("review UI failed: %w", err)
			}
			return nil
		},
	}
}

var (
	reviewTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	reviewFooterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// reviewModel holds the state for the Bubble Tea review pager.
type reviewModel struct {
	files    []report.FileReport
	index    int
	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

// newReviewModel keeps only the files worth a look: anything with changes,
// issues, or errors.
func newReviewModel(batch *report.Batch) reviewModel {
	var files []report.FileReport
	for _, f := range batch.Files {
		if len(f.Changes) > 0 || len(f.Issues) > 0 || f.Error != "" {
			files = append(files, f)
		}
	}
	return reviewModel{files: files}
}

// Init implements the Bubble Tea init method
func (m reviewModel) Init() tea.Cmd {
	return nil
}

// Update implements the Bubble Tea update method
func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 2
		footerHeight := 1
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.setContent()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			if m.index > 0 {
				m.index--
				m.setContent()
			}
			return m, nil

		case "right", "l":
			if m.index < len(m.files)-1 {
				m.index++
				m.setContent()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// setContent renders the selected file's report into the viewport.
func (m *reviewModel) setContent() {
	if !m.ready || len(m.files) == 0 {
		return
	}
	var buf bytes.Buffer
	_ = report.RenderFile(&buf, &m.files[m.index])
	m.viewport.SetContent(buf.String())
	m.viewport.GotoTop()
}

// View implements the Bubble Tea view method
func (m reviewModel) View() string {
	if !m.ready {
		return "loading..."
	}
	f := m.files[m.index]
	header := reviewTitleStyle.Render(
		fmt.Sprintf("kspify review  •  file %d/%d  •  %s", m.index+1, len(m.files), f.Path))
	footer := reviewFooterStyle.Render("←/→ file  ↑/↓ scroll  q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, "", m.viewport.View(), footer)
}
