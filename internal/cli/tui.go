package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/jkl1337/auracle/internal/auracle"
	"github.com/jkl1337/auracle/pkg/aur"
)

// PackageListModel is the bubbletea model for interactive package
// selection from search results. Space marks packages, enter confirms.
type PackageListModel struct {
	Packages []aur.Package
	Cursor   int
	Marked   map[int]struct{}
	Done     bool
	Height   int
	Offset   int
}

// NewPackageListModel creates a package list model over the search results.
func NewPackageListModel(packages []aur.Package) PackageListModel {
	return PackageListModel{
		Packages: packages,
		Marked:   make(map[int]struct{}),
		Height:   15,
	}
}

func (m PackageListModel) Init() tea.Cmd {
	return nil
}

func (m PackageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Packages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ":
			if _, ok := m.Marked[m.Cursor]; ok {
				delete(m.Marked, m.Cursor)
			} else {
				m.Marked[m.Cursor] = struct{}{}
			}
		case "enter":
			if len(m.Marked) == 0 {
				m.Marked[m.Cursor] = struct{}{}
			}
			m.Done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m PackageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Packages to Clone"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space mark  ⏎ clone  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Packages) {
		end = len(m.Packages)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := m.Packages[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := " "
		if _, ok := m.Marked[i]; ok {
			mark = "*"
		}

		// Width-aware: never splits a multibyte rune.
		desc := ansi.Truncate(p.Description, 48, "...")
		rows = append(rows, []string{cursor, mark, p.Name, p.Version,
			fmt.Sprintf("%d", p.Votes), desc})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Package", "Version", "Votes", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return listHeaderStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Packages) {
				return lipgloss.NewStyle()
			}
			_, marked := m.Marked[idx]
			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case marked:
				return listMarkedStyle
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %d marked",
		m.Cursor+1, len(m.Packages), len(m.Marked))))

	return b.String()
}

// Selection returns the marked packages, or nil when the picker was
// dismissed without confirming.
func (m PackageListModel) Selection() []aur.Package {
	if !m.Done {
		return nil
	}
	var selected []aur.Package
	for i := range m.Packages {
		if _, ok := m.Marked[i]; ok {
			selected = append(selected, m.Packages[i])
		}
	}
	return selected
}

// interactiveSearch runs the search, presents the picker and clones the
// selection.
func (c *CLI) interactiveSearch(a *auracle.Auracle, args []string, opts auracle.CommandOptions) error {
	packages, err := a.SearchPackages(args, opts)
	if err != nil {
		return err
	}

	model, err := tea.NewProgram(NewPackageListModel(packages)).Run()
	if err != nil {
		return err
	}

	selected := model.(PackageListModel).Selection()
	if len(selected) == 0 {
		return nil
	}
	return a.ClonePackages(selected, opts)
}
