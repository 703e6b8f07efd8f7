package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/julien-sobczak/anksidian/internal/core"
	"golang.org/x/term"
)

/*
 * The deletion of notes is confirmed interactively using Bubble Tea.
 * All BubbleTea-related code is present in this file.
 */

var (
	listWidth             = 80
	listHeight            = 14
	listTitleStyle        = lipgloss.NewStyle().MarginLeft(2).Bold(true)
	listItemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	listSelectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	promptStyle           = lipgloss.NewStyle().MarginLeft(2).Foreground(lipgloss.Color("9"))
	helpStyle             = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
)

// isInteractive returns if the user can answer a prompt.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// ConfirmDeletion lists the notes and asks for confirmation.
func ConfirmDeletion(notes []core.KnownNote) (bool, error) {
	res, err := tea.NewProgram(NewDeletionModel(notes)).Run()
	if err != nil {
		return false, err
	}
	return res.(DeletionModel).confirmed, nil
}

type NoteItem struct {
	note core.KnownNote
}

func (i NoteItem) FilterValue() string { return i.note.Text() }

// Label returns a single-line excerpt of the note.
func (i NoteItem) Label() string {
	text := strings.ReplaceAll(i.note.Text(), core.LineBreak, " ")
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > listWidth-20 {
		text = string(runes[:listWidth-21]) + "…"
	}
	return fmt.Sprintf("%d %s", i.note.ID, text)
}

type noteDelegate struct{}

func (d noteDelegate) Height() int                             { return 1 }
func (d noteDelegate) Spacing() int                            { return 0 }
func (d noteDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d noteDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(NoteItem)
	if !ok {
		return
	}

	fn := listItemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return listSelectedItemStyle.Render("> " + strings.Join(s, " "))
		}
	}

	fmt.Fprint(w, fn(i.Label()))
}

type DeletionModel struct {
	list      list.Model
	confirmed bool
	quitting  bool
}

func NewDeletionModel(notes []core.KnownNote) DeletionModel {
	items := []list.Item{}
	for _, note := range notes {
		items = append(items, NoteItem{note: note})
	}

	l := list.New(items, noteDelegate{}, listWidth, listHeight)
	l.Title = fmt.Sprintf("%d note(s) no longer present in files", len(notes))
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = listTitleStyle
	l.Styles.HelpStyle = helpStyle

	return DeletionModel{list: l}
}

func (m DeletionModel) Init() tea.Cmd {
	return nil
}

func (m DeletionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y":
			m.confirmed = true
			m.quitting = true
			return m, tea.Quit
		case "n", "N", "q", "esc", "ctrl+c", "enter":
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m DeletionModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View() + "\n" + promptStyle.Render("Delete these notes from Anki? [y/N]") + "\n"
}
