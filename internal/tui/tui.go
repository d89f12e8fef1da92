// Package tui is the interactive list screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/tada/internal/controller"
	"github.com/idilsaglam/tada/internal/gateway"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/ui"
)

// row adapts an Item (or the trailing "new item" slot) to bubbles/list.Item.
type row struct {
	item  model.Item
	isNew bool
}

func (r row) FilterValue() string { return r.item.Text }

// Custom delegate to control how rows render (single line)
type rowDelegate struct{}

func (d rowDelegate) Height() int                               { return 1 }
func (d rowDelegate) Spacing() int                              { return 0 }
func (d rowDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	r, _ := item.(row)
	t := ui.Current()
	var line string
	if r.isNew {
		line = t.Muted.Render(t.SymNew + " new item")
	} else {
		text := r.item.Text
		if text == "" {
			text = t.Muted.Render("(empty)")
		}
		line = fmt.Sprintf("%s %s", t.Pending.Render(t.SymItem), text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render(t.Cursor + " ")
	}
	fmt.Fprintln(w, prefix+line)
}

type loadedMsg struct{ state controller.State }

type persistMsg struct{ ev gateway.PersistEvent }

// Option configures the screen.
type Option func(*screen)

// WithPersistEvents feeds persist outcomes to the footer.
func WithPersistEvents(events <-chan gateway.PersistEvent) Option {
	return func(m *screen) { m.events = events }
}

// WithFetchStatus lets the loading view tell a remote read that is still in
// flight apart from one that has not started.
func WithFetchStatus(peek func() gateway.Result) Option {
	return func(m *screen) { m.peek = peek }
}

// screen is the Bubble Tea model.
type screen struct {
	ctx    context.Context
	ctrl   *controller.Controller
	events <-chan gateway.PersistEvent
	peek   func() gateway.Result

	spinner spinner.Model
	list    list.Model
	ti      textinput.Model // shared text input model (used for add & edit)

	state controller.State

	// Inline add / edit
	adding   bool
	editing  bool
	editItem model.Item
	inputErr string

	status string // last persist / dispatch outcome
	width  int
	height int
}

var (
	addBind    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	removeBind = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove"))
)

func newScreen(ctx context.Context, ctrl *controller.Controller, opts ...Option) screen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.Current().Accent

	l := list.New(nil, rowDelegate{}, 0, 0)
	l.Title = ui.Header(0)
	l.SetShowHelp(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = ui.Current().Title
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{addBind, editBind, removeBind} }
	l.AdditionalFullHelpKeys = func() []key.Binding { return []key.Binding{addBind, editBind, removeBind} }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "New item..."
	ti.CharLimit = 200

	m := screen{
		ctx:     ctx,
		ctrl:    ctrl,
		spinner: sp,
		list:    l,
		ti:      ti,
		state:   ctrl.State(),
		width:   80,
		height:  24,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Run shows the screen until the user quits.
func Run(ctx context.Context, ctrl *controller.Controller, opts ...Option) error {
	p := tea.NewProgram(newScreen(ctx, ctrl, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m screen) loadCmd() tea.Msg {
	return loadedMsg{state: m.ctrl.Load(m.ctx)}
}

func (m screen) waitForPersist() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return persistMsg{ev: ev}
	}
}

func (m screen) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd, m.waitForPersist())
}

func rows(l model.List) []list.Item {
	out := make([]list.Item, 0, len(l)+1)
	for _, it := range l {
		out = append(out, row{item: it})
	}
	return append(out, row{isNew: true})
}

func (m *screen) apply(st controller.State) tea.Cmd {
	unchanged := st.Phase == m.state.Phase && st.List.Equal(m.state.List) && len(m.list.Items()) > 0
	m.state = st
	if unchanged {
		// keeps the cursor and scroll position as they are
		return nil
	}
	m.list.Title = ui.Header(len(st.List))
	return m.list.SetItems(rows(st.List))
}

func (m *screen) dispatch(a model.Action) tea.Cmd {
	st, err := m.ctrl.Dispatch(m.ctx, a)
	if err != nil {
		m.status = ui.Current().Error.Render(err.Error())
		return nil
	}
	return m.apply(st)
}

func (m *screen) startInput(placeholder, value string) tea.Cmd {
	m.inputErr = ""
	m.ti.Placeholder = placeholder
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	return m.ti.Focus()
}

func (m *screen) stopInput() {
	m.adding, m.editing = false, false
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m screen) selected() (row, bool) {
	r, ok := m.list.SelectedItem().(row)
	return r, ok
}

func (m screen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(m.width-4, m.listHeight())
		return m, nil
	case loadedMsg:
		return m, m.apply(msg.state)
	case persistMsg:
		if msg.ev.Err != nil {
			m.status = ui.Current().Error.Render("not saved: " + msg.ev.Err.Error())
		} else {
			m.status = ui.Current().Success.Render(fmt.Sprintf("%s saved", ui.Current().SymOK))
		}
		return m, m.waitForPersist()
	case spinner.TickMsg:
		if m.state.Phase != controller.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state.Phase != controller.Ready {
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "q", "esc", "ctrl+c":
				return m, tea.Quit
			}
		}
		return m, nil
	}

	// add / edit mode
	if m.adding || m.editing {
		var cmd tea.Cmd
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "enter":
				text := strings.TrimSpace(m.ti.Value())
				if text == "" {
					m.inputErr = "Text cannot be empty"
					return m, nil
				}
				var a model.Action = model.Add{Text: text}
				if m.editing {
					it := m.editItem
					it.Text = text
					a = model.Update{Item: it}
				}
				m.stopInput()
				return m, m.dispatch(a)
			case "esc":
				m.stopInput()
				return m, nil
			}
		}
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "a":
			m.adding = true
			return m, m.startInput("New item...", "")
		case "enter", "e":
			r, ok := m.selected()
			if !ok {
				return m, nil
			}
			if r.isNew {
				if k.String() == "e" {
					return m, nil
				}
				m.adding = true
				return m, m.startInput("New item...", "")
			}
			m.editing = true
			m.editItem = r.item
			return m, m.startInput("Edit item...", r.item.Text)
		case "d":
			if r, ok := m.selected(); ok && !r.isNew {
				return m, m.dispatch(model.Remove{Item: r.item})
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m screen) listHeight() int {
	h := m.height - 5
	if m.adding || m.editing {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m screen) View() string {
	t := ui.Current()
	switch m.state.Phase {
	case controller.Loading:
		msg := "loading todos..."
		if m.peek != nil && m.peek().Status == gateway.StatusPending {
			msg = "loading todos... waiting for the store"
		}
		return ui.PanelString(fmt.Sprintf("%s %s", m.spinner.View(), msg))
	case controller.Failed:
		lines := []string{
			t.Error.Render(t.SymFail + " could not load todos"),
			t.Muted.Render(m.state.Err.Error()),
			"",
			t.Muted.Render(failureHint(m.state.Err)),
			t.Muted.Render("press q to quit"),
		}
		return ui.PanelString(strings.Join(lines, "\n"))
	}

	m.list.SetSize(m.width-4, m.listHeight())
	content := m.list.View()
	if m.adding || m.editing {
		bar := lipgloss.NewStyle().Border(t.Border).BorderForeground(t.BorderColor).Padding(0, 1)
		title := "Add new item"
		if m.editing {
			title = "Edit item"
		}
		if m.inputErr != "" {
			title += " - " + t.Error.Render(m.inputErr)
		}
		content += "\n" + bar.Render(title+"\n"+m.ti.View())
	}
	footer := m.status
	if m.state.Missing && footer == "" {
		footer = t.Muted.Render("new list: nothing stored yet")
	}
	if footer != "" {
		content += "\n" + footer
	}
	return ui.PanelString(content)
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, gateway.ErrMissingIdentity):
		return "Hint: run `todo auth login` first"
	case errors.Is(err, gateway.ErrDocumentNotFound):
		return "Hint: no stored list for this user; run `todo init` to create one"
	}
	return "Hint: check store settings with `todo config show`"
}
