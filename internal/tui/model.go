// Package tui renders the engine state as a terminal job list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jobagent/internal/api"
	"jobagent/internal/domain"
	"jobagent/internal/engine"
	"jobagent/internal/live"
	"jobagent/internal/rank"
)

const toastTTL = 4 * time.Second

// Driver is the part of *engine.Engine the view uses.
type Driver interface {
	State() *engine.State
	Changes() <-chan struct{}
	Done() <-chan struct{}
	StartCrawl(ctx context.Context, query, location string) (api.SearchResult, error)
	RequestGeneration(ctx context.Context, jobID string) (string, error)
	DismissBanner()
}

type Options struct {
	Sort     rank.SortKey
	Location string
	Logger   *slog.Logger
}

var writeClipboard = clipboard.WriteAll

type mode int

const (
	modeList mode = iota
	modeSearch
	modeDraft
)

type (
	stateMsg  struct{}
	closedMsg struct{}

	crawlResultMsg struct {
		res api.SearchResult
		err error
	}
	generateResultMsg struct {
		id, draft string
		err       error
	}
	toastExpiredMsg struct{ seq int }
)

type Model struct {
	ctx context.Context
	drv Driver
	log *slog.Logger
	now func() time.Time

	st       *engine.State
	jobs     []domain.Job
	sort     rank.SortKey
	location string
	cursor   int
	selected string
	expanded string

	mode      mode
	input     textinput.Model
	draft     viewport.Model
	draftJob  string
	draftText string
	spinner   spinner.Model
	help      help.Model
	keys      keyMap
	styles    styles

	toast    string
	toastSeq int
	width    int
	height   int
}

func New(ctx context.Context, drv Driver, opts Options) *Model {
	if opts.Sort == "" {
		opts.Sort = rank.SortScore
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Model{
		ctx:      ctx,
		drv:      drv,
		log:      opts.Logger,
		now:      time.Now,
		sort:     opts.Sort,
		location: opts.Location,
		keys:     newKeyMap(),
		styles:   newStyles(),
		width:    80,
		height:   24,
	}
	m.input = textinput.New()
	m.input.Prompt = "url> "
	m.input.Placeholder = "https://careers.example.com/jobs"
	m.input.CharLimit = 512
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = m.styles.crawl
	m.draft = viewport.New(76, 16)
	m.help = help.New()
	m.refresh()
	return m
}

// Run blocks until the user quits, ctx is cancelled or the engine stops.
func Run(ctx context.Context, drv Driver, opts Options) error {
	p := tea.NewProgram(New(ctx, drv, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange())
}

func (m *Model) waitForChange() tea.Cmd {
	changes, done := m.drv.Changes(), m.drv.Done()
	return func() tea.Msg {
		select {
		case <-changes:
			return stateMsg{}
		case <-done:
			return closedMsg{}
		}
	}
}

// refresh re-reads the engine state and keeps the cursor on the selected job.
func (m *Model) refresh() {
	m.st = m.drv.State()
	m.jobs = m.st.View(m.sort)
	m.cursor = 0
	for i, j := range m.jobs {
		if j.ID == m.selected {
			m.cursor = i
			break
		}
	}
	m.selectCursor()
}

func (m *Model) selectCursor() {
	if len(m.jobs) == 0 {
		m.cursor, m.selected = 0, ""
		return
	}
	m.cursor = min(max(m.cursor, 0), len(m.jobs)-1)
	m.selected = m.jobs[m.cursor].ID
}

func (m *Model) current() (domain.Job, bool) {
	if len(m.jobs) == 0 {
		return domain.Job{}, false
	}
	return m.jobs[m.cursor], true
}

func (m *Model) flash(msg string) tea.Cmd {
	m.toastSeq++
	m.toast = msg
	seq := m.toastSeq
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.draft.Width = max(msg.Width-4, 20)
		m.draft.Height = max(msg.Height-8, 3)
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.refresh()
		return m, m.waitForChange()

	case closedMsg:
		return m, tea.Quit

	case crawlResultMsg:
		switch {
		case msg.err != nil:
			m.log.Warn("start crawl", "err", msg.err)
			return m, m.flash("Crawl failed: " + errorText(msg.err))
		case msg.res.Rejected():
			return m, m.flash(msg.res.Message)
		}
		return m, m.flash("Crawl started")

	case generateResultMsg:
		if msg.err != nil {
			m.log.Warn("request generation", "job_id", msg.id, "err", msg.err)
			return m, m.flash("Generation failed: " + errorText(msg.err))
		}
		if msg.draft != "" {
			m.openDraft(msg.id, msg.draft)
		}
		return m, nil

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDraft:
			return m.updateDraft(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		m.cursor--
		m.selectCursor()
	case key.Matches(msg, m.keys.down):
		m.cursor++
		m.selectCursor()
	case key.Matches(msg, m.keys.toggle):
		if m.expanded == m.selected {
			m.expanded = ""
		} else {
			m.expanded = m.selected
		}
	case key.Matches(msg, m.keys.sort):
		if m.sort == rank.SortScore {
			m.sort = rank.SortDate
		} else {
			m.sort = rank.SortScore
		}
		m.refresh()
	case key.Matches(msg, m.keys.search):
		if m.st.Crawling {
			return m, m.flash("A crawl is already running")
		}
		m.mode = modeSearch
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.generate):
		return m, m.generate()
	case key.Matches(msg, m.keys.copy):
		if j, ok := m.current(); ok {
			return m, m.copyDraft(j)
		}
	case key.Matches(msg, m.keys.dismiss):
		m.drv.DismissBanner()
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.mode = modeList
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.submit):
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			return m, nil
		}
		m.mode = modeList
		m.input.Blur()
		m.input.SetValue("")
		ctx, drv, loc := m.ctx, m.drv, m.location
		return m, func() tea.Msg {
			res, err := drv.StartCrawl(ctx, q, loc)
			return crawlResultMsg{res: res, err: err}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateDraft(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.mode = modeList
		m.draftJob, m.draftText = "", ""
		return m, nil
	case key.Matches(msg, m.keys.copy):
		return m, m.copyDraft(domain.Job{ID: m.draftJob, ApplicationDraft: m.draftText})
	}
	var cmd tea.Cmd
	m.draft, cmd = m.draft.Update(msg)
	return m, cmd
}

// generate opens an existing draft or asks the engine for one.
func (m *Model) generate() tea.Cmd {
	j, ok := m.current()
	if !ok {
		return nil
	}
	if j.HasDraft() {
		m.openDraft(j.ID, j.ApplicationDraft)
		return nil
	}
	if m.st.InProgress(j) {
		return m.flash("Already generating")
	}
	ctx, drv, id := m.ctx, m.drv, j.ID
	return func() tea.Msg {
		draft, err := drv.RequestGeneration(ctx, id)
		return generateResultMsg{id: id, draft: draft, err: err}
	}
}

func (m *Model) openDraft(id, draft string) {
	m.mode = modeDraft
	m.draftJob = id
	m.draftText = draft
	m.draft.SetContent(lipgloss.NewStyle().Width(m.draft.Width).Render(draft))
	m.draft.GotoTop()
}

func (m *Model) copyDraft(j domain.Job) tea.Cmd {
	if !j.HasDraft() {
		return m.flash("No draft yet")
	}
	if err := writeClipboard(j.ApplicationDraft); err != nil {
		m.log.Warn("copy draft", "job_id", j.ID, "err", err)
		return m.flash("Clipboard unavailable")
	}
	return m.flash("Draft copied to clipboard")
}

func errorText(err error) string {
	var se *api.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if api.IsTransport(err) {
		return "backend unreachable"
	}
	return err.Error()
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteByte('\n')
	if m.st.HasBanner() {
		b.WriteString(m.styles.banner.Width(max(m.width-2, 10)).Render("⚠ " + m.st.Banner + "   (x to dismiss)"))
		b.WriteByte('\n')
	}
	if m.mode == modeSearch {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if m.mode == modeDraft {
		title := m.draftJob
		for _, j := range m.jobs {
			if j.ID == m.draftJob {
				title = j.Title + " · " + j.Company
			}
		}
		b.WriteString(m.styles.detailHead.Render("Cover letter: " + title))
		b.WriteByte('\n')
		b.WriteString(m.styles.draft.Render(m.draft.View()))
	} else {
		b.WriteString(m.list())
	}

	if m.toast != "" {
		b.WriteByte('\n')
		b.WriteString(m.styles.toast.Render(m.toast))
	}
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) header() string {
	parts := []string{
		m.styles.title.Render("Job Agent"),
		m.styles.count.Render(fmt.Sprintf("%d results", len(m.jobs))),
	}
	if m.st.Crawling {
		label := "crawler active"
		if m.st.CrawlURL != "" {
			label += ": " + truncate(m.st.CrawlURL, 40)
		}
		parts = append(parts, m.spinner.View()+" "+m.styles.crawl.Render(label))
	}
	if m.st.Conn != live.Open {
		parts = append(parts, m.styles.muted.Render("live: "+m.st.Conn.String()))
	}

	score, date := m.styles.sortInactive, m.styles.sortInactive
	if m.sort == rank.SortDate {
		date = m.styles.sortActive
	} else {
		score = m.styles.sortActive
	}
	parts = append(parts, score.Render("relevance")+" "+date.Render("date"))
	return strings.Join(parts, "  ")
}

func (m *Model) list() string {
	if len(m.jobs) == 0 {
		if m.st.Crawling {
			return m.styles.muted.Render("Waiting for the crawler to report jobs...")
		}
		return m.styles.muted.Render("No jobs found.")
	}

	visible := max((m.height-8)/3, 1)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.jobs))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.row(m.jobs[i], i == m.cursor))
	}
	return strings.Join(rows, "\n")
}

func (m *Model) row(j domain.Job, selected bool) string {
	now := m.now()
	width := max(m.width-12, 20)

	title := m.styles.jobTitle.Render(truncate(j.Title, width-6))
	if age := timeAgo(j.CreatedAt, now); age != "" {
		title += " " + m.styles.age.Render(age)
	}
	line1 := m.styles.score(j.MatchScore).Render(scoreLabel(j.MatchScore)) + "  " + title

	line2 := m.styles.company.Render(j.Company)
	switch {
	case m.st.InProgress(j):
		line2 += "  " + m.spinner.View() + m.styles.generating.Render(" writing cover letter")
	case j.HasDraft():
		line2 += "  " + m.styles.ready.Render("✓ cover letter ready")
	}
	if j.URL == "" {
		line2 += "  " + m.styles.muted.Render("no link")
	}
	out := line1 + "\n" + strings.Repeat(" ", 7) + line2

	if j.ID == m.expanded {
		out += "\n" + m.details(j, width)
	}
	style := m.styles.item
	if selected {
		style = m.styles.itemSel
	}
	return style.Render(out)
}

func (m *Model) details(j domain.Job, width int) string {
	var parts []string
	if r := strings.TrimSpace(j.Reasoning); r != "" {
		parts = append(parts, m.styles.detailHead.Render("Analysis"), r)
	}
	if j.URL != "" {
		parts = append(parts, m.styles.muted.Render(j.URL))
	}
	if d := j.PlainDescription(); d != "" {
		parts = append(parts, m.styles.detailHead.Render("Description"), d)
	}
	if j.GenerationError != "" {
		parts = append(parts, m.styles.banner.Render(j.GenerationError))
	}
	return m.styles.detail.Width(width).Render(strings.Join(parts, "\n"))
}
