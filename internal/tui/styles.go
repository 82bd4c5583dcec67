package tui

import (
	"github.com/charmbracelet/lipgloss"

	"jobagent/internal/rank"
)

type styles struct {
	title, count, crawl, muted    lipgloss.Style
	sortActive, sortInactive      lipgloss.Style
	banner, toast                 lipgloss.Style
	item, itemSel                 lipgloss.Style
	jobTitle, company, age        lipgloss.Style
	generating, ready             lipgloss.Style
	detail, detailHead, draft     lipgloss.Style
	scoreHigh, scoreMid, scoreLow lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()
	score := base.Copy().Bold(true).Width(5).Align(lipgloss.Right)

	return styles{
		title:        base.Copy().Bold(true).Padding(0, 1),
		count:        base.Copy().Faint(true),
		crawl:        base.Copy().Bold(true).Foreground(lipgloss.Color("63")),
		muted:        base.Copy().Faint(true),
		sortActive:   base.Copy().Bold(true).Underline(true),
		sortInactive: base.Copy().Faint(true),
		banner:       base.Copy().Foreground(lipgloss.Color("160")).Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("160")).Padding(0, 1),
		toast:        base.Copy().Italic(true).Padding(0, 1),
		item:         base.Copy().Padding(0, 1).Border(lipgloss.HiddenBorder(), false, false, false, true),
		itemSel:      base.Copy().Padding(0, 1).Border(lipgloss.ThickBorder(), false, false, false, true),
		jobTitle:     base.Copy().Bold(true),
		company:      base.Copy().Faint(true),
		age:          base.Copy().Faint(true),
		generating:   base.Copy().Foreground(lipgloss.Color("63")),
		ready:        base.Copy().Foreground(lipgloss.Color("35")),
		detail:       base.Copy().Padding(0, 2).MarginLeft(6),
		detailHead:   base.Copy().Bold(true).Foreground(lipgloss.Color("63")),
		draft:        base.Copy().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		scoreHigh:    score.Copy().Foreground(lipgloss.Color("35")),
		scoreMid:     score.Copy().Foreground(lipgloss.Color("178")),
		scoreLow:     score.Copy().Foreground(lipgloss.Color("160")),
	}
}

func (s styles) score(score float64) lipgloss.Style {
	switch rank.BandOf(score) {
	case rank.BandHigh:
		return s.scoreHigh
	case rank.BandMedium:
		return s.scoreMid
	default:
		return s.scoreLow
	}
}
