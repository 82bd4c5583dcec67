package domain

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Status values the backend writes into jobs.status.
const (
	StatusOpen       = "OPEN"
	StatusGenerating = "GENERATING"
	StatusCompleted  = "COMPLETED"
)

// Job is one discovered posting as served by GET /jobs and carried in new_job events.
// Optional text fields use "" for absent; the backend sends null for them.
type Job struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Company          string  `json:"company"`
	Description      string  `json:"description"`
	Reasoning        string  `json:"reasoning"`
	MatchScore       float64 `json:"match_score"`
	URL              string  `json:"url,omitempty"`
	ApplicationDraft string  `json:"application_draft,omitempty"`
	Status           string  `json:"status,omitempty"`
	CreatedAt        string  `json:"created_at,omitempty"`
	GenerationError  string  `json:"generation_error,omitempty"`
}

func (j Job) HasDraft() bool { return j.ApplicationDraft != "" }

func (j Job) Generating() bool { return j.Status == StatusGenerating }

// CreatedTime parses CreatedAt. ok is false when the field is missing or unparseable.
func (j Job) CreatedTime() (t time.Time, ok bool) {
	return ParseTimestamp(j.CreatedAt)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC3339 and the zone-less ISO forms Python's isoformat emits.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// JobPatch is the field set of a job_update event. A nil field leaves the job unchanged;
// JSON null therefore means "no change", not "clear".
type JobPatch struct {
	Title            *string  `json:"title,omitempty"`
	Company          *string  `json:"company,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Reasoning        *string  `json:"reasoning,omitempty"`
	MatchScore       *float64 `json:"match_score,omitempty"`
	URL              *string  `json:"url,omitempty"`
	ApplicationDraft *string  `json:"application_draft,omitempty"`
	Status           *string  `json:"status,omitempty"`
	CreatedAt        *string  `json:"created_at,omitempty"`
	GenerationError  *string  `json:"generation_error,omitempty"`
}

// Apply returns j with every non-nil field of p written over it. ID is never touched.
func (p JobPatch) Apply(j Job) Job {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&j.Title, p.Title)
	set(&j.Company, p.Company)
	set(&j.Description, p.Description)
	set(&j.Reasoning, p.Reasoning)
	set(&j.URL, p.URL)
	set(&j.ApplicationDraft, p.ApplicationDraft)
	set(&j.Status, p.Status)
	set(&j.CreatedAt, p.CreatedAt)
	set(&j.GenerationError, p.GenerationError)
	if p.MatchScore != nil {
		j.MatchScore = *p.MatchScore
	}
	return j
}

func (p JobPatch) Empty() bool {
	return p == JobPatch{}
}

// PlainDescription strips markup from crawled descriptions for plain-text display.
func (j Job) PlainDescription() string {
	return PlainText(j.Description)
}

func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}
