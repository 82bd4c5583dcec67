// Package events is the wire codec for the job_updates stream shared by the
// websocket client and the relay. Frames are flat JSON objects tagged by "type".
package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"jobagent/internal/domain"
)

const (
	TypeCrawlStarted   = "crawl_started"
	TypeCrawlCompleted = "crawl_completed"
	TypeNewJob         = "new_job"
	TypeJobUpdate      = "job_update"
	TypeGlobalError    = "global_error"
)

type Event interface {
	Type() string
}

type CrawlStarted struct {
	URL string
}

type CrawlCompleted struct{}

type NewJob struct {
	Job domain.Job
}

type JobUpdate struct {
	JobID string
	Patch domain.JobPatch
}

type GlobalError struct {
	Message string
}

// Unknown is a well-formed frame with a type this client does not handle.
type Unknown struct {
	Kind string
	Raw  json.RawMessage
}

func (CrawlStarted) Type() string   { return TypeCrawlStarted }
func (CrawlCompleted) Type() string { return TypeCrawlCompleted }
func (NewJob) Type() string         { return TypeNewJob }
func (JobUpdate) Type() string      { return TypeJobUpdate }
func (GlobalError) Type() string    { return TypeGlobalError }
func (u Unknown) Type() string      { return u.Kind }

type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "decode event: " + e.Reason + ": " + e.Err.Error()
	}
	return "decode event: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

type envelope struct {
	Type string `json:"type"`
}

type jobUpdateWire struct {
	Type  string `json:"type"`
	JobID string `json:"job_id"`
	domain.JobPatch
}

// Decode parses one frame. Frames of an unrecognised type decode to Unknown.
func Decode(data []byte) (Event, error) {
	data = bytes.TrimSpace(data)
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Reason: "malformed json", Err: err}
	}
	if env.Type == "" {
		return nil, &DecodeError{Reason: "missing type"}
	}

	switch env.Type {
	case TypeCrawlStarted:
		var w struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Reason: env.Type, Err: err}
		}
		return CrawlStarted{URL: w.URL}, nil

	case TypeCrawlCompleted:
		return CrawlCompleted{}, nil

	case TypeNewJob:
		var w struct {
			Job *domain.Job `json:"job"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Reason: env.Type, Err: err}
		}
		if w.Job == nil || w.Job.ID == "" {
			return nil, &DecodeError{Reason: "new_job without job id"}
		}
		return NewJob{Job: *w.Job}, nil

	case TypeJobUpdate:
		var w jobUpdateWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Reason: env.Type, Err: err}
		}
		if w.JobID == "" {
			return nil, &DecodeError{Reason: "job_update without job_id"}
		}
		return JobUpdate{JobID: w.JobID, Patch: w.JobPatch}, nil

	case TypeGlobalError:
		var w struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &DecodeError{Reason: env.Type, Err: err}
		}
		return GlobalError{Message: w.Message}, nil

	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unknown{Kind: env.Type, Raw: raw}, nil
	}
}

func Encode(ev Event) ([]byte, error) {
	var v any
	switch e := ev.(type) {
	case CrawlStarted:
		v = struct {
			Type string `json:"type"`
			URL  string `json:"url,omitempty"`
		}{TypeCrawlStarted, e.URL}
	case CrawlCompleted:
		v = envelope{Type: TypeCrawlCompleted}
	case NewJob:
		v = struct {
			Type string     `json:"type"`
			Job  domain.Job `json:"job"`
		}{TypeNewJob, e.Job}
	case JobUpdate:
		v = jobUpdateWire{Type: TypeJobUpdate, JobID: e.JobID, JobPatch: e.Patch}
	case GlobalError:
		v = struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{TypeGlobalError, e.Message}
	case Unknown:
		return e.Raw, nil
	default:
		return nil, fmt.Errorf("encode event: unsupported %T", ev)
	}
	return json.Marshal(v)
}
