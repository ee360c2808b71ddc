package ops

import (
	"maps"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Stage identifies where a lookup ended.
type Stage string

const (
	StageInput           Stage = "input"
	StageSearch          Stage = "search"
	StageSearchEmpty     Stage = "search_empty"
	StageDetails         Stage = "details"
	StageParse           Stage = "parse"
	StageOK              Stage = "ok"
	StageOKFallbackLabel Stage = "ok_fallback_label"
)

// Succeeded reports whether the stage is one of the success stages.
func (s Stage) Succeeded() bool {
	return s == StageOK || s == StageOKFallbackLabel
}

// Diagnostic explains how a single lookup ended.
type Diagnostic struct {
	LookupID   string         `json:"lookup_id"`
	Stage      Stage          `json:"stage"`
	StatusCode int            `json:"status_code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	At         time.Time      `json:"at"`
}

// The process-wide slot holding the most recent diagnostic. Last writer wins;
// callers running lookups concurrently should read LookupOutput.Diagnostic.
var (
	lastMu sync.Mutex
	last   Diagnostic
)

// LastDiagnostic returns a copy of the most recently recorded diagnostic.
// An empty Stage means no lookup has finished since the slot was last
// cleared: either none has run, or one is in progress and LookupID names it.
func LastDiagnostic() Diagnostic {
	lastMu.Lock()
	defer lastMu.Unlock()
	return last.clone()
}

func recordDiagnostic(d Diagnostic) {
	lastMu.Lock()
	last = d.clone()
	lastMu.Unlock()
}

func (d Diagnostic) clone() Diagnostic {
	d.Context = maps.Clone(d.Context)
	return d
}

func newLookupID() string {
	return ulid.Make().String()
}
