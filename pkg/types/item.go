// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// ArchiveTag prefixes discovered archive folder names so the router can
// distinguish them from plain input files. Per prd001-discovery R3.3.
const ArchiveTag = "[ARCHIVE] "

// ItemKind categorizes a discovered work item.
// Per prd002-processing R1.1.
type ItemKind string

const (
	KindTextRecord    ItemKind = "text_record"
	KindImage         ItemKind = "image"
	KindArchiveFolder ItemKind = "archive_folder"
	KindUnsupported   ItemKind = "unsupported"
)

// Item is one discovered unit of work: an input file or a prior-run archive
// folder. Items are created during discovery and consumed exactly once by
// the router.
type Item struct {
	// Name identifies the item: a filename for input files, or a tagged
	// archive label ("[ARCHIVE] <folder>") for archive folders.
	Name string `json:"name" yaml:"name"`

	// Kind selects the handler the router dispatches to.
	Kind ItemKind `json:"kind" yaml:"kind"`
}

// ArchiveName returns the untagged archive folder name, or "" when the item
// is not an archive.
func (i Item) ArchiveName() string {
	if i.Kind != KindArchiveFolder {
		return ""
	}
	return strings.TrimPrefix(i.Name, ArchiveTag)
}

// RunState is the accumulator threaded through a pipeline run. Exactly one
// stage owns write access at a time: discovery resets it, the controller
// mutates it per item, finalization and summary read it.
type RunState struct {
	// Items is the ordered work list, fixed after discovery.
	Items []Item `json:"items" yaml:"items"`

	// Results maps item name to its result text. Iteration order for
	// rendering follows Items, not map order. Per prd002-processing R2.4.
	Results map[string]string `json:"results" yaml:"results"`

	// Cursor indexes the next item to process. Monotonically increasing;
	// never exceeds len(Items).
	Cursor int `json:"cursor" yaml:"cursor"`

	// Log collects narrative progress messages, append-only.
	Log []string `json:"log" yaml:"log"`
}

// NewRunState returns an empty state ready for discovery.
func NewRunState() *RunState {
	return &RunState{Results: make(map[string]string)}
}

// Reset clears results, cursor, and log while keeping the allocated state.
func (s *RunState) Reset() {
	s.Items = nil
	s.Results = make(map[string]string)
	s.Cursor = 0
	s.Log = nil
}

// Logf appends a formatted message to the run log.
func (s *RunState) Logf(format string, args ...any) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}

// RunSummary is the finalized aggregate written to results.json once per
// run. Per prd004-reporting R1.2. Never mutated after write; a later run
// overwrites the file wholesale.
type RunSummary struct {
	TotalFiles     int               `json:"total_files" yaml:"total_files"`
	ProcessedFiles int               `json:"processed_files" yaml:"processed_files"`
	Results        map[string]string `json:"results" yaml:"results"`
}
