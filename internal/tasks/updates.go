package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchDetails Phase = iota
	ExportMovie
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchDetails:
		return "fetch_details"
	case ExportMovie:
		return "export_movie"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchingDetailsUpdate(step, total int, entry MovieExportJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching: %s...", step, total, entry.label()),
	}
}

func exportCompletedUpdate(step, total int, res MovieExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportMovie,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, res.Title, len(res.Files)),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, res MovieExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportMovie,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest: %s", path),
	}
}
