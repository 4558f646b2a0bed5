// Package clips extracts event-prioritized sub-clips from a full recording:
// priority sort, fixed-size batches with intra-batch parallel transcoding,
// and per-clip failure tolerance.
package clips

import "sort"

// Type classifies the in-game event a clip covers.
type Type string

const (
	TypeDeath     Type = "death"
	TypeKill      Type = "kill"
	TypeObjective Type = "objective"
	TypeOther     Type = "other"
)

// Severity grades how notable the event is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Spec describes one timestamped event clip to extract. Supplied by the
// remote timeline; read-only input to the pipeline.
type Spec struct {
	Type        Type     `json:"type"`
	Severity    Severity `json:"severity"`
	StartTime   float64  `json:"startTime"` // Seconds into the recording.
	Duration    float64  `json:"duration"`  // Seconds; 0 means the configured default.
	Description string   `json:"description"`
}

// Extracted is a Spec that made it to disk.
type Extracted struct {
	Spec
	Index     int
	LocalPath string
}

var typeRank = map[Type]int{
	TypeDeath:     0,
	TypeKill:      1,
	TypeObjective: 2,
	TypeOther:     3,
}

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

func rankOf(s Spec) (int, int) {
	tr, ok := typeRank[s.Type]
	if !ok {
		tr = typeRank[TypeOther]
	}
	sr, ok := severityRank[s.Severity]
	if !ok {
		sr = severityRank[SeverityLow]
	}
	return tr, sr
}

// SortByPriority orders specs so the clips most likely to matter for
// analysis come first: type rank (death < kill < objective < other), then
// severity rank (critical < high < medium < low). Stable, so the timeline
// order breaks ties.
func SortByPriority(specs []Spec) {
	sort.SliceStable(specs, func(i, j int) bool {
		ti, si := rankOf(specs[i])
		tj, sj := rankOf(specs[j])
		if ti != tj {
			return ti < tj
		}
		return si < sj
	})
}
