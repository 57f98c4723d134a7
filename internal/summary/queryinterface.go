package summary

import "time"

// Investigation is one mechanically derived drill-down suggestion.
type Investigation struct {
	Command  string    `json:"command"`
	Priority string    `json:"priority"`
	Reason   string    `json:"reason"`
	Template string    `json:"template,omitempty"`
	Start    time.Time `json:"start,omitempty"`
	End      time.Time `json:"end,omitempty"`
}

// QueryInterface is the output document's query_interface section: the
// commands a drill-down caller can issue against the retained-line buffer,
// plus a mechanically derived priority list of where to look first.
type QueryInterface struct {
	AvailableCommands       []string        `json:"available_commands"`
	SuggestedInvestigations []Investigation `json:"suggested_investigations"`
}

var availableCommands = []string{"GET_LINES_BY_TIME", "GET_LINES_BY_PATTERN", "GET_LINES_BY_CONTEXT"}

// BuildQueryInterface derives suggested_investigations mechanically from a
// rendered Summary: the largest burst per pattern → GET_LINES_BY_TIME
// (HIGH); each schema change → GET_LINES_BY_TIME ±5m (MEDIUM); new
// patterns → GET_LINES_BY_PATTERN (HIGH); rare patterns →
// GET_LINES_BY_PATTERN (LOW).
func BuildQueryInterface(s Summary) QueryInterface {
	qi := QueryInterface{AvailableCommands: availableCommands}

	for _, p := range s.Patterns {
		if len(p.Temporal.Bursts) == 0 {
			continue
		}
		biggest := p.Temporal.Bursts[0]
		for _, b := range p.Temporal.Bursts[1:] {
			if b.PeakRate > biggest.PeakRate {
				biggest = b
			}
		}
		qi.SuggestedInvestigations = append(qi.SuggestedInvestigations, Investigation{
			Command: "GET_LINES_BY_TIME", Priority: "HIGH",
			Reason: "largest burst in \"" + p.Template + "\"",
			Template: p.Template, Start: biggest.Start, End: biggest.End,
		})
	}

	for _, sc := range s.SchemaChanges {
		qi.SuggestedInvestigations = append(qi.SuggestedInvestigations, Investigation{
			Command: "GET_LINES_BY_TIME", Priority: "MEDIUM",
			Reason: "schema change: " + string(sc.Kind) + " " + sc.Field,
			Start:   sc.Timestamp.Add(-5 * time.Minute),
			End:     sc.Timestamp.Add(5 * time.Minute),
		})
	}

	for _, f := range s.PatternAnomalies {
		switch f.Kind {
		case "new_pattern":
			qi.SuggestedInvestigations = append(qi.SuggestedInvestigations, Investigation{
				Command: "GET_LINES_BY_PATTERN", Priority: "HIGH",
				Reason: "newly observed pattern", Template: f.Template,
			})
		case "rare_pattern":
			qi.SuggestedInvestigations = append(qi.SuggestedInvestigations, Investigation{
				Command: "GET_LINES_BY_PATTERN", Priority: "LOW",
				Reason: "rare pattern", Template: f.Template,
			})
		}
	}
	return qi
}
