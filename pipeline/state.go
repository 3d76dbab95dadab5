package pipeline

import "github.com/tsawler/folio/layout"

// State is the last stage a batch completed. Stages run strictly in
// order; a batch that fails is run again from StatePending.
type State int

const (
	StatePending State = iota
	StateExtracted
	StateAggregated
	StateLinesBuilt
	StatePopulated
	StateColumnsDetected
	StateOrdered
	StateRefined
	StateEnriched
	StateExported
)

var stateNames = [...]string{
	StatePending:         "pending",
	StateExtracted:       "extracted",
	StateAggregated:      "aggregated",
	StateLinesBuilt:      "lines built",
	StatePopulated:       "populated",
	StateColumnsDetected: "columns detected",
	StateOrdered:         "ordered",
	StateRefined:         "refined",
	StateEnriched:        "enriched",
	StateExported:        "exported",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

var analyzerStates = map[layout.Stage]State{
	layout.StageLinesBuilt:      StateLinesBuilt,
	layout.StagePopulated:       StatePopulated,
	layout.StageColumnsDetected: StateColumnsDetected,
	layout.StageOrdered:         StateOrdered,
	layout.StageRefined:         StateRefined,
}
