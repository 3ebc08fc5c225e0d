package orchestrator

import "context"

// State is one step of the scan FSM (§4.4, §4.6), generalized from
// claircore's indexer controller: CheckManifest/FetchLayers/ScanLayers/
// Coalesce becomes DetectingEcosystems/ScanningEcosystems/
// QueryingVulnerabilities/MergingResults.
type State int

const (
	Idle State = iota
	DetectingEcosystems
	ScanningEcosystems
	QueryingVulnerabilities
	MergingResults
	Done
	Failed
)

var stateName = [...]string{
	Idle:                    "idle",
	DetectingEcosystems:     "detecting_ecosystems",
	ScanningEcosystems:      "scanning_ecosystems",
	QueryingVulnerabilities: "querying_vulnerabilities",
	MergingResults:          "merging_results",
	Done:                    "done",
	Failed:                  "failed",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateName) {
		return "unknown"
	}
	return stateName[s]
}

// stateFunc implements one FSM transition. Returning an error moves the
// run to Failed; returning Done ends the run successfully.
type stateFunc func(context.Context, *run) (State, error)

// stateToStateFunc maps each non-terminal state to its implementation.
// Each is defined in its own file, mirroring the teacher's one-file-per-
// state layout (indexer/controller/checkmanifest.go, scanlayers.go, ...).
var stateToStateFunc = map[State]stateFunc{
	DetectingEcosystems:     detectEcosystems,
	ScanningEcosystems:      scanEcosystems,
	QueryingVulnerabilities: queryVulnerabilities,
	MergingResults:          mergeResults,
}
