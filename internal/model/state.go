package model

// SearchPhase is the position of the search sub-flow.
type SearchPhase string

const (
	PhaseIdle    SearchPhase = "idle"
	PhaseTyping  SearchPhase = "typing"
	PhaseListing SearchPhase = "listing"
)

// ControllerState is the view model the rendering layer reads.
// Snapshot is nil until the first successful forecast fetch.
type ControllerState struct {
	SearchActive bool                `json:"search_active"`
	Candidates   []LocationCandidate `json:"candidates"`
	Snapshot     *WeatherSnapshot    `json:"snapshot"`
	Loading      bool                `json:"loading"`
	Phase        SearchPhase         `json:"phase"`
	LastError    string              `json:"last_error,omitempty"`
	Version      uint64              `json:"version"`
}

// HasSnapshot reports whether weather data is available to display.
func (s ControllerState) HasSnapshot() bool {
	return s.Snapshot != nil
}

// PhaseOf derives the search phase from the search flag and candidate count.
func PhaseOf(searchActive bool, candidates int) SearchPhase {
	switch {
	case !searchActive:
		return PhaseIdle
	case candidates > 0:
		return PhaseListing
	default:
		return PhaseTyping
	}
}
