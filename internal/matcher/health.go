package matcher

import (
	"context"

	"github.com/kozaktomas/faceratio/internal/geometry"
)

// Health states reported by Matcher.Health.
const (
	StatusConnected    = "connected"
	StatusEmpty        = "empty"
	StatusDisconnected = "disconnected"
)

// HealthStatus describes whether the reference index answers queries.
type HealthStatus struct {
	Status     string `json:"status"`
	HasMatches bool   `json:"hasMatches"`
	Error      string `json:"error,omitempty"`
}

// healthQuery is the golden-ratio face used to check the index.
var healthQuery = Embed(geometry.RatioSet{
	FaceStructure:  1.618,
	RuleOfFifths:   1,
	NasalOral:      1.618,
	VerticalThirds: 1,
	Symmetry:       1,
})

// Health issues a single-result query for the golden-ratio face.
func (m *Matcher) Health(ctx context.Context) HealthStatus {
	results, err := m.Match(ctx, healthQuery, 1)
	if err != nil {
		return HealthStatus{Status: StatusDisconnected, Error: err.Error()}
	}
	if len(results) == 0 {
		return HealthStatus{Status: StatusEmpty}
	}
	return HealthStatus{Status: StatusConnected, HasMatches: true}
}
