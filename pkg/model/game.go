package model

type GameStatus string

const (
	GameRunning   GameStatus = "running"
	GameCompleted GameStatus = "completed"
	GameFailed    GameStatus = "failed"
)

// Constraint requires at least MinCount admitted candidates to carry Attribute.
type Constraint struct {
	Attribute string `json:"attribute"`
	MinCount  int    `json:"minCount"`
}

// Game is the setup handed out by the game server before the first arrival.
type Game struct {
	ID          string             `json:"gameId"`
	Capacity    int                `json:"targetAdmissions"`
	Constraints []Constraint       `json:"constraints"`
	Frequencies map[string]float64 `json:"relativeFrequencies"`
}

// Candidate is one arrival. Attributes absent from the map are read as false.
type Candidate struct {
	Index      int             `json:"personIndex"`
	Attributes map[string]bool `json:"attributes"`
}

func (c *Candidate) Has(attribute string) bool {
	if c == nil {
		return false
	}
	return c.Attributes[attribute]
}
