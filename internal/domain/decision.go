package domain

// Decision outcome of evaluating an indicator snapshot.
type Decision struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// IsHold reports whether the decision is not actionable.
func (d Decision) IsHold() bool {
	return d.Action == ActionHold
}
