package domain

// Action trading action produced by the decision engine.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Side maps an actionable decision to an order side. ok is false for hold.
func (a Action) Side() (side Side, ok bool) {
	switch a {
	case ActionBuy:
		return SideBuy, true
	case ActionSell:
		return SideSell, true
	default:
		return "", false
	}
}
