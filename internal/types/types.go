package types

import "time"

// ConversationID identifies a chat destination. Telegram chat ids are stored in base 10.
type ConversationID string

// AssetID is the canonical lowercase id of a cryptocurrency, e.g. "ethereum".
type AssetID string

// Namespace selects which side of the price an alert watches.
type Namespace string

const (
	// MinNamespace alerts fire when price <= threshold.
	MinNamespace Namespace = "min"
	// MaxNamespace alerts fire when price >= threshold.
	MaxNamespace Namespace = "max"
)

// Namespaces lists both namespaces in persistence order.
var Namespaces = []Namespace{MinNamespace, MaxNamespace}

// DocumentName is the storage key of the namespace, e.g. "min_alerts".
func (n Namespace) DocumentName() string {
	return string(n) + "_alerts"
}

// Direction is the comparison sign shown to users.
func (n Namespace) Direction() string {
	if n == MaxNamespace {
		return ">"
	}
	return "<"
}

// Sibling returns the other namespace.
func (n Namespace) Sibling() Namespace {
	if n == MaxNamespace {
		return MinNamespace
	}
	return MaxNamespace
}

// Alerts maps conversation -> asset -> threshold for one namespace.
type Alerts map[ConversationID]map[AssetID]float64

// Snapshot is a copy of both namespaces for a single conversation.
type Snapshot struct {
	Min map[AssetID]float64 `json:"min"`
	Max map[AssetID]float64 `json:"max"`
}

// Empty reports whether the conversation has no alerts at all.
func (s Snapshot) Empty() bool {
	return len(s.Min) == 0 && len(s.Max) == 0
}

// Trigger describes an alert that fired during evaluation.
type Trigger struct {
	Conversation ConversationID `json:"conversation"`
	Asset        AssetID        `json:"asset"`
	Namespace    Namespace      `json:"namespace"`
	Threshold    float64        `json:"threshold"`
	Price        float64        `json:"price"`
}

// PricePoint is one sample of a historical series.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}
