package models

// Placement: где уровень относительно цены в момент создания.
type Placement string

const (
	PlacementNone  Placement = ""
	PlacementAbove Placement = "above"
	PlacementBelow Placement = "below"
)

// PriceAlert is never mutated after creation.
type PriceAlert struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	Ticker          Ticker    `json:"ticker"`
	Level           float64   `json:"level"`
	LevelText       string    `json:"levelText"`
	Placement       Placement `json:"placement"`
	CurrentPlatform string    `json:"currentPlatform"`
	TriggerMessage  string    `json:"triggerMessage,omitempty"`
	Channel         string    `json:"channel,omitempty"`
	TriggerTag      string    `json:"triggerTag,omitempty"`
	Timestamp       int64     `json:"timestamp"`
}
