package models

// Quote: последняя свеча от Processor.
type Quote struct {
	Close      float64 `json:"close"`
	SourceText string  `json:"sourceText"`
	Platform   string  `json:"platform"`
}
