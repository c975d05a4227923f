package domain

// WeeklySummary is an optional LLM-generated narrative describing a
// generated weekly package, used for logging and host notifications.
type WeeklySummary struct {
	Headline  string   `json:"headline"`
	Narrative string   `json:"narrative"`
	Notes     []string `json:"notes"`
}
