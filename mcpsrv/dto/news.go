package dto

type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url,omitempty"`
	Source      string `json:"source"`
}

type NewsPage struct {
	Kind         string    `json:"kind"`
	Page         int       `json:"page"`
	TotalResults int       `json:"total_results"`
	RawCount     int       `json:"raw_count"`
	Items        []Article `json:"items"`
}

type Analysis struct {
	URL         string `json:"url"`
	Summary     string `json:"summary"`
	AltSummary  string `json:"alt_summary"`
	ImpactText  string `json:"impact_text"`
	ImpactLevel int    `json:"impact_level"`
}
