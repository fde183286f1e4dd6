package dto

type CompanyProfile struct {
	Name           string            `json:"name"`
	Ticker         string            `json:"ticker"`
	Listed         bool              `json:"listed"`
	LogoURL        string            `json:"logo_url,omitempty"`
	Recommendation string            `json:"recommendation"`
	Signal         string            `json:"signal"`
	Stock          *Stock            `json:"stock,omitempty"`
	StockError     string            `json:"stock_error,omitempty"`
	Details        map[string]string `json:"details"`
}

type Stock struct {
	Price              string `json:"price"`
	ChangePercent      string `json:"change_percent"`
	MonthChangePercent string `json:"month_change_percent,omitempty"`
	Direction          string `json:"direction"`
}

type ProfileResult struct {
	Company string          `json:"company"`
	Profile *CompanyProfile `json:"profile,omitempty"`
	Error   string          `json:"error,omitempty"`
}
