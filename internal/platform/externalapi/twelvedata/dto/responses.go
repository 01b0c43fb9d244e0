// Package dto defines data transfer objects for the Twelve Data API responses.
package dto

// ErrorFields is embedded in every Twelve Data payload. Errors are reported
// with HTTP 200 and status "error".
type ErrorFields struct {
	Status  string `json:"status,omitempty"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// PriceResponse represents the JSON response from the /price endpoint for one symbol.
type PriceResponse struct {
	ErrorFields
	Price string `json:"price"`
}

// TimeSeriesResponse represents the JSON response from the Twelve Data time_series endpoint.
// Values are ordered newest first.
type TimeSeriesResponse struct {
	ErrorFields
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// EarningsResponse represents the JSON response from the /earnings endpoint.
type EarningsResponse struct {
	ErrorFields
	Earnings []struct {
		Date string `json:"date"`
		Time string `json:"time"`
	} `json:"earnings"`
}
