package weather

import "strings"

// ReadingLayout is the timestamp layout providers use for Reading.Date.
const ReadingLayout = "2006-01-02 15:04:05"

// Coordinates is a resolved geographic position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Reading is one 3-hour forecast slot as returned by a provider.
// Date is always in "YYYY-MM-DD HH:MM:SS" form.
type Reading struct {
	Date         string
	TemperatureC float64
	WindSpeed    float64
	Humidity     int
	Description  string
	Icon         string
}

// Day returns the calendar-day component of the reading timestamp.
func (r Reading) Day() string {
	day, _, _ := strings.Cut(r.Date, " ")
	return day
}

// ForecastDay is the wire shape returned to callers. Only the first element
// of a forecast (current conditions) carries City.
type ForecastDay struct {
	City            string  `json:"city,omitempty"`
	Date            string  `json:"date"`
	Icon            string  `json:"icon"`
	IconDescription string  `json:"iconDescription"`
	TempF           float64 `json:"tempF"`
	WindSpeed       float64 `json:"windSpeed"`
	Humidity        int     `json:"humidity"`
}

// CelsiusToFahrenheit converts using F = C * 9/5 + 32.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
