package model

// Location identifies the place a WeatherSnapshot was fetched for.
type Location struct {
	Name      string `json:"name"`
	Region    string `json:"region,omitempty"`
	Country   string `json:"country"`
	LocalTime string `json:"local_time,omitempty"`
}

type CurrentConditions struct {
	TempC         float64 `json:"temp_c"`
	FeelsLikeC    float64 `json:"feels_like_c"`
	ConditionText string  `json:"condition_text"`
	ConditionIcon string  `json:"condition_icon,omitempty"`
	WindKph       float64 `json:"wind_kph"`
	HumidityPct   float64 `json:"humidity_pct"`
	SunriseTime   string  `json:"sunrise_time"`
	LastUpdated   string  `json:"last_updated,omitempty"`
}

// ForecastDay is one day of the forecast. DateLabel is the weekday name.
type ForecastDay struct {
	Date          string  `json:"date"`
	DateLabel     string  `json:"date_label"`
	ConditionText string  `json:"condition_text"`
	ConditionIcon string  `json:"condition_icon,omitempty"`
	AvgTempC      float64 `json:"avg_temp_c"`
	MaxTempC      float64 `json:"max_temp_c"`
	MinTempC      float64 `json:"min_temp_c"`
	Sunrise       string  `json:"sunrise,omitempty"`
	Sunset        string  `json:"sunset,omitempty"`
}

// WeatherSnapshot is the complete current+forecast payload for one location.
// A snapshot is never mutated after it is built; newer fetches replace it whole.
type WeatherSnapshot struct {
	Location Location          `json:"location"`
	Current  CurrentConditions `json:"current"`
	Forecast []ForecastDay     `json:"forecast"`
}
