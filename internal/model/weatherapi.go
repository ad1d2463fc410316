package model

// WeatherAPILocation is a location as returned by weatherapi.com, both in
// search.json results and in the "location" block of forecast.json.
type WeatherAPILocation struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	URL       string  `json:"url"`
	LocalTime string  `json:"localtime"`
}

type WeatherAPICondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

type WeatherAPICurrent struct {
	LastUpdated string              `json:"last_updated"`
	TempC       float64             `json:"temp_c"`
	FeelsLikeC  float64             `json:"feelslike_c"`
	Condition   WeatherAPICondition `json:"condition"`
	WindKph     float64             `json:"wind_kph"`
	Humidity    float64             `json:"humidity"`
}

type WeatherAPIForecastDay struct {
	Date string `json:"date"`
	Day  struct {
		MaxTempC  float64             `json:"maxtemp_c"`
		MinTempC  float64             `json:"mintemp_c"`
		AvgTempC  float64             `json:"avgtemp_c"`
		Condition WeatherAPICondition `json:"condition"`
	} `json:"day"`
	Astro struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"astro"`
}

// WeatherAPIForecastResponse is the forecast.json body.
type WeatherAPIForecastResponse struct {
	Location *WeatherAPILocation `json:"location"`
	Current  *WeatherAPICurrent  `json:"current"`
	Forecast *struct {
		ForecastDay []WeatherAPIForecastDay `json:"forecastday"`
	} `json:"forecast"`
}

// WeatherAPIErrorResponse is the body weatherapi.com sends with non-2xx statuses.
type WeatherAPIErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
