package weather

// MaxForecastDays is the number of days reported after current conditions.
const MaxForecastDays = 5

// SelectDays picks one reading per calendar day following the day of current.
// The first reading seen for a day wins, even if a later one on the same day
// is closer to midday. Scanning stops after MaxForecastDays days.
func SelectDays(current Reading, series []Reading) []Reading {
	currentDay := current.Day()
	seen := make(map[string]struct{}, MaxForecastDays)
	days := make([]Reading, 0, MaxForecastDays)

	for _, r := range series {
		if len(days) == MaxForecastDays {
			break
		}
		day := r.Day()
		if day == currentDay {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, r)
	}

	return days
}

// ToForecastDay reshapes a reading into the caller-facing unit.
func ToForecastDay(r Reading) ForecastDay {
	return ForecastDay{
		Date:            r.Day(),
		Icon:            r.Icon,
		IconDescription: r.Description,
		TempF:           CelsiusToFahrenheit(r.TemperatureC),
		WindSpeed:       r.WindSpeed,
		Humidity:        r.Humidity,
	}
}

// BuildForecast turns a chronological series into [current, day1..dayN].
// The first element is annotated with city. The series must be non-empty.
func BuildForecast(city string, series []Reading) []ForecastDay {
	current := series[0]
	days := SelectDays(current, series[1:])

	out := make([]ForecastDay, 0, len(days)+1)
	head := ToForecastDay(current)
	head.City = city
	out = append(out, head)
	for _, d := range days {
		out = append(out, ToForecastDay(d))
	}
	return out
}
