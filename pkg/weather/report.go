package weather

import (
	"fmt"
	"strings"
)

// currentResponse: нужная часть ответа /data/2.5/weather.
type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Rain map[string]float64 `json:"rain"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
}

func (r currentResponse) report(query, units string) *Report {
	rep := &Report{
		Location:  query,
		Units:     units,
		Temp:      r.Main.Temp,
		FeelsLike: r.Main.FeelsLike,
		TempMin:   r.Main.TempMin,
		TempMax:   r.Main.TempMax,
		Humidity:  r.Main.Humidity,
		Pressure:  r.Main.Pressure,
		WindSpeed: r.Wind.Speed,
		WindDeg:   r.Wind.Deg,
		Clouds:    r.Clouds.All,
		Rain:      r.Rain,
	}
	if r.Name != "" {
		rep.Location = r.Name
		if r.Sys.Country != "" {
			rep.Location += ", " + r.Sys.Country
		}
	}
	if len(r.Weather) > 0 {
		rep.Status = r.Weather[0].Description
	}
	return rep
}

// Report: текущая погода в месте.
type Report struct {
	Location  string
	Units     string
	Status    string
	Temp      float64
	FeelsLike float64
	TempMin   float64
	TempMax   float64
	Humidity  int
	Pressure  int
	WindSpeed float64
	WindDeg   int
	Clouds    int
	Rain      map[string]float64
}

// unitLabels возвращает обозначения температуры и скорости ветра.
func unitLabels(units string) (temp, speed string) {
	switch units {
	case "imperial":
		return "°F", "mph"
	case "standard":
		return "K", "m/s"
	default:
		return "°C", "m/s"
	}
}

// String: текст, который получает модель.
func (r *Report) String() string {
	t, s := unitLabels(r.Units)

	rain := "{}"
	if len(r.Rain) > 0 {
		parts := make([]string, 0, len(r.Rain))
		for _, k := range []string{"1h", "3h"} {
			if v, ok := r.Rain[k]; ok {
				parts = append(parts, fmt.Sprintf("%s: %.1f mm", k, v))
			}
		}
		rain = strings.Join(parts, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "In %s, the current weather is as follows:\n", r.Location)
	fmt.Fprintf(&sb, "Detailed status: %s\n", r.Status)
	fmt.Fprintf(&sb, "Wind speed: %.1f %s, direction: %d°\n", r.WindSpeed, s, r.WindDeg)
	fmt.Fprintf(&sb, "Humidity: %d%%\n", r.Humidity)
	sb.WriteString("Temperature:\n")
	fmt.Fprintf(&sb, "  - Current: %.1f%s\n", r.Temp, t)
	fmt.Fprintf(&sb, "  - High: %.1f%s\n", r.TempMax, t)
	fmt.Fprintf(&sb, "  - Low: %.1f%s\n", r.TempMin, t)
	fmt.Fprintf(&sb, "  - Feels like: %.1f%s\n", r.FeelsLike, t)
	fmt.Fprintf(&sb, "Pressure: %d hPa\n", r.Pressure)
	fmt.Fprintf(&sb, "Rain: %s\n", rain)
	fmt.Fprintf(&sb, "Cloud cover: %d%%", r.Clouds)
	return sb.String()
}
