package std

import (
	"context"
	"fmt"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/tools"
	"github.com/ilkoid/poncho-assist/pkg/weather"
)

// WeatherClient: источник текущей погоды.
type WeatherClient interface {
	Current(ctx context.Context, location string) (*weather.Report, error)
}

// NewWeatherTool оборачивает клиент погоды в адаптер "weather".
func NewWeatherTool(c WeatherClient) *tools.Adapter {
	return tools.NewAdapter(config.ToolWeather,
		"Useful for getting current weather information for a specific location. Input should be a location name.",
		func(ctx context.Context, location string) (string, error) {
			rep, err := c.Current(ctx, location)
			if err != nil {
				return "", fmt.Errorf("%s: %w", weather.Classify(err), err)
			}
			return rep.String(), nil
		},
		tools.WithInputDescription("A location name, e.g. 'Paris' or 'London,GB'."))
}
