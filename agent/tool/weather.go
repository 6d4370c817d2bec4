package tool

import (
	"context"
	"strings"

	contractx "github.com/amontero/dialogo/agent/contract"
)

// WeatherReport is the structured output of weather.lookup.
type WeatherReport struct {
	City             string `json:"city"`
	TemperatureRange string `json:"temperature_range"`
	Conditions       string `json:"conditions"`
}

type WeatherProvider interface {
	Lookup(ctx context.Context, city string) (WeatherReport, error)
}

// CannedWeather returns a fixed forecast for any city. A real provider would
// call an external weather API; agents only depend on the interface.
type CannedWeather struct{}

func (CannedWeather) Lookup(_ context.Context, city string) (WeatherReport, error) {
	return WeatherReport{
		City:             city,
		TemperatureRange: "14-20C",
		Conditions:       "Sunny with wind.",
	}, nil
}

func executeWeatherTool(ctx context.Context, provider WeatherProvider, tool string, args map[string]any) contractx.ToolResult {
	raw, ok := args["city"]
	if !ok {
		return contractx.ToolResult{Tool: tool, Error: "city is required"}
	}
	city, ok := raw.(string)
	if !ok || strings.TrimSpace(city) == "" {
		return contractx.ToolResult{Tool: tool, Error: "city must be a non-empty string"}
	}

	report, err := provider.Lookup(ctx, strings.TrimSpace(city))
	if err != nil {
		return contractx.ToolResult{Tool: tool, Error: err.Error()}
	}
	return contractx.ToolResult{Tool: tool, Result: report}
}
