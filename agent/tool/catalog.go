package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/amontero/dialogo/agent/contract"
)

const (
	ToolMathEvaluate  = "math.evaluate"
	ToolWeatherLookup = "weather.lookup"
)

// Gateway executes tool requests on behalf of agents. It implements
// contract.ToolGateway and enforces the per-agent catalog.
type Gateway struct {
	weather WeatherProvider
}

func NewGateway(weather WeatherProvider) *Gateway {
	if weather == nil {
		weather = CannedWeather{}
	}
	return &Gateway{weather: weather}
}

func (g *Gateway) Execute(ctx context.Context, agent contractx.AgentName, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	allowed := allowedTools(agent)
	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		if _, ok := allowed[req.Tool]; !ok {
			results = append(results, contractx.ToolResult{
				Tool:  req.Tool,
				Error: fmt.Sprintf("tool=%s is not available for agent=%s", req.Tool, agent),
			})
			continue
		}
		results = append(results, g.execute(ctx, req))
	}
	return results, nil
}

func (g *Gateway) execute(ctx context.Context, req contractx.ToolRequest) contractx.ToolResult {
	switch req.Tool {
	case ToolMathEvaluate:
		return executeMathTool(req.Tool, req.Args)
	case ToolWeatherLookup:
		return executeWeatherTool(ctx, g.weather, req.Tool, req.Args)
	default:
		return contractx.ToolResult{
			Tool:  req.Tool,
			Error: fmt.Sprintf("tool=%s is not implemented", req.Tool),
		}
	}
}

// InfosFor returns the eino tool schemas an agent may bind to its model.
func InfosFor(agent contractx.AgentName) []*schema.ToolInfo {
	switch agent {
	case contractx.AgentSpanish, contractx.AgentEnglish:
		return []*schema.ToolInfo{
			{
				Name: ToolWeatherLookup,
				Desc: "Look up current weather conditions for a city.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"city": {Type: schema.String, Desc: "City name", Required: true},
				}),
			},
			mathToolInfo(),
		}
	case contractx.AgentTutor:
		return []*schema.ToolInfo{mathToolInfo()}
	default:
		return nil
	}
}

func mathToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolMathEvaluate,
		Desc: "Evaluate a mathematical expression.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"expression": {Type: schema.String, Desc: "Expression to evaluate", Required: true},
		}),
	}
}

func allowedTools(agent contractx.AgentName) map[string]struct{} {
	infos := InfosFor(agent)
	set := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		if info != nil && info.Name != "" {
			set[info.Name] = struct{}{}
		}
	}
	return set
}
