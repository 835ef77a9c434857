package app

import (
	"fmt"
	"strings"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"github.com/ilkoid/poncho-assist/pkg/models"
	"github.com/ilkoid/poncho-assist/pkg/search"
	"github.com/ilkoid/poncho-assist/pkg/tools"
	"github.com/ilkoid/poncho-assist/pkg/tools/std"
	"github.com/ilkoid/poncho-assist/pkg/utils"
	"github.com/ilkoid/poncho-assist/pkg/weather"
)

// ToolSet определяет набор инструментов для регистрации.
//
// Битовые флаги позволяют утилите регистрировать только нужное:
// меньше определений в запросе, меньше токенов.
type ToolSet int

const (
	ToolSearch ToolSet = 1 << iota
	ToolWeather
	ToolOCR
	ToolPDFExtractor
	ToolPDFIngestion

	// Предопределённые комбинации
	ToolsGeneral   = ToolSearch | ToolWeather
	ToolsDocuments = ToolOCR | ToolPDFExtractor | ToolPDFIngestion
	ToolsAll       = ToolsGeneral | ToolsDocuments
)

// String: имена включённых флагов для логов.
func (s ToolSet) String() string {
	var names []string
	for _, t := range toolOrder {
		if s&t.flag != 0 {
			names = append(names, t.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// toolOrder: порядок регистрации (его же видит модель).
var toolOrder = []struct {
	flag ToolSet
	name string
}{
	{ToolSearch, config.ToolSearch},
	{ToolWeather, config.ToolWeather},
	{ToolOCR, config.ToolOCR},
	{ToolPDFExtractor, config.ToolPDFExtractor},
	{ToolPDFIngestion, config.ToolPDFIngestion},
}

// SetupTools регистрирует инструменты из набора, пропуская выключенные
// в config.yaml (tools.<name>.enabled: false).
func SetupTools(reg *tools.Registry, cfg *config.AppConfig, modelReg *models.Registry,
	files *std.FileResolver, set ToolSet) error {
	for _, t := range toolOrder {
		if set&t.flag == 0 {
			continue
		}
		if !cfg.IsToolEnabled(t.name) {
			utils.Debug("Tool disabled in config, skipping", "tool", t.name)
			continue
		}

		tool, err := newTool(t.name, cfg, modelReg, files)
		if err != nil {
			return fmt.Errorf("tool %s: %w", t.name, err)
		}
		if err := reg.Register(tool); err != nil {
			return err
		}
		utils.Debug("Tool registered", "tool", t.name)
	}
	return nil
}

func newTool(name string, cfg *config.AppConfig, modelReg *models.Registry, files *std.FileResolver) (tools.Tool, error) {
	switch name {
	case config.ToolSearch:
		ddg, err := search.NewFromConfig(cfg.Search)
		if err != nil {
			return nil, err
		}
		return std.NewSearchTool(ddg), nil

	case config.ToolWeather:
		wc, err := weather.NewFromConfig(cfg.Weather)
		if err != nil {
			return nil, err
		}
		return std.NewWeatherTool(wc), nil

	case config.ToolOCR:
		vision, _, err := modelReg.For(models.RoleVision)
		if err != nil {
			return nil, err
		}
		return std.NewOCRTool(vision, files, std.OCROptions{
			MaxWidth: cfg.ImageProcessing.MaxWidth,
			Quality:  cfg.ImageProcessing.Quality,
		}), nil

	case config.ToolPDFExtractor:
		return std.NewPDFExtractorTool(files, ExtractOptions(cfg)), nil

	case config.ToolPDFIngestion:
		return std.NewPDFIngestionTool(files, ExtractOptions(cfg)), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}
