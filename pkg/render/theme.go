package render

// Theme represents a color theme for plot pages.
type Theme string

const (
	// ThemeLight is the light color theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark color theme.
	ThemeDark Theme = "dark"
)

// ThemeConfig holds theme-specific styling values.
type ThemeConfig struct {
	Background    string
	Surface       string
	Border        string
	TextPrimary   string
	TextSecondary string
	TextMuted     string

	ChartBackground string
	ChartGrid       string
	ChartAxis       string
	ChartText       string
	ChartTextMuted  string

	// EChartsTheme is the echarts built-in theme name.
	EChartsTheme string
}

// GetThemeConfig returns the styling values for a theme.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeLight {
		return ThemeConfig{
			Background:      "#f8f9fa",
			Surface:         "#ffffff",
			Border:          "#dee2e6",
			TextPrimary:     "#212529",
			TextSecondary:   "#495057",
			TextMuted:       "#868e96",
			ChartBackground: "#ffffff",
			ChartGrid:       "#e9ecef",
			ChartAxis:       "#adb5bd",
			ChartText:       "#212529",
			ChartTextMuted:  "#868e96",
			EChartsTheme:    "",
		}
	}

	return ThemeConfig{
		Background:      "#101214",
		Surface:         "#16191d",
		Border:          "#2a2e34",
		TextPrimary:     "#e6e8ea",
		TextSecondary:   "#b4b8bd",
		TextMuted:       "#7d828a",
		ChartBackground: "#16191d",
		ChartGrid:       "#2a2e34",
		ChartAxis:       "#4a4f57",
		ChartText:       "#e6e8ea",
		ChartTextMuted:  "#b4b8bd",
		EChartsTheme:    "dark",
	}
}

// Overlay line colors for the statistics drawn on top of the histogram.
const (
	colorMode       = "#ff7f0e"
	colorMean       = "#2ca02c"
	colorPercentile = "#9aa0a6"
	colorNoiseModel = "#6c6f75"
)

// gradientStops maps a colormap name to echarts visual-map color stops.
// Unknown names fall back to viridis.
func gradientStops(cmap string) []string {
	switch cmap {
	case "pqlx":
		return []string{"#ffffff", "#1e26ff", "#00d4ff", "#22e04e", "#f5e626", "#e8262b"}
	case "hot":
		return []string{"#000000", "#7a0000", "#e85000", "#ffc100", "#ffffff"}
	default:
		return []string{
			"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
			"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
		}
	}
}
