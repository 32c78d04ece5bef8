package nodes

import (
	"embed"
	"fmt"
	"time"

	"github.com/gogpu/freska/capture"
	"github.com/gogpu/freska/graph"
	"github.com/gogpu/freska/render"
)

// Built-in template names.
const (
	VideoSourceName       = "Video Source"
	ColorCorrectionName   = "Color Correction"
	ColorQuantizationName = "Color Quantization"
	ColorOutlineName      = "Color Outline"
)

const (
	colorCorrectionLabel   = "color_correction"
	colorQuantizationLabel = "color_quantization"
	colorOutlineLabel      = "color_outline"
)

//go:embed shaders/*.wgsl
var shaders embed.FS

func shaderSource(label string) string {
	src, err := shaders.ReadFile("shaders/" + label + ".wgsl")
	if err != nil {
		panic(fmt.Sprintf("nodes: missing built-in shader %s: %v", label, err))
	}
	return string(src)
}

// Env is what the built-in templates need to construct executors.
type Env struct {
	// Backend creates textures and programs.
	Backend render.Backend

	// Capture opens the device of Video Source nodes.
	Capture capture.Opener

	// DeviceIndex is the device every Video Source node opens.
	DeviceIndex int

	// RetryBackoff is the pause after a failed read; zero selects
	// DefaultRetryBackoff.
	RetryBackoff time.Duration
}

// VideoSource returns the Video Source template.
func (env Env) VideoSource() graph.Template {
	return graph.Template{
		Name: VideoSourceName,
		Pins: []graph.Pin{
			graph.TexturePin("frame", graph.Output),
		},
		New: func(*graph.Node) (graph.Executor, error) {
			if env.Backend == nil {
				return nil, ErrNoBackend
			}
			return NewVideoSource(env.Backend, env.Capture, env.DeviceIndex, WithRetryBackoff(env.RetryBackoff))
		},
	}
}

// Effects returns the built-in effects.
func Effects() []Effect {
	return []Effect{
		{
			Name:     ColorCorrectionName,
			Label:    colorCorrectionLabel,
			Fragment: shaderSource(colorCorrectionLabel),
			Pins: []graph.Pin{
				graph.TexturePin("frame", graph.Input),
				graph.ColorPin("white_balance", graph.Manual, graph.RGB{1, 1, 1}),
				graph.FloatPin("exposure", graph.Manual, -1, -1, 10),
				graph.FloatPin("temperature", graph.Manual, 1, 0, 2),
				graph.FloatPin("contrast", graph.Manual, 1, 0, 3),
				graph.FloatPin("brightness", graph.Manual, 0, -1, 1),
				graph.FloatPin("saturation", graph.Manual, 1, 0, 5),
				graph.FloatPin("gamma", graph.Manual, 1, 0, 4),
				graph.TexturePin("frame", graph.Output),
			},
		},
		{
			Name:     ColorQuantizationName,
			Label:    colorQuantizationLabel,
			Fragment: shaderSource(colorQuantizationLabel),
			Pins: []graph.Pin{
				graph.TexturePin("frame", graph.Input),
				graph.IntPin("n_levels", graph.Manual, 4, 1, 16),
				graph.IntPin("n_samples", graph.Manual, 64, 4, 87),
				graph.IntPin("radius", graph.Manual, 16, 1, 32),
				graph.TexturePin("frame", graph.Output),
			},
		},
		{
			Name:     ColorOutlineName,
			Label:    colorOutlineLabel,
			Fragment: shaderSource(colorOutlineLabel),
			Pins: []graph.Pin{
				graph.TexturePin("frame", graph.Input),
				graph.ColorPin("color", graph.Manual, graph.RGB{0, 0, 0}),
				graph.FloatPin("threshold", graph.Manual, 0.06, 0, 0.2),
				graph.IntPin("n_samples", graph.Manual, 64, 4, 87),
				graph.IntPin("radius", graph.Manual, 16, 1, 32),
				graph.TexturePin("frame", graph.Output),
			},
		},
	}
}

// Templates returns the Video Source template followed by the templates of
// the built-in effects and of extra.
func (env Env) Templates(extra ...Effect) []graph.Template {
	ts := []graph.Template{env.VideoSource()}
	for _, e := range append(Effects(), extra...) {
		ts = append(ts, e.Template(env.Backend))
	}
	return ts
}

// NewRegistry returns a registry holding env.Templates(extra...).
func NewRegistry(env Env, extra ...Effect) (*graph.Registry, error) {
	return graph.NewRegistry(env.Templates(extra...)...)
}
