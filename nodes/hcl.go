package nodes

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/gogpu/freska/graph"
)

// hclEffectFile is the top-level structure of an effect file.
type hclEffectFile struct {
	Effects []*hclEffect `hcl:"effect,block"`
}

type hclEffect struct {
	Name   string    `hcl:"name,label"`
	Label  string    `hcl:"label,optional"`
	Shader string    `hcl:"shader,optional"`
	Source string    `hcl:"source,optional"`
	Vertex string    `hcl:"vertex,optional"`
	Pins   []*hclPin `hcl:"pin,block"`
}

type hclPin struct {
	Name  string    `hcl:"name,label"`
	Type  string    `hcl:"type"`
	Kind  string    `hcl:"kind,optional"`
	Value cty.Value `hcl:"value,optional"`
	Min   *float64  `hcl:"min,optional"`
	Max   *float64  `hcl:"max,optional"`
}

// LoadEffects reads effect declarations from an .hcl file, or from every
// .hcl file of a directory in name order. Shader paths are relative to the
// file that names them.
func LoadEffects(path string) ([]Effect, error) {
	files, err := hclFiles(path)
	if err != nil {
		return nil, err
	}
	parser := hclparse.NewParser()
	var effects []Effect
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("nodes: parse %s: %w", file, diags)
		}
		es, err := decodeEffects(f.Body, filepath.Dir(file))
		if err != nil {
			return nil, fmt.Errorf("nodes: %s: %w", file, err)
		}
		effects = append(effects, es...)
	}
	slogger().Debug("nodes: effects loaded", "path", path, "files", len(files), "effects", len(effects))
	return effects, nil
}

// ParseEffects decodes effect declarations from src. Shader paths are
// relative to dir.
func ParseEffects(src []byte, filename, dir string) ([]Effect, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("nodes: parse %s: %w", filename, diags)
	}
	return decodeEffects(f.Body, dir)
}

func hclFiles(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("nodes: effects: %w", err)
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}
	files, err := filepath.Glob(filepath.Join(path, "*.hcl"))
	if err != nil {
		return nil, fmt.Errorf("nodes: effects: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func decodeEffects(body hcl.Body, dir string) ([]Effect, error) {
	var parsed hclEffectFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return nil, diags
	}

	effects := make([]Effect, 0, len(parsed.Effects))
	for _, he := range parsed.Effects {
		e, err := he.effect(dir)
		if err != nil {
			return nil, fmt.Errorf("effect %q: %w", he.Name, err)
		}
		effects = append(effects, e)
	}
	return effects, nil
}

func (he *hclEffect) effect(dir string) (Effect, error) {
	e := Effect{
		Name:   he.Name,
		Label:  he.Label,
		Vertex: he.Vertex,
	}
	if e.Label == "" {
		e.Label = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(he.Name)), " ", "_")
	}

	switch {
	case he.Shader != "" && he.Source != "":
		return Effect{}, fmt.Errorf("%w: both shader and source are set", graph.ErrInvalidTemplate)
	case he.Shader != "":
		path := he.Shader
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return Effect{}, fmt.Errorf("read shader: %w", err)
		}
		e.Fragment = string(src)
	case he.Source != "":
		e.Fragment = he.Source
	default:
		return Effect{}, fmt.Errorf("%w: one of shader or source is required", graph.ErrInvalidTemplate)
	}

	for _, hp := range he.Pins {
		p, err := hp.pin()
		if err != nil {
			return Effect{}, fmt.Errorf("pin %q: %w", hp.Name, err)
		}
		e.Pins = append(e.Pins, p)
	}

	t := e.Template(nil)
	if err := t.Validate(); err != nil {
		return Effect{}, err
	}
	if _, err := e.Module(); err != nil {
		return Effect{}, fmt.Errorf("%w: %w", graph.ErrInvalidTemplate, err)
	}
	return e, nil
}

func (hp *hclPin) pin() (graph.Pin, error) {
	kind, err := parsePinKind(hp.Kind)
	if err != nil {
		return graph.Pin{}, err
	}
	null := hp.Value.IsNull()

	switch strings.ToLower(hp.Type) {
	case "int", "integer":
		lo, hi := bounds(hp.Min, hp.Max, math.MinInt32, math.MaxInt32)
		if !isInt32(lo) || !isInt32(hi) {
			return graph.Pin{}, fmt.Errorf("%w: bounds [%g, %g] must be 32-bit integers",
				graph.ErrInvalidTemplate, lo, hi)
		}
		val := min(max(0, int(lo)), int(hi))
		if !null {
			if err := gocty.FromCtyValue(hp.Value, &val); err != nil {
				return graph.Pin{}, fmt.Errorf("%w: value: %w", graph.ErrInvalidTemplate, err)
			}
		}
		return graph.IntPin(hp.Name, kind, val, int(lo), int(hi)), nil

	case "float":
		lo, hi := bounds(hp.Min, hp.Max, -math.MaxFloat32, math.MaxFloat32)
		val := min(max(0, lo), hi)
		if !null {
			if err := gocty.FromCtyValue(hp.Value, &val); err != nil {
				return graph.Pin{}, fmt.Errorf("%w: value: %w", graph.ErrInvalidTemplate, err)
			}
		}
		return graph.FloatPin(hp.Name, kind, float32(val), float32(lo), float32(hi)), nil

	case "color":
		c := graph.RGB{}
		if !null {
			list, err := convert.Convert(hp.Value, cty.List(cty.Number))
			if err != nil {
				return graph.Pin{}, fmt.Errorf("%w: value: %w", graph.ErrInvalidTemplate, err)
			}
			var comps []float64
			if err := gocty.FromCtyValue(list, &comps); err != nil {
				return graph.Pin{}, fmt.Errorf("%w: value: %w", graph.ErrInvalidTemplate, err)
			}
			if len(comps) != 3 {
				return graph.Pin{}, fmt.Errorf("%w: color needs 3 components, got %d", graph.ErrInvalidTemplate, len(comps))
			}
			c = graph.RGB{float32(comps[0]), float32(comps[1]), float32(comps[2])}
		}
		return graph.ColorPin(hp.Name, kind, c), nil

	case "texture":
		if !null {
			return graph.Pin{}, fmt.Errorf("%w: texture pins take no value", graph.ErrInvalidTemplate)
		}
		return graph.TexturePin(hp.Name, kind), nil

	default:
		return graph.Pin{}, fmt.Errorf("%w: unknown pin type %q", graph.ErrInvalidTemplate, hp.Type)
	}
}

func parsePinKind(s string) (graph.PinKind, error) {
	switch strings.ToLower(s) {
	case "", "manual":
		return graph.Manual, nil
	case "input":
		return graph.Input, nil
	case "output":
		return graph.Output, nil
	default:
		return 0, fmt.Errorf("%w: unknown pin kind %q", graph.ErrInvalidTemplate, s)
	}
}

func isInt32(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32
}

func bounds(lo, hi *float64, defLo, defHi float64) (float64, float64) {
	l, h := defLo, defHi
	if lo != nil {
		l = *lo
	}
	if hi != nil {
		h = *hi
	}
	return l, h
}
