package shader

import (
	"errors"
	"testing"

	"github.com/gogpu/freska/render"
)

const passthroughFragment = `@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(frame, frame_sampler, in.uv);
}
`

func effectModule(t *testing.T) string {
	t.Helper()
	l, err := render.NewLayout([]render.Param{
		{Name: "frame", Kind: render.ParamTexture},
		{Name: "level", Kind: render.ParamFloat},
	})
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}
	return l.Module("", passthroughFragment)
}

func TestAnalyzeEffectModule(t *testing.T) {
	r, err := Analyze(effectModule(t))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !r.Has(render.VertexEntryPoint, StageVertex) {
		t.Errorf("entry points %v missing vertex %s", r.EntryPoints, render.VertexEntryPoint)
	}
	if !r.Has(render.FragmentEntryPoint, StageFragment) {
		t.Errorf("entry points %v missing fragment %s", r.EntryPoints, render.FragmentEntryPoint)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		empty bool
	}{
		{"empty", "", true},
		{"blank", "  \n\t", true},
		{"syntax", "@fragment\nfn fs_main( {\n}\n", false},
		{"unknown identifier", "@fragment\nfn fs_main() -> @location(0) vec4<f32> {\n    return missing;\n}\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.src)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if got := errors.Is(err, ErrEmptySource); got != tt.empty {
				t.Errorf("errors.Is(err, ErrEmptySource) = %v, want %v (err = %v)", got, tt.empty, err)
			}
		})
	}
}

func TestCompileSPIRVMagic(t *testing.T) {
	words, err := Compile(effectModule(t))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(words) < 5 {
		t.Fatalf("Compile() returned %d words, want a SPIR-V header", len(words))
	}
	if words[0] != 0x07230203 {
		t.Errorf("magic = 0x%08x, want 0x07230203", words[0])
	}
}

func TestWords(t *testing.T) {
	got := Words([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00, 0xff})
	want := []uint32{0x07230203, 1}
	if len(got) != len(want) {
		t.Fatalf("Words() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Words()[%d] = 0x%08x, want 0x%08x", i, got[i], want[i])
		}
	}
}

func TestCompilerCaches(t *testing.T) {
	c := NewCompiler(0)
	src := effectModule(t)

	first, err := c.Compile(src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	second, err := c.Compile(src)
	if err != nil {
		t.Fatalf("second Compile() error = %v", err)
	}
	if &first[0] != &second[0] {
		t.Error("second Compile() should return the cached module")
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", hits, misses)
	}

	if _, err := c.Compile(""); !errors.Is(err, ErrEmptySource) {
		t.Errorf("Compile(\"\") error = %v, want ErrEmptySource", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
