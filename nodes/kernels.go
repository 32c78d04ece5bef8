package nodes

import (
	"image"
	"math"

	"github.com/gogpu/freska/internal/parallel"
	"github.com/gogpu/freska/render"
)

// CPU renditions of the built-in shaders, run by the software backend.
// They sample with nearest filtering, so results match the GPU to within
// the bilinear difference.

func init() {
	render.RegisterKernel(colorCorrectionLabel, colorCorrectionKernel)
	render.RegisterKernel(colorQuantizationLabel, colorQuantizationKernel)
	render.RegisterKernel(colorOutlineLabel, colorOutlineKernel)
}

const goldenAngle = 2.39996323

var luma = [3]float32{0.2126, 0.7152, 0.0722}

// shade runs fn for every pixel of dst, in row bands on the shared pool.
func shade(dst *image.RGBA, fn func(x, y int) [4]float32) {
	b := dst.Rect
	parallel.Shared().Rows(b.Dy(), func(y0, y1 int) {
		for y := b.Min.Y + y0; y < b.Min.Y+y1; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.SetRGBA(x, y, render.RGBA(fn(x, y)))
			}
		}
	})
}

func colorCorrectionKernel(dst *image.RGBA, in *render.KernelInput) {
	wb := in.Vec3("white_balance")
	exposure := float32(math.Exp2(float64(in.Float("exposure"))))
	t := in.Float("temperature")
	temp := [3]float32{t, 1, 2 - t}
	contrast := in.Float("contrast")
	brightness := in.Float("brightness")
	saturation := in.Float("saturation")
	invGamma := 1 / max(in.Float("gamma"), 0.001)

	shade(dst, func(x, y int) [4]float32 {
		s := in.At("frame", x, y)
		var c [3]float32
		for i := range c {
			v := s[i] * wb[i] * exposure * temp[i]
			c[i] = (v-0.5)*contrast + 0.5 + brightness
		}
		l := dot(c, luma)
		out := [4]float32{0, 0, 0, 1}
		for i := range c {
			v := l + (c[i]-l)*saturation
			out[i] = float32(math.Pow(float64(max(v, 0)), float64(invGamma)))
		}
		return out
	})
}

func colorQuantizationKernel(dst *image.RGBA, in *render.KernelInput) {
	offsets := spiral(int(in.Int("n_samples")), float64(in.Int("radius")))
	levels := float32(max(in.Int("n_levels"), 1))

	shade(dst, func(x, y int) [4]float32 {
		var sum [3]float32
		for _, o := range offsets {
			s := in.At("frame", x+o.X, y+o.Y)
			sum[0] += s[0]
			sum[1] += s[1]
			sum[2] += s[2]
		}
		out := [4]float32{0, 0, 0, 1}
		for i := range sum {
			v := min(sum[i]/float32(len(offsets)), 0.9999)
			out[i] = (float32(math.Floor(float64(v*levels))) + 0.5) / levels
		}
		return out
	})
}

func colorOutlineKernel(dst *image.RGBA, in *render.KernelInput) {
	offsets := spiral(int(in.Int("n_samples")), float64(in.Int("radius")))
	outline := in.Vec3("color")
	threshold := in.Float("threshold")

	shade(dst, func(x, y int) [4]float32 {
		center := in.At("frame", x, y)
		var diff float32
		for _, o := range offsets {
			s := in.At("frame", x+o.X, y+o.Y)
			diff += (abs32(s[0]-center[0]) + abs32(s[1]-center[1]) + abs32(s[2]-center[2])) / 3
		}
		if diff/float32(len(offsets)) > threshold {
			return [4]float32{outline[0], outline[1], outline[2], 1}
		}
		return [4]float32{center[0], center[1], center[2], 1}
	})
}

// spiral returns n pixel offsets on a golden angle spiral of the given
// radius, rounded to the nearest pixel.
func spiral(n int, radius float64) []image.Point {
	n = max(n, 1)
	pts := make([]image.Point, n)
	for i := range pts {
		r := radius * math.Sqrt((float64(i)+0.5)/float64(n))
		theta := float64(i) * goldenAngle
		pts[i] = image.Pt(int(math.Round(r*math.Cos(theta))), int(math.Round(r*math.Sin(theta))))
	}
	return pts
}

func dot(a, b [3]float32) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
