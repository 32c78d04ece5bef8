package capture

import (
	"image"

	"golang.org/x/image/draw"
)

// Convert writes f into dst as opaque RGBA, swapping channels as the frame
// layout requires. A frame whose size differs from dst is rescaled with
// bilinear filtering.
func Convert(dst *image.RGBA, f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Width == dst.Rect.Dx() && f.Height == dst.Rect.Dy() {
		convertInto(dst, f)
		return nil
	}
	tmp := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	convertInto(tmp, f)
	draw.ApproxBiLinear.Scale(dst, dst.Rect, tmp, tmp.Rect, draw.Src, nil)
	return nil
}

// ToRGBA returns f as a new RGBA image of the same size.
func ToRGBA(f Frame) (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	convertInto(img, f)
	return img, nil
}

// convertInto assumes dst has exactly f's size.
func convertInto(dst *image.RGBA, f Frame) {
	bpp := f.Layout.BytesPerPixel()
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Width*bpp : (y+1)*f.Width*bpp]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+f.Width*4]
		switch f.Layout {
		case LayoutRGBA32:
			copy(row, src)
		case LayoutRGB24:
			for x, j := 0, 0; x < len(row); x, j = x+4, j+3 {
				row[x], row[x+1], row[x+2], row[x+3] = src[j], src[j+1], src[j+2], 0xff
			}
		default:
			for x, j := 0, 0; x < len(row); x, j = x+4, j+3 {
				row[x], row[x+1], row[x+2], row[x+3] = src[j+2], src[j+1], src[j], 0xff
			}
		}
	}
}
