package captcha

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Canvas size expected by the solver model.
const (
	CanvasHeight = 64
	CanvasWidth  = 128
)

// gridBand is the number of bottom rows the site always paints with noise.
const gridBand = 2

// Image is a single channel raster ready for inference.
type Image struct {
	Height int
	Width  int
	Pix    []uint8
}

// At returns the pixel at row y, column x.
func (im *Image) At(y, x int) uint8 {
	return im.Pix[y*im.Width+x]
}

// Tensor returns the pixels shaped Height x Width x 1, the layout the model
// serving endpoint expects for one instance.
func (im *Image) Tensor() [][][]float32 {
	out := make([][][]float32, im.Height)
	for y := 0; y < im.Height; y++ {
		row := make([][]float32, im.Width)
		for x := 0; x < im.Width; x++ {
			row[x] = []float32{float32(im.At(y, x))}
		}
		out[y] = row
	}
	return out
}

// Preprocess runs the full pipeline on a captured captcha payload.
func Preprocess(data []byte) (*Image, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	trimmed, err := TrimAndPad(RemoveGrid(img), 1)
	if err != nil {
		return nil, err
	}
	return ResizeAndCenterPad(trimmed, CanvasHeight, CanvasWidth), nil
}

// DecodeImage parses data as an image and returns its alpha channel, which is
// where the site draws the glyph mask.
func DecodeImage(data []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !hasAlpha(img) {
		return nil, fmt.Errorf("%w: no alpha channel", ErrDecode)
	}

	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Pix[y*out.Stride+x] = uint8(a >> 8)
		}
	}
	return out, nil
}

func hasAlpha(img image.Image) bool {
	switch m := img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.Alpha, *image.Alpha16:
		return true
	case *image.RGBA:
		return !m.Opaque()
	case *image.RGBA64:
		return !m.Opaque()
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// RemoveGrid blanks the noise band at the bottom and erases the thin grid
// lines with a 3x3 morphological opening. The input is left untouched.
func RemoveGrid(src *image.Gray) *image.Gray {
	img := cloneGray(src)
	b := img.Bounds()
	for y := max(b.Dy()-gridBand, 0); y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()]
		clear(row)
	}
	return morph(morph(img, minOf), maxOf)
}

func minOf(a, b uint8) uint8 { return min(a, b) }
func maxOf(a, b uint8) uint8 { return max(a, b) }

// morph applies a 3x3 rank filter. Pixels outside the image never win, which
// matches erosion and dilation with a neutral constant border.
func morph(src *image.Gray, pick func(a, b uint8) uint8) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := src.Pix[y*src.Stride+x]
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					v = pick(v, src.Pix[yy*src.Stride+xx])
				}
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

// TrimAndPad crops img to the bounding box of its non-zero pixels and adds a
// zero border of pad pixels on every side.
func TrimAndPad(img *image.Gray, pad int) (*image.Gray, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	colSum := make([]int, w)
	rowSum := make([]int, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(img.Pix[y*img.Stride+x])
			colSum[x] += v
			rowSum[y] += v
		}
	}

	left, right, ok := nonZeroSpan(colSum)
	if !ok {
		return nil, fmt.Errorf("%w: no columns", ErrEmptyGlyph)
	}
	top, bottom, ok := nonZeroSpan(rowSum)
	if !ok {
		return nil, fmt.Errorf("%w: no rows", ErrEmptyGlyph)
	}

	cw, ch := right-left+1, bottom-top+1
	out := image.NewGray(image.Rect(0, 0, cw+2*pad, ch+2*pad))
	for y := 0; y < ch; y++ {
		srcRow := img.Pix[(top+y)*img.Stride+left : (top+y)*img.Stride+left+cw]
		copy(out.Pix[(y+pad)*out.Stride+pad:], srcRow)
	}
	return out, nil
}

func nonZeroSpan(sums []int) (first, last int, ok bool) {
	first, last = -1, -1
	for i, s := range sums {
		if s == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	return first, last, first >= 0
}

// ResizeAndCenterPad scales img uniformly to fit height x width and centers
// it on a zero canvas. Odd remainders go to the bottom and right.
func ResizeAndCenterPad(img *image.Gray, height, width int) *Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	ratio := min(float64(height)/float64(h), float64(width)/float64(w))
	nw := max(int(float64(w)*ratio), 1)
	nh := max(int(float64(h)*ratio), 1)

	scaled := img
	if nw != w || nh != h {
		scaled = image.NewGray(image.Rect(0, 0, nw, nh))
		draw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	}

	top := (height - nh) / 2
	left := (width - nw) / 2
	out := &Image{Height: height, Width: width, Pix: make([]uint8, height*width)}
	for y := 0; y < nh; y++ {
		copy(out.Pix[(top+y)*width+left:], scaled.Pix[y*scaled.Stride:y*scaled.Stride+nw])
	}
	return out
}

func cloneGray(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:], src.Pix[y*src.Stride:y*src.Stride+b.Dx()])
	}
	return dst
}
