package reader

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"

	"github.com/tsawler/folio/core"
	"github.com/tsawler/folio/pages"
)

// PageImage is an image XObject drawn on a page.
type PageImage struct {
	Name             string // resource name, e.g. "Im1"
	Width            int
	Height           int
	ColorSpace       string // DeviceGray, DeviceRGB, DeviceCMYK, ...
	BitsPerComponent int
	Data             []byte // decoded samples, or the encoded file for DCT and JPX
	Filter           string // last filter of the stream
}

// Encoded reports whether Data still holds an encoded image file.
func (img *PageImage) Encoded() bool {
	return img.Filter == "DCTDecode" || img.Filter == "DCT" || img.Filter == "JPXDecode"
}

// ExtractPageImages returns the image XObjects of a page ordered by
// resource name. Images that cannot be decoded are skipped.
func (r *Reader) ExtractPageImages(page *pages.Page) ([]PageImage, error) {
	resources, err := page.Resources()
	if err != nil {
		return nil, err
	}
	obj, err := r.Resolve(resources.Get("XObject"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve XObject dictionary: %w", err)
	}
	xobjects, ok := obj.(core.Dict)
	if !ok {
		return nil, nil
	}

	names := make([]string, 0, len(xobjects))
	for name := range xobjects {
		names = append(names, name)
	}
	sort.Strings(names)

	var images []PageImage
	for _, name := range names {
		resolved, err := r.Resolve(xobjects[name])
		if err != nil {
			continue
		}
		stream, ok := resolved.(*core.Stream)
		if !ok {
			continue
		}
		if subtype, _ := stream.Dict.GetName("Subtype"); subtype != "Image" {
			continue
		}
		img, err := r.extractImage(name, stream)
		if err != nil {
			continue
		}
		images = append(images, *img)
	}
	return images, nil
}

// ScanImage returns the largest image of a page, which on a scanned
// document is the scan itself, as PNG or JPEG bytes. It returns nil when
// the page has no usable image.
func (r *Reader) ScanImage(page *pages.Page) ([]byte, error) {
	images, err := r.ExtractPageImages(page)
	if err != nil {
		return nil, err
	}
	var best *PageImage
	for i := range images {
		img := &images[i]
		if img.Filter == "JPXDecode" {
			continue
		}
		if best == nil || img.Width*img.Height > best.Width*best.Height {
			best = img
		}
	}
	if best == nil {
		return nil, nil
	}
	if best.Encoded() {
		return best.Data, nil
	}
	return best.ToPNG()
}

func (r *Reader) extractImage(name string, stream *core.Stream) (*PageImage, error) {
	dict := stream.Dict
	width, err := r.intValue(dict.Get("Width"))
	if err != nil {
		return nil, fmt.Errorf("image %s: width: %w", name, err)
	}
	height, err := r.intValue(dict.Get("Height"))
	if err != nil {
		return nil, fmt.Errorf("image %s: height: %w", name, err)
	}

	img := &PageImage{
		Name:             name,
		Width:            width,
		Height:           height,
		ColorSpace:       "DeviceGray",
		BitsPerComponent: 8,
	}
	if bpc, err := r.intValue(dict.Get("BitsPerComponent")); err == nil {
		img.BitsPerComponent = bpc
	}
	if mask, ok := dict.Get("ImageMask").(core.Bool); ok && bool(mask) {
		img.BitsPerComponent = 1
	}
	if cs := dict.Get("ColorSpace"); cs != nil {
		img.ColorSpace = r.colorSpaceName(cs, 0)
	}
	if filters := stream.Filters(); len(filters) > 0 {
		img.Filter = filters[len(filters)-1]
	}

	img.Data, err = stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", name, err)
	}
	return img, nil
}

func (r *Reader) intValue(obj core.Object) (int, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return 0, err
	}
	switch v := resolved.(type) {
	case core.Int:
		return int(v), nil
	case core.Real:
		return int(v), nil
	}
	return 0, fmt.Errorf("not a number: %T", resolved)
}

// colorSpaceName reduces a color space to the device family its samples
// are in. Indexed spaces report their base.
func (r *Reader) colorSpaceName(obj core.Object, depth int) string {
	resolved, err := r.Resolve(obj)
	if err != nil || depth > 4 {
		return "DeviceGray"
	}
	switch v := resolved.(type) {
	case core.Name:
		return string(v)
	case core.Array:
		if len(v) == 0 {
			break
		}
		name, _ := v[0].(core.Name)
		switch name {
		case "Indexed", "I":
			if len(v) > 1 {
				return r.colorSpaceName(v[1], depth+1)
			}
		case "ICCBased":
			if len(v) > 1 {
				if s, err := r.Resolve(v[1]); err == nil {
					if stream, ok := s.(*core.Stream); ok {
						switch n, _ := stream.Dict.GetInt("N"); n {
						case 3:
							return "DeviceRGB"
						case 4:
							return "DeviceCMYK"
						}
					}
				}
			}
			return "DeviceGray"
		case "CalRGB", "Lab":
			return "DeviceRGB"
		case "CalGray":
			return "DeviceGray"
		}
		return string(name)
	}
	return "DeviceGray"
}

// ToPNG converts decoded samples to PNG.
func (img *PageImage) ToPNG() ([]byte, error) {
	if img.Encoded() {
		return nil, fmt.Errorf("image %s is %s encoded", img.Name, img.Filter)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("image %s has no pixels", img.Name)
	}

	var out image.Image
	var err error
	switch img.ColorSpace {
	case "DeviceRGB", "RGB":
		out, err = img.rgb(3, func(p []byte) color.RGBA {
			return color.RGBA{R: p[0], G: p[1], B: p[2], A: 255}
		})
	case "DeviceCMYK", "CMYK":
		out, err = img.rgb(4, func(p []byte) color.RGBA {
			r, g, b := color.CMYKToRGB(p[0], p[1], p[2], p[3])
			return color.RGBA{R: r, G: g, B: b, A: 255}
		})
	default:
		out, err = img.gray()
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// gray expands 1, 2, 4 or 8 bit samples. Rows are padded to whole bytes.
func (img *PageImage) gray() (*image.Gray, error) {
	bpc := img.BitsPerComponent
	switch bpc {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("unsupported bits per component: %d", bpc)
	}
	stride := (img.Width*bpc + 7) / 8
	if len(img.Data) < stride*img.Height {
		return nil, fmt.Errorf("insufficient data: got %d, expected %d", len(img.Data), stride*img.Height)
	}

	out := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	maxVal := 1<<bpc - 1
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*stride : (y+1)*stride]
		for x := 0; x < img.Width; x++ {
			bit := x * bpc
			v := int(row[bit/8]>>(8-bpc-bit%8)) & maxVal
			out.Pix[y*out.Stride+x] = uint8(v * 255 / maxVal)
		}
	}
	return out, nil
}

func (img *PageImage) rgb(components int, convert func([]byte) color.RGBA) (*image.RGBA, error) {
	if img.BitsPerComponent != 8 {
		return nil, fmt.Errorf("unsupported bits per component for %s: %d", img.ColorSpace, img.BitsPerComponent)
	}
	n := img.Width * img.Height * components
	if len(img.Data) < n {
		return nil, fmt.Errorf("insufficient data: got %d, expected %d", len(img.Data), n)
	}

	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i < img.Width*img.Height; i++ {
		c := convert(img.Data[i*components : (i+1)*components])
		out.Pix[i*4], out.Pix[i*4+1], out.Pix[i*4+2], out.Pix[i*4+3] = c.R, c.G, c.B, c.A
	}
	return out, nil
}
