package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"heatload_backend/internal/blueprint"
)

const (
	// compressTargetBytes is the preferred upload size per image.
	compressTargetBytes = 2 << 20
	// compressCeilingBytes is the provider's hard per-image limit.
	compressCeilingBytes = 5 << 20
)

// qualityLadder is the JPEG re-encode sequence tried before falling back to
// resolution reduction.
var qualityLadder = []int{85, 70, 55, 40}

// Compress shrinks a page raster to the upload size target using a two-step
// strategy: walk the JPEG quality ladder, then halve resolution until the
// hard ceiling is met.
func Compress(img blueprint.PageImage) (EncodedImage, error) {
	if len(img.Bytes) == 0 {
		return EncodedImage{}, fmt.Errorf("empty page image")
	}

	// Already small enough: ship as-is.
	if len(img.Bytes) <= compressTargetBytes {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return EncodedImage{MIMEType: mime, Data: img.Bytes}, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Bytes))
	if err != nil {
		return EncodedImage{}, fmt.Errorf("decode page image: %w", err)
	}

	for _, quality := range qualityLadder {
		data, err := encodeJPEG(decoded, quality)
		if err != nil {
			return EncodedImage{}, err
		}
		if len(data) <= compressTargetBytes {
			return EncodedImage{MIMEType: "image/jpeg", Data: data}, nil
		}
	}

	// Quality alone was not enough: halve the resolution until under the
	// hard ceiling.
	current := decoded
	for i := 0; i < 4; i++ {
		current = halve(current)
		data, err := encodeJPEG(current, qualityLadder[len(qualityLadder)-1])
		if err != nil {
			return EncodedImage{}, err
		}
		if len(data) <= compressCeilingBytes {
			return EncodedImage{MIMEType: "image/jpeg", Data: data}, nil
		}
	}
	return EncodedImage{}, fmt.Errorf("page image cannot be compressed under %d bytes", compressCeilingBytes)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

func halve(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()/2, b.Dy()/2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
