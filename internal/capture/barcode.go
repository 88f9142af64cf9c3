package capture

import (
	"errors"
	"fmt"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoSymbolDetected is returned when no barcode could be read from the image.
var ErrNoSymbolDetected = errors.New("no barcode detected")

// SymbolDecoder reads an item code from a photo of its label.
type SymbolDecoder interface {
	Decode(image []byte) (string, error)
}

// BarcodeDecoder tries QR and the common one-dimensional library label formats.
// The first reader that succeeds wins. Item codes are returned verbatim.
// gozxing readers keep per-decode state, so each Decode builds its own set
// and a single BarcodeDecoder can serve concurrent requests.
type BarcodeDecoder struct {
	readers []func() gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// NewBarcodeDecoder creates a decoder.
func NewBarcodeDecoder() *BarcodeDecoder {
	return &BarcodeDecoder{
		readers: []func() gozxing.Reader{
			qrcode.NewQRCodeReader,
			oned.NewCode128Reader,
			oned.NewEAN13Reader,
			oned.NewEAN8Reader,
			oned.NewUPCAReader,
			oned.NewCode39Reader,
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the text of the first barcode found in the image.
func (d *BarcodeDecoder) Decode(image []byte) (string, error) {
	img, err := DecodeImage(image)
	if err != nil {
		return "", err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize image: %w", err)
	}

	for _, newReader := range d.readers {
		result, err := newReader().Decode(bmp, d.hints)
		if err != nil {
			continue
		}
		if text := result.GetText(); text != "" {
			return text, nil
		}
	}
	return "", ErrNoSymbolDetected
}
