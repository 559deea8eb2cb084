package summarizer

import "bytes"

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegSOI      = []byte{0xff, 0xd8, 0xff}
)

// DetectMIME sniffs the image type from its magic bytes, defaulting to JPEG.
func DetectMIME(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return "image/png"
	case bytes.HasPrefix(data, jpegSOI):
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}
