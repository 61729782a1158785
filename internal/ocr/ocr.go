package ocr

import "context"

// TextExtractor pulls readable text out of an image on disk. The file
// pipeline picks the cloud or local implementation per request based on
// connectivity.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}
