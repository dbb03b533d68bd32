package extract

import (
	"bytes"
	"fmt"
	"strings"

	"code.sajari.com/docconv/v2"
)

// extractDocconv converts office and markup formats through docconv. docconv panics on some
// malformed archives, so a panic is reported as a conversion error.
func extractDocconv(content []byte, ext string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("convert %s: malformed document: %v", ext, r)
		}
	}()
	mimeType := docconv.MimeTypeByExtension("document" + ext)
	res, err := docconv.Convert(bytes.NewReader(content), mimeType, false)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", ext, err)
	}
	return strings.TrimSpace(res.Body), nil
}
