package extract

import (
	"bytes"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain decodes content as UTF-8 text. A leading byte order mark is dropped,
// CRLF line endings become LF and invalid sequences become U+FFFD.
func extractPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	text := strings.ToValidUTF8(string(content), "\ufffd")
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}
