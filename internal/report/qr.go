package report

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ManifestCrcToQR creates a QR code PNG encoding a manifest's map CRC-32 so
// a printed report can be checked against the exported bin with a phone.
func ManifestCrcToQR(crcHex string, size int) ([]byte, error) {
	normalized := sanitizeHex(crcHex)
	if normalized == "" {
		return nil, fmt.Errorf("manifest crc is empty")
	}
	if size <= 0 {
		size = 128
	}
	png, err := qrcode.Encode(normalized, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	return png, nil
}

func sanitizeHex(s string) string {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if upper == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range upper {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'F':
			b.WriteRune(r)
		}
	}
	return b.String()
}
