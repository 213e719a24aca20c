package report

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 512

// JoinURL fills the {code} placeholder of a join link template.
func JoinURL(template, code string) string {
	if template == "" {
		return code
	}
	return strings.ReplaceAll(template, "{code}", code)
}

// JoinQRCode renders the join link of a quiz as a PNG QR code.
func JoinQRCode(template, code string) ([]byte, error) {
	return qrcode.Encode(JoinURL(template, code), qrcode.Medium, qrSize)
}
