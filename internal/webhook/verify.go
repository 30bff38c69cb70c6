package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifySignature checks a webhook payload signature: base64(HMAC-SHA256)
// over the raw, unparsed body. Must run before the body is interpreted;
// re-serialization would change the byte sequence. A missing header is a
// failure, never vacuously valid.
func VerifySignature(body []byte, hmacHeader string, secret string) bool {
	if hmacHeader == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(hmacHeader))
}
