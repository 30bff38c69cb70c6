package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func webhookSign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":123,"domain":"demo.myshopify.com"}`)
	sig := webhookSign(body, "secret")

	assert.True(t, VerifySignature(body, sig, "secret"))
}

func TestVerifySignatureModifiedBody(t *testing.T) {
	body := []byte(`{"id":123}`)
	sig := webhookSign(body, "secret")

	assert.False(t, VerifySignature([]byte(`{"id":124}`), sig, "secret"))
}

func TestVerifySignatureTruncated(t *testing.T) {
	body := []byte(`{"id":123}`)
	sig := webhookSign(body, "secret")

	assert.False(t, VerifySignature(body, sig[:len(sig)-2], "secret"))
}

func TestVerifySignatureMissingHeader(t *testing.T) {
	assert.False(t, VerifySignature([]byte(`{}`), "", "secret"))
}

func TestVerifySignatureMissingSecret(t *testing.T) {
	body := []byte(`{}`)
	assert.False(t, VerifySignature(body, webhookSign(body, ""), ""))
}
