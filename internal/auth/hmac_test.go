package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "shpss_test_secret"

func sign(msg string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyRequestHMAC(t *testing.T) {
	values := url.Values{}
	values.Set("shop", "demo.myshopify.com")
	values.Set("timestamp", "1700000000")
	values.Set("code", "abc123")

	// Sorted keys, &-joined.
	values.Set("hmac", sign("code=abc123&shop=demo.myshopify.com&timestamp=1700000000"))

	assert.True(t, VerifyRequestHMAC(values, testSecret))
}

func TestVerifyRequestHMACTampered(t *testing.T) {
	values := url.Values{}
	values.Set("shop", "demo.myshopify.com")
	values.Set("code", "abc123")
	values.Set("hmac", sign("code=abc123&shop=demo.myshopify.com"))

	values.Set("shop", "evil.myshopify.com")
	assert.False(t, VerifyRequestHMAC(values, testSecret))
}

func TestVerifyRequestHMACMissing(t *testing.T) {
	values := url.Values{}
	values.Set("shop", "demo.myshopify.com")
	assert.False(t, VerifyRequestHMAC(values, testSecret))
}

func TestVerifyRequestHMACEscapesAmpersands(t *testing.T) {
	values := url.Values{}
	values.Set("shop", "demo.myshopify.com")
	values.Set("note", "a&b")
	values.Set("hmac", sign("note=a%26b&shop=demo.myshopify.com"))

	assert.True(t, VerifyRequestHMAC(values, testSecret))
}

func TestVerifyProxySignature(t *testing.T) {
	values := url.Values{}
	values.Set("shop", "demo.myshopify.com")
	values.Set("path_prefix", "/apps/popclips")
	values.Set("timestamp", "1700000000")

	// Sorted keys, concatenated with no separator.
	values.Set("signature", sign("path_prefix=/apps/popclipsshop=demo.myshopify.comtimestamp=1700000000"))

	assert.True(t, VerifyProxySignature(values, testSecret))
}

func TestVerifyProxySignatureMultiValue(t *testing.T) {
	values := url.Values{}
	values.Set("shop", "demo.myshopify.com")
	values["ids"] = []string{"1", "2", "3"}
	values.Set("signature", sign("ids=1,2,3shop=demo.myshopify.com"))

	assert.True(t, VerifyProxySignature(values, testSecret))
}

func TestVerifyProxySignatureTampered(t *testing.T) {
	values := url.Values{}
	values.Set("shop", "demo.myshopify.com")
	values.Set("signature", sign("shop=demo.myshopify.com"))

	values.Set("shop", "evil.myshopify.com")
	assert.False(t, VerifyProxySignature(values, testSecret))
}

// The two canonicalizations must never be interchangeable: a signature
// computed under one rule fails verification under the other.
func TestCanonicalizationsDiffer(t *testing.T) {
	values := url.Values{}
	values.Set("a", "1")
	values.Set("b", "2")

	requestStyle := sign("a=1&b=2")
	proxyStyle := sign("a=1b=2")
	assert.NotEqual(t, requestStyle, proxyStyle)

	values.Set("signature", requestStyle)
	assert.False(t, VerifyProxySignature(values, testSecret))

	values.Del("signature")
	values.Set("hmac", proxyStyle)
	assert.False(t, VerifyRequestHMAC(values, testSecret))
}
