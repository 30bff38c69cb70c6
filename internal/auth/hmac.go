package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// VerifyRequestHMAC verifies Shopify's OAuth-callback / admin request HMAC.
// Shopify signs the querystring (excluding hmac and signature) sorted
// lexicographically and joined with "&".
func VerifyRequestHMAC(values url.Values, apiSecret string) bool {
	given := values.Get("hmac")
	if given == "" || apiSecret == "" {
		return false
	}

	var keys []string
	for k := range values {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range values[k] {
			parts = append(parts, k+"="+strings.ReplaceAll(v, "&", "%26"))
		}
	}
	msg := strings.Join(parts, "&")

	return hmac.Equal([]byte(hexDigest(msg, apiSecret)), []byte(given))
}

// VerifyProxySignature verifies an app-proxy request signature. The proxy
// canonicalization differs from VerifyRequestHMAC: pairs are concatenated
// with NO separator, and multi-valued params are joined with ",". The two
// rules share a secret but must stay separate code paths.
func VerifyProxySignature(values url.Values, apiSecret string) bool {
	given := values.Get("signature")
	if given == "" || apiSecret == "" {
		return false
	}

	var keys []string
	for k := range values {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strings.Join(values[k], ","))
	}

	return hmac.Equal([]byte(hexDigest(b.String(), apiSecret)), []byte(given))
}

func hexDigest(msg, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
