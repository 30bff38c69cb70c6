package auth

import (
	"regexp"
	"strings"
)

var shopDomainRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// NormalizeShopDomain canonicalizes merchant input into a bare myshopify
// domain: lower-cased, scheme and trailing slash stripped, suffix appended
// when missing. "HTTPS://Foo.MyShopify.Com/" and "foo" both become
// "foo.myshopify.com".
func NormalizeShopDomain(shop, suffix string) string {
	if suffix == "" {
		suffix = "myshopify.com"
	}
	s := strings.ToLower(strings.TrimSpace(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimRight(s, "/")
	if s != "" && !strings.HasSuffix(s, "."+suffix) {
		s = s + "." + suffix
	}
	return s
}

// ValidShopDomain reports whether a normalized domain looks like a real
// myshopify domain. Input must already be normalized.
func ValidShopDomain(shop string) bool {
	return shopDomainRe.MatchString(shop)
}
