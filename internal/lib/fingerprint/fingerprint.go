// Package fingerprint derives the short display identifier attached to each product.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
)

// Length of the fingerprint in hex characters.
const Length = 6

// Of returns the first Length hex characters of the MD5 digest of url.
// Not a uniqueness guarantee: products are deduplicated by the full URL.
func Of(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:Length]
}
