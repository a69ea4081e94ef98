// Package privacy reduces identifying values to forms that are safe to log
// or export in traces.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
)

// AnonymizeIP masks an address to its network: /24 for IPv4 and /48 for
// IPv6. Empty input yields "unknown" and unparseable input yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// HashAccount returns a short SHA-256 digest of a wallet account so spans can
// be correlated without exporting the address itself.
func HashAccount(account string) string {
	if account == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(account))
	return hex.EncodeToString(sum[:8])
}
