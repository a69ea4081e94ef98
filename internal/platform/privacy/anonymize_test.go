package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ipv4", "192.168.1.47", "192.168.1.0"},
		{"ipv4 network address", "10.0.0.0", "10.0.0.0"},
		{"ipv4 localhost", "127.0.0.1", "127.0.0.0"},
		{"ipv4-mapped ipv6", "::ffff:203.0.113.9", "203.0.113.0"},
		{"ipv6", "2001:db8:85a3:0000:0000:8a2e:0370:7334", "2001:db8:85a3::"},
		{"ipv6 loopback", "::1", "::"},
		{"empty", "", "unknown"},
		{"unknown marker", "unknown", "unknown"},
		{"garbage", "not-an-ip", "invalid"},
		{"host and port", "192.168.1.47:8080", "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.input))
		})
	}
}

func TestAnonymizeIPGroupsByNetwork(t *testing.T) {
	assert.Equal(t, AnonymizeIP("198.51.100.1"), AnonymizeIP("198.51.100.254"))
	assert.NotEqual(t, AnonymizeIP("198.51.100.1"), AnonymizeIP("198.51.101.1"))
}

func TestHashAccount(t *testing.T) {
	assert.Empty(t, HashAccount(""))

	h := HashAccount("0xA1")
	assert.Len(t, h, 16)
	assert.Equal(t, h, HashAccount("0xA1"))
	assert.NotEqual(t, h, HashAccount("0xB2"))
	assert.NotContains(t, h, "0xA1")
}
