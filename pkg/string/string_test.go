package string

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"FullName":    "full_name",
		"NationalID":  "national_id",
		"DateOfBirth": "date_of_birth",
		"VCID":        "vcid",
		"address":     "address",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}

func TestTrimStrings(t *testing.T) {
	a, b := "  Jane Doe ", "\t0xA1\n"
	TrimStrings(&a, &b)

	assert.Equal(t, "Jane Doe", a)
	assert.Equal(t, "0xA1", b)
}
