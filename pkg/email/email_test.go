package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasDomainSuffix(t *testing.T) {
	tests := []struct {
		address string
		suffix  string
		want    bool
	}{
		{"jane.doe@nhs.net", "nhs.net", true},
		{"jane.doe@NHS.NET", "nhs.net", true},
		{"jane.doe@trust.nhs.net", "nhs.net", true},
		{"jane.doe@nhs.net", "@nhs.net", true},
		{"jane.doe@gmail.com", "nhs.net", false},
		{"jane.doe@notnhs.net", "nhs.net", false},
		{"no-at-sign", "nhs.net", false},
		{"anyone@example.org", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.address+"/"+tt.suffix, func(t *testing.T) {
			assert.Equal(t, tt.want, HasDomainSuffix(tt.address, tt.suffix))
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("clinician@example.ps"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("Jane <jane@example.org>"))
	assert.False(t, IsValid("not-an-email"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jane.doe@nhs.net", Normalize("  Jane.Doe@NHS.net "))
}

func TestDeriveNameFromEmail(t *testing.T) {
	first, last := DeriveNameFromEmail("omar.haddad@example.ps")
	assert.Equal(t, "Omar", first)
	assert.Equal(t, "Haddad", last)

	first, last = DeriveNameFromEmail("@example.ps")
	assert.Equal(t, "User", first)
	assert.Equal(t, "User", last)

	first, last = DeriveNameFromEmail("@gmail.com")
	assert.Equal(t, "User", first)
	assert.Equal(t, "User", last)

	first, last = DeriveNameFromEmail("amal")
	assert.Equal(t, "Amal", first)
	assert.Equal(t, "User", last)
}
