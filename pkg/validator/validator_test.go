package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	errs := ValidateRegister("ana@example.com", "ana", "Ana", "Secret123")
	assert.False(t, errs.HasErrors())

	errs = ValidateRegister("not-an-email", "a b", "", "short")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "password")
}

func TestValidatePasswordListsMissingClasses(t *testing.T) {
	errs := ValidateRegister("ana@example.com", "ana", "Ana", "alllowercase")
	assert.Equal(t, "Password must contain at least one uppercase letter, one number", errs["password"])
}

func TestValidateLogin(t *testing.T) {
	assert.False(t, ValidateLogin("ana@example.com", "x").HasErrors())

	errs := ValidateLogin("", "")
	assert.Len(t, errs, 2)
}

func TestValidateProfile(t *testing.T) {
	ptr := func(s string) *string { return &s }

	assert.False(t, ValidateProfile(nil, nil, nil).HasErrors())
	assert.False(t, ValidateProfile(ptr("Ana"), ptr("hi"), ptr("")).HasErrors())
	assert.False(t, ValidateProfile(nil, nil, ptr("https://cdn.example.com/a.png")).HasErrors())

	errs := ValidateProfile(ptr("  "), ptr(strings.Repeat("x", maxBioLen+1)), ptr("javascript:alert(1)"))
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "bio")
	assert.Contains(t, errs, "avatar")
}
