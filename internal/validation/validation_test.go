package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	require.NoError(t, Name("Johnathan Maxwell Doe"))
	require.NoError(t, Name(strings.Repeat("a", 60)))
	require.Error(t, Name("Short Name"))
	require.Error(t, Name(strings.Repeat("a", 61)))
	// surrounding whitespace does not count toward the length
	require.Error(t, Name("  Short Name  "+strings.Repeat(" ", 20)))
}

func TestEmail(t *testing.T) {
	require.NoError(t, Email("user@example.com"))
	require.NoError(t, Email("first.last@sub.example.org"))
	require.Error(t, Email("plainstring"))
	require.Error(t, Email("user@nodot"))
	require.Error(t, Email("spaced user@example.com"))
	require.Error(t, Email(""))
}

func TestPassword(t *testing.T) {
	require.NoError(t, Password("Password1!"))
	require.NoError(t, Password("A!bcdefg"))
	require.Error(t, Password("Ab1!"))                  // too short
	require.Error(t, Password("Abcdefgh!Abcdefgh"))     // too long
	require.Error(t, Password("alllowercase!"))         // no uppercase
	require.Error(t, Password("NoSpecialChar1"))        // no special
}

func TestAddress(t *testing.T) {
	require.NoError(t, Address(""))
	require.NoError(t, Address(strings.Repeat("a", 400)))
	require.Error(t, Address(strings.Repeat("a", 401)))
}

func TestRole(t *testing.T) {
	require.NoError(t, Role("user"))
	require.NoError(t, Role("store_owner"))
	require.NoError(t, Role("admin"))
	require.Error(t, Role("superadmin"))
	require.Error(t, Role(""))
}

func TestRatingValue(t *testing.T) {
	for v := 1; v <= 5; v++ {
		require.NoError(t, RatingValue(v))
	}
	require.Error(t, RatingValue(0))
	require.Error(t, RatingValue(6))
	require.Error(t, RatingValue(-1))
}
