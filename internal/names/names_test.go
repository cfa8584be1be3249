package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFoldsCaseAndSpace(t *testing.T) {
	cases := []struct {
		a, b string
		same bool
	}{
		{"Ahri", "ahri", true},
		{"  Lee Sin ", "LEE SIN", true},
		{"Kai'Sa", "kai'sa", true},
		{"Ahri", "Akali", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.same, Equal(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "Miss Fortune", Clean("  Miss   Fortune "))
}
