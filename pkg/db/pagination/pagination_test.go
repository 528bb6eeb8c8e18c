package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"zero limit gets default", 0, 0, DefaultLimit, 0},
		{"negative limit gets default", -5, 0, DefaultLimit, 0},
		{"over max gets default", MaxLimit + 1, 0, DefaultLimit, 0},
		{"max limit kept", MaxLimit, 0, MaxLimit, 0},
		{"in range kept", 25, 100, 25, 100},
		{"negative offset zeroed", 25, -1, 25, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limit, offset := Clamp(tc.limit, tc.offset)
			assert.Equal(t, tc.wantLimit, limit)
			assert.Equal(t, tc.wantOffset, offset)
		})
	}
}
