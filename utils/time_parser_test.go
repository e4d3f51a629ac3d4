package utils_test

import (
	"testing"
	"time"
	"warden/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"2h", 2 * time.Hour},
		{"3d", 3 * 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := utils.ParseDuration(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
	}

	for _, bad := range []string{"", "abc", "xd", "1.5w"} {
		_, err := utils.ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "permanent", utils.FormatDuration(0))
	assert.Equal(t, "3d", utils.FormatDuration(3*24*time.Hour))
	assert.Equal(t, "5h", utils.FormatDuration(5*time.Hour))
	assert.Equal(t, "1h30m0s", utils.FormatDuration(90*time.Minute))
}
