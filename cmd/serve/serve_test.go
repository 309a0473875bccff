package serve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audiophile/internal/conf"
)

func TestParseInterval(t *testing.T) {
	t.Parallel()

	d, err := parseInterval("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	for _, bad := range []string{"", "soon", "0s", "-1s"} {
		_, err := parseInterval(bad)
		assert.Error(t, err, bad)
	}
}

func TestCommandFlags(t *testing.T) {
	t.Parallel()

	cmd := Command(&conf.Settings{})
	for _, name := range []string{"interval", "port", "no-api"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
