package telemetry

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
)

func TestProfileTypes(t *testing.T) {
	base := profileTypes(false)
	assert.Len(t, base, 6)
	assert.Contains(t, base, pyroscope.ProfileCPU)
	assert.NotContains(t, base, pyroscope.ProfileMutexDuration)

	withContention := profileTypes(true)
	assert.Len(t, withContention, 10)
	assert.Contains(t, withContention, pyroscope.ProfileMutexDuration)
	assert.Contains(t, withContention, pyroscope.ProfileBlockDuration)
}

func TestProfileTags(t *testing.T) {
	t.Setenv("HOSTNAME", "ledger-7f9c")
	t.Setenv("POD_NAME", "")

	tags := profileTags(map[string]string{"env": "production", "region": ""})
	assert.Equal(t, map[string]string{"env": "production", "hostname": "ledger-7f9c"}, tags)
}
