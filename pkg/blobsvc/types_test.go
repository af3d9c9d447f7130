package blobsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenFlagsTransportBit(t *testing.T) {
	assert.Equal(t, OpenFlags(0), (FlagRead).TransportBit())
	assert.Equal(t, FlagBT, (FlagRead | FlagBT).TransportBit())
	assert.Equal(t, OpenFlags(0), (FlagBT | FlagP2A).TransportBit())
}

func TestOpenFlagsHasOnlyKnownBits(t *testing.T) {
	assert.True(t, (FlagRead | FlagWrite | FlagBT).hasOnlyKnownBits())
	assert.False(t, (FlagRead | OpenFlags(1<<4)).hasOnlyKnownBits())
}

func TestOpenFlagsString(t *testing.T) {
	assert.Equal(t, "none", OpenFlags(0).String())
	assert.Equal(t, "read|bt", (FlagRead | FlagBT).String())
}
