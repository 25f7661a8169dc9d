package telemetry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/bumperbot/pkg/collision"
	"github.com/tigerbot-team/bumperbot/pkg/sample"
)

func TestCollisionLine(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	require.NoError(t, w.Collision(collision.Event{
		Count:     2,
		State:     collision.Forward,
		Deviation: sample.Delta{X: -3, Y: 10001, Z: 7},
	}))
	require.Equal(t, "collision n=2 dir=forward dx=-3 dy=10001 dz=7\r\n", buf.String())
	require.NoError(t, w.Close())
}

func TestPrintf(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	require.NoError(t, w.Printf("start speed=0x%03x", 0xe00))
	require.NoError(t, w.Printf("stop"))
	require.Equal(t, "start speed=0xe00\r\nstop\r\n", buf.String())
}

func TestOpenMissingPort(t *testing.T) {
	_, err := OpenSerial("/dev/does-not-exist", 0)
	require.Error(t, err)
}
