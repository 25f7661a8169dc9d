package sound

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/stretchr/testify/require"
)

func TestPlayNeverBlocks(t *testing.T) {
	p := newPlayer(nil)
	require.True(t, p.Play("/sounds/bump.wav"))
	require.False(t, p.Play("/sounds/bump.wav"), "second request dropped while busy")
	require.Equal(t, "/sounds/bump.wav", <-p.soundsToPlay)
	require.True(t, p.Play("/sounds/other.wav"))
}

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "sound")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func writeWav(t *testing.T, dir, name string) string {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(441), format))
	return path
}

type recordingOutput struct {
	played []beep.Streamer
}

func (o *recordingOutput) play(s beep.Streamer) {
	o.played = append(o.played, s)
}

func TestPlayFileCutsOffPrevious(t *testing.T) {
	dir := tempDir(t)
	bump := writeWav(t, dir, "bump.wav")
	out := &recordingOutput{}
	p := newPlayer(out.play)

	require.NoError(t, p.playFile(bump))
	require.Len(t, out.played, 1)
	first := p.ctrl
	firstStream := p.stream

	require.NoError(t, p.playFile(bump))
	require.Len(t, out.played, 2)
	require.True(t, first.Paused)
	require.Nil(t, first.Streamer)
	require.Error(t, firstStream.Seek(0), "previous file was closed")
	require.NoError(t, p.stream.Seek(0))

	p.stop()
	require.Nil(t, p.ctrl)
	require.Nil(t, p.stream)
}

func TestPlayFileBadWav(t *testing.T) {
	dir := tempDir(t)
	good := writeWav(t, dir, "bump.wav")
	bad := filepath.Join(dir, "bad.wav")
	require.NoError(t, ioutil.WriteFile(bad, []byte("not a wav file at all, just some text padding it out to a header"), 0644))
	out := &recordingOutput{}
	p := newPlayer(out.play)

	require.NoError(t, p.playFile(good))
	playing := p.ctrl

	err := p.playFile(bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad.wav")
	require.Len(t, out.played, 1)
	require.True(t, playing.Paused, "a failed request still stops the previous sound")
	require.Nil(t, p.ctrl)
	require.Nil(t, p.stream)
}

func TestPlayFileMissing(t *testing.T) {
	p := newPlayer((&recordingOutput{}).play)
	require.Error(t, p.playFile("/sounds/does-not-exist.wav"))
	require.Nil(t, p.ctrl)
}
