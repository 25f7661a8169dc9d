package sound

import (
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Player plays wav files on a background goroutine.  A new sound cuts off the
// one that is playing.
type Player struct {
	soundsToPlay chan string

	// output starts a stream; speaker.Play outside tests.
	output func(beep.Streamer)
	ctrl   *beep.Ctrl
	stream beep.StreamSeekCloser
}

func newPlayer(output func(beep.Streamer)) *Player {
	return &Player{
		soundsToPlay: make(chan string, 1),
		output:       output,
	}
}

func Init() *Player {
	p := newPlayer(func(s beep.Streamer) { speaker.Play(s) })
	go p.loop()
	return p
}

// Play queues a sound without blocking.  It reports false if the player is
// still busy with the previous request.
func (p *Player) Play(path string) bool {
	select {
	case p.soundsToPlay <- path:
		return true
	default:
		glog.V(1).Infof("Sound player busy, dropping %s", path)
		return false
	}
}

func (p *Player) Close() {
	close(p.soundsToPlay)
}

func (p *Player) drain() {
	for s := range p.soundsToPlay {
		glog.Warningf("Unable to play %s", s)
	}
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("Sound player panicked: %v", r)
		}
		p.drain()
	}()
	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		glog.Warningf("Failed to open speaker: %v", err)
		return
	}
	for soundToPlay := range p.soundsToPlay {
		if err := p.playFile(soundToPlay); err != nil {
			glog.Warningf("Failed to play sound: %v", err)
		}
	}
	p.stop()
}

// stop silences the current sound and closes its file.
func (p *Player) stop() {
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		p.ctrl.Streamer = nil
		speaker.Unlock()
		p.ctrl = nil
	}
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			glog.Warningf("Failed to close sound: %v", err)
		}
		p.stream = nil
	}
}

func (p *Player) playFile(path string) error {
	p.stop()

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening sound")
	}
	// Decode closes f if it fails.
	s, _, err := wav.Decode(f)
	if err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	p.stream = s
	p.ctrl = &beep.Ctrl{Streamer: s}
	p.output(p.ctrl)
	return nil
}
