// Package screen mirrors the LED dial on the 128x128 status display.
package screen

import (
	"context"
	"image"
	"math"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/glog"

	"github.com/tigerbot-team/bumperbot/pkg/dial"
)

const (
	S          = 128
	BufferSize = S * S * 2

	dialRadius = 44
	ledRadius  = 9
)

// Screen is an indicator; updates are drawn by Loop.
type Screen struct {
	dial.State

	device string

	lock   sync.Mutex
	status string
}

var _ dial.Interface = (*Screen)(nil)

func New(device string) *Screen {
	return &Screen{device: device}
}

// SetStatus sets the line of text shown under the dial.
func (s *Screen) SetStatus(status string) {
	s.lock.Lock()
	s.status = status
	s.lock.Unlock()
}

func ledCentre(i int) (float64, float64) {
	theta := gg.Radians(float64(i) * 360 / dial.NumLEDs)
	return S/2 + dialRadius*math.Sin(theta), S/2 - dialRadius*math.Cos(theta)
}

// Render draws the current state.
func (s *Screen) Render() image.Image {
	dc := gg.NewContext(S, S)
	lit := s.Lit()
	for i := 0; i < dial.NumLEDs; i++ {
		x, y := ledCentre(i)
		if lit&(1<<uint(i)) != 0 {
			dc.SetRGBA(1, 0.9, 0, 1)
		} else {
			dc.SetRGBA(0.2, 0.2, 0.2, 1)
		}
		dc.DrawCircle(x, y, ledRadius)
		dc.Fill()
	}

	s.lock.Lock()
	status := s.status
	s.lock.Unlock()
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawStringAnchored(status, S/2, S/2, 0.5, 0.5)
	return dc.Image()
}

// Encode converts img to the display's RGB565 format.  The panel is mounted
// rotated so columns go out first.
func Encode(img image.Image, buf []byte) {
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
}

// Loop redraws the display every interval until ctx is done, then blanks it.
// A missing display is not an error.
func (s *Screen) Loop(ctx context.Context, interval time.Duration) {
	f, err := os.OpenFile(s.device, os.O_RDWR, 0666)
	if err != nil {
		glog.Warningf("Failed to open screen, ignoring: %v", err)
		return
	}
	defer f.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var buf [BufferSize]byte
	for {
		select {
		case <-ctx.Done():
			var blank [BufferSize]byte
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(blank[:])
			return
		case <-ticker.C:
		}
		Encode(s.Render(), buf[:])
		if _, err := f.Seek(0, 0); err != nil {
			glog.Warningf("Screen failure: %v", err)
			return
		}
		for i := 0; i < S; i++ {
			if _, err := f.Write(buf[i*S*2 : (i+1)*S*2]); err != nil {
				glog.Warningf("Screen failure: %v", err)
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}
