package app

import (
	"fmt"
	"image"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/sat_clock/internal/env"
	"github.com/relabs-tech/sat_clock/internal/gps"
	"github.com/relabs-tech/sat_clock/internal/timebase"
)

const (
	screenW = 128
	screenH = 64
)

// Screen owns the SSD1306 panel and paints whole frames: clock, waiting,
// menu, QR and error screens. All painting happens in the primary context;
// Blank/Unblank are the power supervisor's view of the same panel.
type Screen struct {
	dev     *ssd1306.Dev
	blanked bool
}

func NewScreen(bus i2c.Bus) (*Screen, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("display init: %w", err)
	}
	return &Screen{dev: dev}, nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, screenW, screenH))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func (s *Screen) draw(img *image1bit.VerticalLSB) error {
	if s.blanked {
		return nil
	}
	return s.dev.Draw(s.dev.Bounds(), img, image.Point{})
}

// Blank pushes a black frame and suppresses all painting until Unblank.
func (s *Screen) Blank() error {
	img, _ := newFrame()
	err := s.dev.Draw(s.dev.Bounds(), img, image.Point{})
	s.blanked = true
	return err
}

// Unblank re-enables painting; the next repaint restores content.
func (s *Screen) Unblank() error {
	s.blanked = false
	return nil
}

// ShowSplash paints the boot screen.
func (s *Screen) ShowSplash() error {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(25, 26)
	drawer.DrawBytes([]byte("sat_clock"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Looking for sats"))

	return s.draw(img)
}

// ShowClock paints the main clock face: time, date with weekday, and the
// latest climate readings.
func (s *Screen) ShowClock(lt timebase.LocalTime, climate env.Sample, mode12 bool) error {
	img, drawer := newFrame()

	var clock string
	if mode12 {
		half := "AM"
		if lt.Afternoon {
			half = "PM"
		}
		clock = fmt.Sprintf("%2d:%02d:%02d %s", lt.Hour12, lt.Minute, lt.Second, half)
	} else {
		clock = fmt.Sprintf("%02d:%02d:%02d", lt.Hour24, lt.Minute, lt.Second)
	}

	drawer.Dot = fixed.P(15, 18)
	drawer.DrawBytes([]byte(clock))

	drawer.Dot = fixed.P(0, 38)
	drawer.DrawBytes([]byte(fmt.Sprintf("%s %04d-%02d-%02d",
		lt.Weekday.String()[:3], lt.Year, int(lt.Month), lt.Day)))

	drawer.Dot = fixed.P(0, 56)
	drawer.DrawBytes([]byte(fmt.Sprintf("%4.1fC %3.0f%% %4.0fhPa",
		climate.Temperature, climate.Humidity, climate.Pressure/100.0)))

	return s.draw(img)
}

// ShowWaiting paints the fix-acquisition screen with the current quality.
func (s *Screen) ShowWaiting(fix gps.Fix) error {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(5, 26)
	drawer.DrawBytes([]byte("Waiting for fix"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte(fmt.Sprintf("sats:%2d hdop:%.1f", fix.Satellites, fix.HDOP)))

	return s.draw(img)
}

// ShowLines paints up to four rows of text; used for menu screens.
func (s *Screen) ShowLines(lines []string) error {
	img, drawer := newFrame()

	y := 13
	for _, line := range lines {
		if y > screenH {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawBytes([]byte(line))
		y += 15
	}

	return s.draw(img)
}

// ShowQR paints a QR code of url on the right half with a label on the
// left, for the Wi-Fi provisioning screen.
func (s *Screen) ShowQR(label, url string) error {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr encode: %w", err)
	}
	modules := qr.Bitmap()
	size := len(modules)

	img, drawer := newFrame()

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawBytes([]byte(label))

	scale := screenH / size
	if scale < 1 {
		scale = 1
	}
	side := size * scale
	offX := screenW - side - (screenH-side)/2
	offY := (screenH - side) / 2

	for my := 0; my < size; my++ {
		for mx := 0; mx < size; mx++ {
			if !modules[my][mx] {
				continue
			}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.Set(offX+mx*scale+dx, offY+my*scale+dy, image1bit.On)
				}
			}
		}
	}

	return s.draw(img)
}

// ShowError paints one frame of the blocking error screen with the
// remaining countdown seconds.
func (s *Screen) ShowError(msg string, secondsLeft int) error {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte("ERROR"))

	drawer.Dot = fixed.P(0, 32)
	drawer.DrawBytes([]byte(msg))

	drawer.Dot = fixed.P(0, 56)
	drawer.DrawBytes([]byte(fmt.Sprintf("continuing in %ds", secondsLeft)))

	return s.draw(img)
}

// ShowCountdown paints one frame of a restart countdown.
func (s *Screen) ShowCountdown(title string, secondsLeft int) error {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawBytes([]byte(title))

	drawer.Dot = fixed.P(0, 43)
	drawer.DrawBytes([]byte(fmt.Sprintf("restart in %ds", secondsLeft)))

	return s.draw(img)
}
