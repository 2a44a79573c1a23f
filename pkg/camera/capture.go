package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// colorOrder records the channel layout of frames a backend delivers.
// OpenCV backends produce BGR; libcamera pipelines are configured for RGB.
type colorOrder int

const (
	orderBGR colorOrder = iota
	orderRGB
)

// Capture wraps an open video device and exposes the single operation
// the sampling worker needs: read the next frame as a mean luminance.
type Capture struct {
	vc    *gocv.VideoCapture
	src   Source
	order colorOrder
	frame gocv.Mat
}

// Source reports how this capture was opened.
func (c *Capture) Source() Source { return c.src }

// ReadLuminance grabs one frame and returns its mean normalized
// luminance in [0,1]. Returns ErrReadFailed if the backend delivered no
// data.
func (c *Capture) ReadLuminance() (float64, error) {
	if ok := c.vc.Read(&c.frame); !ok || c.frame.Empty() {
		return 0, ErrReadFailed
	}
	return meanLuminance(c.frame, c.order), nil
}

// Close releases the device handle and the frame buffer. Safe to call
// once per capture; the owning worker calls it on every exit path.
func (c *Capture) Close() {
	c.frame.Close()
	c.vc.Close()
}

// meanLuminance converts a frame to grayscale (channel-order aware) and
// returns the clamped mean over [0,1].
func meanLuminance(frame gocv.Mat, order colorOrder) float64 {
	if frame.Channels() == 1 {
		return clamp01(frame.Mean().Val1 / 255.0)
	}

	gray := gocv.NewMat()
	defer gray.Close()

	var code gocv.ColorConversionCode
	switch {
	case frame.Channels() == 4 && order == orderRGB:
		code = gocv.ColorRGBAToGray
	case frame.Channels() == 4:
		code = gocv.ColorBGRAToGray
	case order == orderRGB:
		code = gocv.ColorRGBToGray
	default:
		code = gocv.ColorBGRToGray
	}
	gocv.CvtColor(frame, &gray, code)
	return clamp01(gray.Mean().Val1 / 255.0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// openCandidate attempts to construct and read-validate one capture.
func openCandidate(cand candidate, cfg Config, pi bool) (*Capture, bool) {
	if cand.preflight {
		node := fmt.Sprintf("/dev/video%d", cand.source.Index)
		if !preflightDevice(node) {
			return nil, false
		}
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	switch cand.source.Kind {
	case SourceIndex:
		vc, err = gocv.OpenVideoCaptureWithAPI(cand.source.Index, cand.api.gocvAPI())
	case SourcePath:
		vc, err = gocv.OpenVideoCapture(cand.source.Path)
	case SourcePipeline:
		vc, err = gocv.OpenVideoCaptureWithAPI(cand.source.Pipeline, gocv.VideoCaptureGstreamer)
	case SourceNative:
		vc, err = gocv.OpenVideoCapture(cand.source.Index)
	}
	if err != nil || vc == nil {
		return nil, false
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, false
	}

	// Resolution hints may be ignored by embedded stacks; only request
	// them where they are known to work.
	if !pi && cand.source.Kind != SourcePipeline {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	order := orderBGR
	if cand.source.Kind == SourcePipeline {
		order = orderRGB
	}
	cap := &Capture{vc: vc, src: cand.source, order: order, frame: gocv.NewMat()}

	// Mandatory read-validation: a handle that opens but yields no
	// frames must never be reported as available.
	if _, err := cap.ReadLuminance(); err != nil {
		cap.Close()
		return nil, false
	}
	return cap, true
}

func (a backendAPI) gocvAPI() gocv.VideoCaptureAPI {
	switch a {
	case apiV4L2:
		return gocv.VideoCaptureV4L2
	case apiGStreamer:
		return gocv.VideoCaptureGstreamer
	default:
		return gocv.VideoCaptureAny
	}
}
