package exporter

import (
	"math"
	"strings"

	"github.com/pithecene-io/renderlink/framebuf"
	"github.com/pithecene-io/renderlink/types"
	"github.com/pithecene-io/renderlink/wire"
)

// dispatch routes every decoded inbound message. Runs on the transport's
// receive goroutine, never on the caller's thread; invocations are
// serialized by the transport.
func (e *Exporter) dispatch(msg any) {
	switch m := msg.(type) {
	case *wire.LogMessage:
		e.handleLog(m)
	case *wire.ImageSetMessage:
		e.handleImageSet(m)
	case *wire.StateMessage:
		e.handleState(m)
	}
}

func (e *Exporter) handleLog(m *wire.LogMessage) {
	text := m.Message
	if idx := strings.IndexAny(text, "\n\r"); idx >= 0 {
		text = text[:idx]
	}

	e.logger.LogAt(wire.LevelFromSeverity(m.Severity), text)

	if e.OnMessage != nil {
		e.OnMessage("Renderer: " + text)
	}
}

func (e *Exporter) handleImageSet(m *wire.ImageSetMessage) {
	ready := m.Source == types.SourceReady
	rtUpdate := false

	for i := range m.Images {
		p := &m.Images[i]
		e.updateChannel(p)

		// Main-channel buckets feed the bucket hook; everything else is a
		// realtime image refresh.
		if p.Channel == types.ChannelNone && p.Bucket && e.OnBucketReady != nil {
			e.OnBucketReady(*p)
		} else {
			rtUpdate = true
		}
	}

	if rtUpdate && e.OnRTImageUpdated != nil {
		e.OnRTImageUpdated()
	}
	if ready {
		e.collector.IncImagesCompleted()
		if e.OnImageReady != nil {
			e.OnImageReady()
		}
	}
}

// updateChannel applies one image payload to its channel buffer. Buckets
// merge into a lazily allocated full-frame buffer sized to the last known
// render resolution; full-frame and encoded payloads replace the buffer
// wholesale. Post-processing (flip, alpha reset, clamp) runs only for
// final, non-viewport full-frame updates.
func (e *Exporter) updateChannel(p *wire.ImagePayload) {
	if p.Format == types.FormatRGBAFloat && p.Bucket {
		e.imgMu.Lock()
		img := e.images[p.Channel]
		if img == nil {
			img = framebuf.NewImage(e.cached.renderWidth, e.cached.renderHeight, 4)
			e.images[p.Channel] = img
		}
		err := img.MergeRegion(p.Data, p.X, p.Y, p.Width, p.Height)
		e.imgMu.Unlock()

		if err != nil {
			e.logger.Warn("dropping image bucket", map[string]any{
				"channel": p.Channel.String(),
				"error":   err.Error(),
			})
			return
		}
		e.collector.IncBucketsMerged()
		return
	}

	img, err := framebuf.Convert(p)
	if err != nil {
		// Unsupported formats produce an empty conversion, not a fault;
		// one bad frame must not end the session.
		e.logger.Warn("missing image format conversion", map[string]any{
			"channel": p.Channel.String(),
			"format":  p.Format.String(),
			"error":   err.Error(),
		})
		return
	}

	if !e.settings.IsViewport {
		img.Flip()
		img.ResetAlpha()
		img.Clamp()
	}

	e.imgMu.Lock()
	e.images[p.Channel] = img
	e.imgMu.Unlock()
}

func (e *Exporter) handleState(m *wire.StateMessage) {
	switch m.State {
	case types.StateAbort:
		e.aborted.Store(true)
	case types.StateProgress:
		e.progressBits.Store(math.Float32bits(float32(m.FloatValue)))
	case types.StateProgressMessage:
		e.progressMu.Lock()
		e.progressMsg = m.StringValue
		e.progressMu.Unlock()
	case types.StateContinue:
		e.lastFrameBits.Store(math.Float32bits(float32(m.FloatValue)))
	default:
		e.logger.Warn("unrecognized renderer state change", map[string]any{
			"state": int32(m.State),
		})
	}
}

// GetRenderChannel returns a deep copy of the accumulated buffer for a
// channel, or an empty image if the channel was never populated. The copy
// stays valid after subsequent updates replace or mutate the source.
func (e *Exporter) GetRenderChannel(channel types.RenderChannel) *framebuf.Image {
	e.imgMu.Lock()
	defer e.imgMu.Unlock()

	img := e.images[channel]
	if !img.Valid() {
		return &framebuf.Image{}
	}
	return img.DeepCopy()
}

// GetImage returns a deep copy of the main color image.
func (e *Exporter) GetImage() *framebuf.Image {
	return e.GetRenderChannel(types.ChannelNone)
}
