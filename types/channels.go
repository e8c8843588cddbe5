package types

// RenderChannel identifies one named renderer output buffer. ChannelNone is
// the main color image; the rest are auxiliary VFB channels the renderer can
// stream separately.
type RenderChannel int32

// Render channel identifiers.
const (
	ChannelNone RenderChannel = iota
	ChannelColor
	ChannelRealcolor
	ChannelZDepth
	ChannelNormal
	ChannelBumpNormal
	ChannelNodeID
	ChannelRenderID
	ChannelVelocity
	ChannelDenoised
	ChannelDRBucket
)

// String returns the channel name for logging.
func (c RenderChannel) String() string {
	switch c {
	case ChannelNone:
		return "main"
	case ChannelColor:
		return "color"
	case ChannelRealcolor:
		return "realcolor"
	case ChannelZDepth:
		return "zdepth"
	case ChannelNormal:
		return "normal"
	case ChannelBumpNormal:
		return "bumpnormal"
	case ChannelNodeID:
		return "nodeid"
	case ChannelRenderID:
		return "renderid"
	case ChannelVelocity:
		return "velocity"
	case ChannelDenoised:
		return "denoised"
	case ChannelDRBucket:
		return "drbucket"
	default:
		return "unknown"
	}
}

// ImageFormat enumerates the pixel formats an image payload may carry.
type ImageFormat int32

// Image payload formats. Float formats carry raw little-endian float32
// samples; FormatJPEG carries an encoded raster.
const (
	FormatRGBAFloat ImageFormat = iota
	FormatRGBFloat
	FormatBWFloat
	FormatJPEG
)

// String returns the format name for logging.
func (f ImageFormat) String() string {
	switch f {
	case FormatRGBAFloat:
		return "rgba_float"
	case FormatRGBFloat:
		return "rgb_float"
	case FormatBWFloat:
		return "bw_float"
	case FormatJPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// ImageSource tags an image-set delivery: a realtime preview update or the
// final ready image.
type ImageSource int32

// Image set source tags.
const (
	SourceRTUpdate ImageSource = iota
	SourceReady
)
