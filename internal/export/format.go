package export

import (
	"github.com/rs/zerolog"
)

// Format is the negotiated container/codec pair an export will use.
type Format struct {
	Container    string // ffmpeg muxer name
	Codec        string // wire codec tag (h264, vp9, ...)
	VideoEncoder string // ffmpeg encoder name
	AudioEncoder string
	MimeType     string
	Extension    string
}

// encoderFor maps wire codec tags to ffmpeg encoder names.
var encoderFor = map[string]string{
	"h264": "libx264",
	"vp9":  "libvpx-vp9",
	"vp8":  "libvpx",
	"aac":  "aac",
	"opus": "libopus",
}

// defaultCodecFor picks the container's conventional codec when the
// ladder entry names only a container.
var defaultCodecFor = map[string]string{
	"mp4":  "h264",
	"mov":  "h264",
	"webm": "vp9",
}

var extensionFor = map[string]string{
	"mp4":  ".mp4",
	"mov":  ".mov",
	"webm": ".webm",
}

// negotiateFormat walks the preference ladder — exact request,
// requested container alone, then the fixed fallback ladder — and
// returns the first pair the supported encoder set can serve. When the
// whole ladder is unsupported it recovers with a generic webm
// container (never fatal, per the error policy).
func negotiateFormat(supported map[string]bool, logger zerolog.Logger, s Settings) Format {
	type candidate struct {
		container string
		codec     string
	}

	ladder := []candidate{
		{s.Format, s.VideoCodec},
		{s.Format, ""},
		{"webm", "vp9"},
		{"webm", "vp8"},
		{"webm", ""},
		{"mp4", ""},
	}

	for _, c := range ladder {
		if c.container == "" {
			continue
		}
		codec := c.codec
		if codec == "" {
			codec = defaultCodecFor[c.container]
		}
		encoder, known := encoderFor[codec]
		if !known {
			continue
		}
		if !supported[encoder] {
			continue
		}

		audioEncoder := encoderFor[s.AudioCodec]
		if audioEncoder == "" || !supported[audioEncoder] {
			// webm cannot carry aac; fall back per container
			if c.container == "webm" {
				audioEncoder = "libopus"
			} else {
				audioEncoder = "aac"
			}
		}

		f := Format{
			Container:    c.container,
			Codec:        codec,
			VideoEncoder: encoder,
			AudioEncoder: audioEncoder,
			MimeType:     "video/" + c.container + ";codecs=" + codec,
			Extension:    extensionFor[c.container],
		}

		if c.container != s.Format || codec != s.VideoCodec {
			logger.Warn().
				Str("requested", s.Format+"/"+s.VideoCodec).
				Str("negotiated", f.Container+"/"+f.Codec).
				Msg("requested format unsupported, falling back")
		}
		return f
	}

	// Ladder exhausted: generic webm default
	logger.Warn().
		Str("requested", s.Format+"/"+s.VideoCodec).
		Msg("no supported encoder found on ladder, defaulting to generic webm")

	return Format{
		Container:    "webm",
		Codec:        "vp8",
		VideoEncoder: "libvpx",
		AudioEncoder: "libopus",
		MimeType:     "video/webm",
		Extension:    ".webm",
	}
}
