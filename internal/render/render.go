// Package render draws decoded frames onto a target canvas, fitting
// the source aspect ratio and applying the enhancement adjustments.
package render

import (
	"image"
	imagedraw "image/draw"
	"math"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"github.com/keagan/reelpolish/internal/enhance"
)

// aspectTolerance is how close source and target ratios must be
// before the fit is treated as full-bleed.
const aspectTolerance = 0.001

// Renderer letterboxes frames onto a target canvas and applies the
// compound adjustment for the active settings. One renderer serves one
// pipeline; the compiled adjustment is cached until settings change.
type Renderer struct {
	logger zerolog.Logger

	cachedSettings enhance.Settings
	cachedAdjuster *adjuster
	cacheValid     bool
}

// New creates a renderer.
func New(logger zerolog.Logger) *Renderer {
	return &Renderer{
		logger: logger.With().Str("component", "render").Logger(),
	}
}

// RenderFrame draws src onto dst, preserving aspect ratio with black
// bars, then applies the adjustment compound once over the drawn
// region. A nil or empty source is a logged no-op; callers treat it
// as "retry next tick", never as corruption.
func (r *Renderer) RenderFrame(src image.Image, dst *image.RGBA, s enhance.Settings) {
	if dst == nil || dst.Bounds().Empty() {
		r.logger.Warn().Msg("render target missing, skipping frame")
		return
	}
	if src == nil || src.Bounds().Empty() {
		r.logger.Warn().Msg("source frame not decodable yet, skipping render")
		return
	}

	// Bars must be deterministic, so the whole canvas goes black first
	imagedraw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, imagedraw.Src)

	target := FitRect(src.Bounds().Dx(), src.Bounds().Dy(), dst.Bounds().Dx(), dst.Bounds().Dy())
	if target.Dx() == src.Bounds().Dx() && target.Dy() == src.Bounds().Dy() {
		imagedraw.Draw(dst, target, src, src.Bounds().Min, imagedraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, target, src, src.Bounds(), xdraw.Src, nil)
	}

	// Retouch runs before color grading so the grade lands on the
	// smoothed skin, not the other way around.
	if s.SkinSmooth > 0 {
		smoothSkin(dst, target, s.SkinSmooth, s.SkinTexture)
	}

	if adj := r.adjusterFor(s); adj != nil {
		adj.apply(dst, target)
	}
}

// FitRect computes the centered draw rectangle for a source of
// srcW×srcH on a canvas of dstW×dstH. Wider sources letterbox
// (bars top/bottom), taller sources pillarbox (bars left/right).
func FitRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(dstW) / float64(dstH)

	if math.Abs(srcAspect-dstAspect) < aspectTolerance {
		return image.Rect(0, 0, dstW, dstH)
	}

	var drawW, drawH int
	if srcAspect > dstAspect {
		// Source relatively wider: fit width, bars top and bottom
		drawW = dstW
		drawH = int(math.Round(float64(dstW) / srcAspect))
	} else {
		// Source relatively taller: fit height, bars left and right
		drawH = dstH
		drawW = int(math.Round(float64(dstH) * srcAspect))
	}

	x := (dstW - drawW) / 2
	y := (dstH - drawH) / 2
	return image.Rect(x, y, x+drawW, y+drawH)
}

// adjusterFor returns the compiled adjustment for s, rebuilding only
// when the settings value changes.
func (r *Renderer) adjusterFor(s enhance.Settings) *adjuster {
	if r.cacheValid && s == r.cachedSettings {
		return r.cachedAdjuster
	}

	r.cachedSettings = s
	r.cachedAdjuster = buildAdjuster(s)
	r.cacheValid = true

	if r.cachedAdjuster == nil {
		r.logger.Debug().Msg("settings neutral, adjustment pass disabled")
	}
	return r.cachedAdjuster
}
