package render

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/keagan/reelpolish/internal/enhance"
)

func testRenderer() *Renderer {
	return New(zerolog.New(os.Stderr))
}

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestFitRectEqualAspect(t *testing.T) {
	rect := FitRect(1920, 1080, 960, 540)
	assert.Equal(t, image.Rect(0, 0, 960, 540), rect, "equal aspect draws full-bleed")
}

func TestFitRectNearEqualAspectTolerance(t *testing.T) {
	// A one-pixel difference lands inside the 0.001 tolerance
	rect := FitRect(1921, 1080, 1920, 1080)
	assert.Equal(t, image.Rect(0, 0, 1920, 1080), rect)
}

func TestFitRectWideSourceLetterboxes(t *testing.T) {
	// 16:9 source onto a 9:16 canvas: fit to width, bars top/bottom
	rect := FitRect(1920, 1080, 1080, 1920)

	assert.Equal(t, 1080, rect.Dx(), "width fills the canvas")
	assert.Less(t, rect.Dy(), 1920, "height leaves bars")
	assert.Equal(t, rect.Min.Y, 1920-rect.Max.Y, "bars are centered")
	assert.Equal(t, 0, rect.Min.X)
}

func TestFitRectTallSourcePillarboxes(t *testing.T) {
	// 9:16 source onto a 16:9 canvas: fit to height, bars left/right
	rect := FitRect(1080, 1920, 1920, 1080)

	assert.Equal(t, 1080, rect.Dy(), "height fills the canvas")
	assert.Less(t, rect.Dx(), 1920, "width leaves bars")
	assert.Equal(t, rect.Min.X, 1920-rect.Max.X, "bars are centered")
	assert.Equal(t, 0, rect.Min.Y)
}

func TestRenderFrameNeutralIsIdentity(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			src.SetRGBA(x, y, color.RGBA{uint8(x * 4), uint8(y * 5), uint8((x + y) * 2), 255})
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, 64, 48))
	testRenderer().RenderFrame(src, dst, enhance.Settings{})

	assert.Equal(t, src.Pix, dst.Pix, "neutral settings must be pixel-identical")
}

func TestRenderFrameLetterboxBarsAreBlack(t *testing.T) {
	src := solidFrame(160, 90, color.RGBA{200, 10, 10, 255}) // 16:9
	dst := image.NewRGBA(image.Rect(0, 0, 90, 160))          // 9:16

	testRenderer().RenderFrame(src, dst, enhance.Settings{})

	// Top and bottom rows are bars
	top := dst.RGBAAt(45, 0)
	bottom := dst.RGBAAt(45, 159)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, top)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, bottom)

	// Center carries source content
	center := dst.RGBAAt(45, 80)
	assert.Greater(t, int(center.R), 100, "center should carry the red source")
}

func TestRenderFrameNilSourceIsNoOp(t *testing.T) {
	dst := solidFrame(32, 32, color.RGBA{7, 7, 7, 255})
	before := make([]uint8, len(dst.Pix))
	copy(before, dst.Pix)

	testRenderer().RenderFrame(nil, dst, enhance.Settings{})

	assert.Equal(t, before, dst.Pix, "nil source must not touch the target")
}

func TestBuildAdjusterNeutralIsNil(t *testing.T) {
	assert.Nil(t, buildAdjuster(enhance.Settings{}))
	assert.Nil(t, buildAdjuster(enhance.Settings{Gamma: 1}))
}

func TestAdjusterBrightnessRaisesPixels(t *testing.T) {
	dst := solidFrame(8, 8, color.RGBA{100, 100, 100, 255})

	adj := buildAdjuster(enhance.Settings{Brightness: 50})
	if adj == nil {
		t.Fatal("expected an adjuster for non-neutral settings")
	}
	adj.apply(dst, dst.Bounds())

	got := dst.RGBAAt(4, 4)
	assert.Greater(t, int(got.R), 100, "positive brightness must raise values")
}

func TestAdjusterContrastSpreadsAroundMidGray(t *testing.T) {
	adj := buildAdjuster(enhance.Settings{Contrast: 50})
	if adj == nil {
		t.Fatal("expected an adjuster")
	}

	dark := solidFrame(4, 4, color.RGBA{64, 64, 64, 255})
	bright := solidFrame(4, 4, color.RGBA{192, 192, 192, 255})
	adj.apply(dark, dark.Bounds())
	adj.apply(bright, bright.Bounds())

	assert.Less(t, int(dark.RGBAAt(0, 0).R), 64, "contrast pushes darks darker")
	assert.Greater(t, int(bright.RGBAAt(0, 0).R), 192, "contrast pushes brights brighter")
}

func TestAdjusterSaturationDesaturatesToGray(t *testing.T) {
	dst := solidFrame(4, 4, color.RGBA{200, 50, 50, 255})

	adj := buildAdjuster(enhance.Settings{Saturation: -100})
	if adj == nil {
		t.Fatal("expected an adjuster")
	}
	adj.apply(dst, dst.Bounds())

	got := dst.RGBAAt(0, 0)
	assert.InDelta(t, int(got.R), int(got.G), 2, "full desaturation equalizes channels")
	assert.InDelta(t, int(got.G), int(got.B), 2)
}

func TestAdjusterWarmthShiftsTowardSepia(t *testing.T) {
	neutral := solidFrame(4, 4, color.RGBA{120, 120, 120, 255})

	adj := buildAdjuster(enhance.Settings{Warmth: 80})
	if adj == nil {
		t.Fatal("expected an adjuster")
	}
	adj.apply(neutral, neutral.Bounds())

	got := neutral.RGBAAt(0, 0)
	assert.Greater(t, got.R, got.B, "sepia blend warms reds over blues")
}

func TestAdjusterCachedAcrossFrames(t *testing.T) {
	r := testRenderer()
	s := enhance.Settings{Brightness: 10}

	first := r.adjusterFor(s)
	second := r.adjusterFor(s)
	assert.Same(t, first, second, "same settings reuse the compiled adjustment")

	s.Brightness = 20
	third := r.adjusterFor(s)
	assert.NotSame(t, first, third, "changed settings rebuild")
}
