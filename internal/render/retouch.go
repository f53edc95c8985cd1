package render

import "image"

// Skin retouch without face landmarks: the mask is a per-pixel
// skin-tone classification, smoothing is a 3x3 neighborhood average
// with high-pass detail added back, and the result is wet/dry blended
// so the original is never fully replaced. An approximation of
// landmark-masked retouching, same as the other adjustment stand-ins.

// isSkinTone classifies a pixel with the common RGB skin rule.
func isSkinTone(r, g, b uint8) bool {
	return r > 95 && g > 40 && b > 20 &&
		r > g && r > b &&
		int(r)-int(g) > 15
}

// smoothSkin softens skin-tone pixels inside region. smooth is the
// wet/dry amount (0-100), texture how much fine detail survives the
// smoothing (0-100). Region border pixels are left untouched.
func smoothSkin(dst *image.RGBA, region image.Rectangle, smooth, texture float64) {
	region = region.Intersect(dst.Bounds())
	if region.Dx() < 3 || region.Dy() < 3 {
		return
	}

	amount := smooth / 100
	if amount < 0 {
		amount = 0
	} else if amount > 1 {
		amount = 1
	}
	if amount == 0 {
		return
	}

	if texture < 0 {
		texture = 0
	} else if texture > 100 {
		texture = 100
	}
	hpGain := 0.2 + 0.006*texture

	// Averages read the original pixels, so the region is snapshotted
	// before any write.
	orig := make([]uint8, len(dst.Pix))
	copy(orig, dst.Pix)

	stride := dst.Stride
	for y := region.Min.Y + 1; y < region.Max.Y-1; y++ {
		offset := dst.PixOffset(region.Min.X+1, y)
		for x := region.Min.X + 1; x < region.Max.X-1; x++ {
			r := orig[offset]
			g := orig[offset+1]
			b := orig[offset+2]

			if isSkinTone(r, g, b) {
				for c := 0; c < 3; c++ {
					i := offset + c
					sum := int(orig[i-stride-4]) + int(orig[i-stride]) + int(orig[i-stride+4]) +
						int(orig[i-4]) + int(orig[i]) + int(orig[i+4]) +
						int(orig[i+stride-4]) + int(orig[i+stride]) + int(orig[i+stride+4])
					avg := float64(sum) / 9

					v := float64(orig[i])
					smoothed := avg + (v-avg)*hpGain
					dst.Pix[i] = clamp255(v*(1-amount) + smoothed*amount)
				}
			}
			offset += 4
		}
	}
}
