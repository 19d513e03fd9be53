package imaging

import (
	"context"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

const (
	BannerWidth  = 750
	BannerHeight = 400

	DefaultBannerTitle = "AI生成表情包"

	bannerTileSize  = 150
	bannerTileGap   = 20
	bannerTileY     = 50
	bannerMaxTiles  = 3
	bannerTitleY    = 300
	bannerTitleSize = 32
)

var (
	bannerFrom   = mustColor("#667eea")
	bannerTo     = mustColor("#764ba2")
	bannerShadow = mustColor("rgba(0,0,0,0.5)")
)

// CreateBanner renders a 750x400 cover: a diagonal gradient, the main
// images of the first three emoticons as 150x150 tiles, and the title.
// Tiles whose image cannot be loaded are left empty.
func (p *Processor) CreateBanner(ctx context.Context, emoticons []ProcessedEmoticon, title string) (string, error) {
	if title == "" {
		title = DefaultBannerTitle
	}

	dst := image.NewRGBA(image.Rect(0, 0, BannerWidth, BannerHeight))
	fillDiagonalGradient(dst, bannerFrom, bannerTo)

	tiles := emoticons[:min(len(emoticons), bannerMaxTiles)]
	startX := (BannerWidth - (len(tiles)*bannerTileSize + (len(tiles)-1)*bannerTileGap)) / 2

	for i, e := range tiles {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		img, err := p.fetch(ctx, e.MainImage)
		if err != nil {
			p.logf("imaging: banner tile %q: %v", e.Keyword, err)
			continue
		}

		x := startX + i*(bannerTileSize+bannerTileGap)
		dr := image.Rect(x, bannerTileY, x+bannerTileSize, bannerTileY+bannerTileSize)
		draw.CatmullRom.Scale(dst, dr, img, img.Bounds(), draw.Over, nil)
	}

	face := p.newFace(bannerTitleSize)
	defer face.Close()

	drawText(dst, face, title, BannerWidth/2, bannerTitleY, color.White, &shadow{
		color: bannerShadow,
		dx:    2,
		dy:    2,
		blur:  2,
	})

	return EncodeDataURL(dst)
}

// fillDiagonalGradient fills dst with a linear gradient running from its
// top-left to its bottom-right corner.
func fillDiagonalGradient(dst *image.RGBA, from, to color.NRGBA) {
	b := dst.Bounds()
	gx, gy := float64(b.Dx()), float64(b.Dy())
	norm := gx*gx + gy*gy

	lerp := func(a, b uint8, t float64) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			t := clamp01((float64(x-b.Min.X)*gx + float64(y-b.Min.Y)*gy) / norm)
			dst.SetRGBA(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 0xff,
			})
		}
	}
}
