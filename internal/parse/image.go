package parse

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

const minImageDimension = 512

// ImageConfig bounds the single image produced for a raw image upload.
type ImageConfig struct {
	MaxBytes     int // default 4MB
	MaxDimension int // longer side cap, default 2048
}

// ImageParser normalises a scanned image into one PNG page.
type ImageParser struct {
	cfg    ImageConfig
	logger *slog.Logger
}

func NewImageParser(cfg ImageConfig, logger *slog.Logger) *ImageParser {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 << 20
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 2048
	}
	return &ImageParser{cfg: cfg, logger: logger}
}

func (p *ImageParser) Parse(ctx context.Context, path string) (ParseResult, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	data, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("read image: %w", err)
	}
	img := Image{MIMEType: constants.MIMEType(ext), Data: data}
	p.logger.Info("parse.image.loaded", "path", path, "bytes", len(data), "mime", img.MIMEType)

	if ext != "png" {
		converted, err := toPNG(data)
		if err != nil {
			p.logger.Warn("parse.image.png_convert_failed", "path", path, "error", err)
		} else {
			img = Image{MIMEType: "image/png", Data: converted}
			p.logger.Debug("parse.image.png_converted", "bytes", len(converted))
		}
	}

	if err := ctx.Err(); err != nil {
		return ParseResult{}, err
	}

	if p.needsResize(img.Data) {
		resized, err := p.resize(img.Data)
		if err != nil {
			return ParseResult{}, common.NewPipelineError(common.ErrCorruptDocument, "이미지 파일을 읽을 수 없습니다", err)
		}
		img = Image{MIMEType: "image/png", Data: resized}
	}

	return ParseResult{Images: []Image{img}, Pages: 1, Method: "image"}, nil
}

// needsResize reports whether data is over the byte ceiling or its longer
// side is over the dimension cap.
func (p *ImageParser) needsResize(data []byte) bool {
	if len(data) > p.cfg.MaxBytes {
		return true
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return max(cfg.Width, cfg.Height) > p.cfg.MaxDimension
}

// resize fits the longer side within MaxDimension, then keeps shrinking by a
// quarter until the PNG is under MaxBytes or the image gets too small to read.
func (p *ImageParser) resize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	ratio := min(float64(p.cfg.MaxDimension)/float64(w), float64(p.cfg.MaxDimension)/float64(h), 1.0)

	for {
		nw := max(int(math.Round(float64(w)*ratio)), 1)
		nh := max(int(math.Round(float64(h)*ratio)), 1)
		out, err := encodePNG(scale(src, nw, nh))
		if err != nil {
			return nil, err
		}
		p.logger.Info("parse.image.resized", "width", nw, "height", nh, "bytes", len(out))
		if len(out) <= p.cfg.MaxBytes || max(nw, nh)*3/4 < minImageDimension {
			return out, nil
		}
		ratio *= 0.75
	}
}

func scale(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	if !hasAlpha(src) {
		return flatten(dst)
	}
	return dst
}

func toPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if !hasAlpha(img) {
		img = flatten(img)
	}
	return encodePNG(img)
}

// flatten redraws img as opaque RGB so the encoder drops the alpha channel.
func flatten(img image.Image) image.Image {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Opaque() {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64, *image.Paletted:
		if o, ok := img.(interface{ Opaque() bool }); ok {
			return !o.Opaque()
		}
	}
	return false
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
