package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"owlynn-be/pkg/store"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// readImage extracts OCR text through the tesseract CLI and an optional
// caption from the vision model. A missing tesseract binary or a failing
// caption call leaves that part empty.
func (c *Converter) readImage(ctx context.Context, filename string) (string, store.Metadata, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return "", nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", nil, fmt.Errorf("decode image: %w", err)
	}

	ocrText, err := c.ocr(ctx, filename)
	if err != nil {
		return "", nil, err
	}

	caption := ""
	if c.captioner != nil {
		caption, err = c.captioner.Caption(ctx, raw, http.DetectContentType(raw))
		if err != nil {
			c.logger.Warn(moduleName, "Image caption failed", map[string]interface{}{
				"filename": filename,
				"error":    err.Error(),
			})
			caption = ""
		}
	}

	meta := store.Metadata{
		store.MetaDimensions: []int{cfg.Width, cfg.Height},
		store.MetaFormat:     strings.ToUpper(format),
		store.MetaMode:       colorMode(cfg.ColorModel),
		store.MetaCaption:    caption,
	}
	content := fmt.Sprintf("OCR Text:\n%s\n\nCaption:\n%s", ocrText, caption)
	return content, meta, nil
}

func (c *Converter) ocr(ctx context.Context, filename string) (string, error) {
	if c.tesseractPath == "" {
		return "", nil
	}
	args := []string{filename, "stdout"}
	if len(c.languages) > 0 {
		args = append(args, "-l", strings.Join(c.languages, "+"))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.tesseractPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn(moduleName, "tesseract not installed, skipping OCR", map[string]interface{}{
				"path": c.tesseractPath,
			})
			return "", nil
		}
		return "", fmt.Errorf("ocr: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func colorMode(m color.Model) string {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	case color.YCbCrModel:
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	}
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	return "unknown"
}
