package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"owlynn-be/internal/config"
	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/logger"
	"owlynn-be/pkg/llm"
	"owlynn-be/pkg/store"
	"owlynn-be/pkg/utils"
)

const moduleName = "Converter"

// Converter turns an uploaded file into plain text plus metadata. The
// extension decides the category and the category decides the reader.
type Converter struct {
	chunkSize     int
	tesseractPath string
	languages     []string
	captioner     llm.Captioner
	logger        logger.ILogger
}

type Option func(*Converter)

// WithCaptioner enables image captioning.
func WithCaptioner(c llm.Captioner) Option {
	return func(cv *Converter) {
		cv.captioner = c
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(cv *Converter) {
		cv.logger = l
	}
}

func NewConverter(files config.FilesConfig, vision config.VisionConfig, opts ...Option) *Converter {
	c := &Converter{
		chunkSize:     files.ChunkSize,
		tesseractPath: vision.TesseractPath,
		languages:     vision.TesseractLanguages,
		logger:        logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert reads the file at path. ext includes the leading dot; when empty it
// is taken from path. The returned metadata always carries filename,
// file_type, file_size, category and chunks.
func (c *Converter) Convert(ctx context.Context, path, ext string) (string, store.Metadata, error) {
	if ext == "" {
		ext = filepath.Ext(path)
	}
	ext = strings.ToLower(ext)
	name := filepath.Base(path)

	category := config.FilesConfig{}.Category(ext)
	if category == "" {
		return "", nil, apperror.UnsupportedFileType(ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", nil, apperror.ConversionFailure(name, err)
	}

	meta := store.Metadata{
		store.MetaFilename: name,
		store.MetaFileType: ext,
		store.MetaFileSize: info.Size(),
		store.MetaCategory: category,
	}

	var content string
	switch category {
	case "text":
		content, err = readText(ctx, path)
	case "documents":
		content, err = c.readDocument(ctx, path, ext)
	case "spreadsheets":
		content, err = readSpreadsheet(ctx, path, ext)
	case "presentations":
		content, err = readPresentation(path)
	case "code":
		content, err = readCode(ctx, path, ext)
	case "images":
		var imageMeta store.Metadata
		content, imageMeta, err = c.readImage(ctx, path)
		meta = meta.Merge(imageMeta)
	}
	if err != nil {
		return "", nil, apperror.ConversionFailure(name, err)
	}

	meta[store.MetaChunks] = utils.ChunkSentences(content, c.chunkSize)

	c.logger.Debug(moduleName, "File converted", map[string]interface{}{
		"filename": name,
		"category": category,
		"chars":    len(content),
	})
	return content, meta, nil
}
