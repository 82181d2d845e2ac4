package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"gopkg.in/yaml.v3"
)

func readText(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	docs, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return "", err
	}
	content := joinPages(docs, "")
	if !utf8.ValidString(content) {
		return "", fmt.Errorf("not valid UTF-8 text")
	}
	return content, nil
}

func readCode(ctx context.Context, path, ext string) (string, error) {
	switch ext {
	case ".json":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, bytes.TrimSpace(raw), "", "  "); err != nil {
			return "", err
		}
		return out.String(), nil
	case ".yml", ".yaml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		var node yaml.Node
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return "", err
		}
		if len(node.Content) == 0 {
			return "", nil
		}
		var out bytes.Buffer
		enc := yaml.NewEncoder(&out)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return "", err
		}
		_ = enc.Close()
		return out.String(), nil
	case ".html", ".xml":
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		docs, err := documentloaders.NewHTML(f).Load(ctx)
		if err != nil {
			return "", err
		}
		return collapseBlankLines(joinPages(docs, "\n")), nil
	default:
		return readText(ctx, path)
	}
}

func joinPages(docs []schema.Document, sep string) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.PageContent)
	}
	return strings.Join(parts, sep)
}

func collapseBlankLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
