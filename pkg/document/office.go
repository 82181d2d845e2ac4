package document

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/tmc/langchaingo/documentloaders"
)

func (c *Converter) readDocument(ctx context.Context, filename, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return readPDF(ctx, filename)
	case ".docx":
		return readDocx(filename)
	case ".rtf":
		raw, err := os.ReadFile(filename)
		if err != nil {
			return "", err
		}
		return stripRTF(string(raw)), nil
	}
	return "", fmt.Errorf("no reader for %s", ext)
}

func readPDF(ctx context.Context, filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	pages, err := documentloaders.NewPDF(f, info.Size()).Load(ctx)
	if err != nil {
		return "", err
	}
	return joinPages(pages, "\n"), nil
}

// readDocx returns the header, body and footer text of a Word document.
func readDocx(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, _, err := docconv.ConvertDocx(f)
	if err != nil {
		return "", err
	}
	return collapseBlankLines(text), nil
}

// readPresentation returns the slide text in the order the package lists
// its slides.
func readPresentation(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, _, err := docconv.ConvertPptx(f)
	if err != nil {
		return "", err
	}
	return collapseBlankLines(text), nil
}

// stripRTF drops control words, control symbols and the groups that hold no
// body text (font tables, stylesheets, pictures) and keeps the rest.
func stripRTF(src string) string {
	skipDestinations := map[string]bool{
		"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
		"pict": true, "header": true, "footer": true, "listtable": true,
		"listoverridetable": true, "generator": true, "themedata": true,
		"colorschememapping": true, "datastore": true, "latentstyles": true,
	}

	var (
		out      strings.Builder
		depth    int
		skipFrom = -1
	)
	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch ch {
		case '{':
			depth++
		case '}':
			if skipFrom == depth {
				skipFrom = -1
			}
			depth--
		case '\\':
			if i+1 >= len(src) {
				continue
			}
			next := src[i+1]
			switch {
			case next == '\\' || next == '{' || next == '}':
				if skipFrom < 0 {
					out.WriteByte(next)
				}
				i++
			case next == '*':
				if skipFrom < 0 {
					skipFrom = depth
				}
				i++
			case next == '\'':
				// \'hh hex escaped byte
				if i+3 < len(src) {
					if b, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil && skipFrom < 0 {
						out.WriteRune(rune(b))
					}
				}
				i += 3
			case isLetter(next):
				j := i + 1
				for j < len(src) && isLetter(src[j]) {
					j++
				}
				word := src[i+1 : j]
				k := j
				if k < len(src) && (src[k] == '-' || isDigit(src[k])) {
					k++
					for k < len(src) && isDigit(src[k]) {
						k++
					}
				}
				param := src[j:k]
				if k < len(src) && src[k] == ' ' {
					k++
				}
				i = k - 1

				if skipDestinations[word] && skipFrom < 0 {
					skipFrom = depth
				}
				if skipFrom >= 0 {
					continue
				}
				switch word {
				case "par", "line", "row":
					out.WriteByte('\n')
				case "tab", "cell":
					out.WriteByte('\t')
				case "u":
					if n, err := strconv.Atoi(param); err == nil {
						if n < 0 {
							n += 65536
						}
						out.WriteRune(rune(n))
						// skip the ANSI fallback character
						if i+1 < len(src) && src[i+1] != '\\' && src[i+1] != '{' && src[i+1] != '}' {
							i++
						}
					}
				}
			default:
				i++
			}
		case '\r', '\n':
		default:
			if skipFrom < 0 && depth > 0 {
				out.WriteByte(ch)
			}
		}
	}
	return strings.TrimSpace(out.String())
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
