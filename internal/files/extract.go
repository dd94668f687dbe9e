package files

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxDocChars   = 8000
	DefaultMaxTotalChars = 24000
	extractWorkers       = 4
)

// Document is the extracted text of one selected file. Err is set when the
// file is missing or its text could not be read.
type Document struct {
	Filename string
	Text     string
	Err      error
}

type Extractor struct {
	files     *Service
	maxPerDoc int
	maxTotal  int
}

func NewExtractor(files *Service) *Extractor {
	return &Extractor{files: files, maxPerDoc: DefaultMaxDocChars, maxTotal: DefaultMaxTotalChars}
}

// Extract reads the named files concurrently. Results keep the order of the
// deduplicated input; failures are recorded per document.
func (e *Extractor) Extract(ctx context.Context, names []string) []Document {
	names = lo.Uniq(lo.Filter(names, func(n string, _ int) bool { return strings.TrimSpace(n) != "" }))
	docs := make([]Document, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractWorkers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			docs[i] = e.extractOne(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return docs
}

func (e *Extractor) extractOne(ctx context.Context, name string) Document {
	doc := Document{Filename: name}
	data, err := e.files.Open(ctx, name)
	if err != nil {
		doc.Err = err
		return doc
	}
	text, err := ExtractText(data, name)
	if err != nil {
		log.Printf("docconv: extraction failed for %s: %v", name, err)
		doc.Err = err
		return doc
	}
	doc.Text = truncateRunes(strings.TrimSpace(text), e.maxPerDoc)
	return doc
}

// ExtractText returns the plain text of an uploaded file. Plain text and
// markdown are read as-is; everything else goes through docconv.
func ExtractText(data []byte, name string) (string, error) {
	switch extension(name) {
	case "txt", "md":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s is not valid UTF-8 text", name)
		}
		return string(data), nil
	}

	res, err := docconv.Convert(bytes.NewReader(data), docconv.MimeTypeByExtension(name), false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// BuildContext renders extracted documents as a prompt section, capped at the
// extractor's overall limit. Unreadable documents are listed as unavailable.
func (e *Extractor) BuildContext(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("The student selected these course documents. Use them as the primary reference:\n")
	remaining := e.maxTotal
	var unavailable []string
	for _, d := range docs {
		if d.Err != nil || d.Text == "" {
			unavailable = append(unavailable, d.Filename)
			continue
		}
		if remaining <= 0 {
			unavailable = append(unavailable, d.Filename)
			continue
		}
		text := truncateRunes(d.Text, remaining)
		remaining -= utf8.RuneCountInString(text)
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", d.Filename, text)
	}
	if len(unavailable) > 0 {
		fmt.Fprintf(&b, "\nThese selected documents could not be read and are unavailable: %s\n", strings.Join(unavailable, ", "))
	}
	return b.String()
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
