package extractor

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

func openPDF(path string) (*os.File, *pdf.Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("stat pdf: %w", err)
	}
	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("read pdf: %w", err)
	}
	return file, reader, nil
}

func (e *Extractor) pdfText(path string) (string, error) {
	file, reader, err := openPDF(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			b.WriteString("\n")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.log.Warn().Err(err).Int("page", i).Str("path", path).Msg("page text")
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func pdfInfo(path string) (map[string]string, error) {
	file, reader, err := openPDF(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	out := map[string]string{"pages": fmt.Sprint(reader.NumPage())}
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return out, nil
	}
	for _, key := range info.Keys() {
		v := strings.TrimSpace(info.Key(key).Text())
		if v == "" {
			continue
		}
		out[strings.TrimPrefix(key, "/")] = v
	}
	return out, nil
}
