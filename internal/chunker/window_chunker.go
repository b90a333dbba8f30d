package chunker

import (
	"fmt"
	"strconv"

	"paperqa/internal/domain"
)

const (
	// DefaultChunkSize is the default number of characters per window.
	DefaultChunkSize = 1000
	// DefaultOverlap is the default number of characters shared by neighbouring windows.
	DefaultOverlap = 200
	// MinChunkChars is the shortest window that is kept.
	MinChunkChars = 100
)

// Params are the window parameters for one load.
type Params struct {
	ChunkSize int
	Overlap   int
}

// DefaultParams returns the 1000/200 window.
func DefaultParams() Params {
	return Params{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap}
}

// Validate rejects parameters that would produce a non-advancing window.
func (p Params) Validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, p.ChunkSize)
	}
	if p.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidConfig, p.Overlap)
	}
	if p.Overlap >= p.ChunkSize {
		return fmt.Errorf("%w: overlap (%d) must be smaller than chunk size (%d)", domain.ErrInvalidConfig, p.Overlap, p.ChunkSize)
	}
	return nil
}

// Split cuts text into windows of chunkSize characters whose starts are
// chunkSize-overlap apart. Windows shorter than MinChunkChars are dropped.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	windows, err := split(text, Params{ChunkSize: chunkSize, Overlap: overlap})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = w.text
	}
	return out, nil
}

type window struct {
	text   string
	offset int
}

func split(text string, p Params) ([]window, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	runes := []rune(text)
	step := p.ChunkSize - p.Overlap
	var out []window
	for start := 0; start < len(runes); start += step {
		end := start + p.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if end-start < MinChunkChars {
			continue
		}
		out = append(out, window{text: string(runes[start:end]), offset: start})
	}
	return out, nil
}

// WindowChunker splits documents into fixed-size overlapping character windows.
type WindowChunker struct {
	params Params
}

// NewWindowChunker validates p and returns a chunker using it.
func NewWindowChunker(p Params) (*WindowChunker, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &WindowChunker{params: p}, nil
}

// Params returns the window parameters.
func (c *WindowChunker) Params() Params { return c.params }

func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	windows, err := split(document.Content, c.params)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(windows))
	for idx, w := range windows {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       w.text,
			Index:      idx,
			Offset:     w.offset,
		})
	}
	return chunks, nil
}
