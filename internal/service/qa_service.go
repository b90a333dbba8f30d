// Package service implements the document session: one loaded paper, its
// embedded chunks, and question answering over them.
package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"paperqa/internal/answer"
	"paperqa/internal/chunker"
	"paperqa/internal/domain"
	"paperqa/internal/logger"
	"paperqa/internal/metadata"
	"paperqa/internal/retriever"
	"paperqa/internal/vectorstore"
	"paperqa/internal/vectorstore/memory"
)

// User-facing messages returned by Ask when no answer could be generated.
const (
	MsgNoDocument        = "Please load a document first."
	MsgEmptyIndex        = "No document content is available to answer from."
	MsgQuestionEmbedding = "Failed to generate embedding for the question."
)

// DefaultSummarySentences is the summary length used when Options leaves it unset.
const DefaultSummarySentences = 5

// State is the lifecycle position of a session.
type State int32

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateQuerying
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateQuerying:
		return "querying"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Snapshot is everything derived from one successful load. It is never
// modified after it is published.
type Snapshot struct {
	Document domain.Document
	Title    string
	Authors  string
	Summary  string
	Params   chunker.Params
	// Chunks holds the chunks that were embedded, in the same order as the
	// index vectors. Produced counts what the chunker emitted.
	Chunks       []domain.Chunk
	Produced     int
	Index        vectorstore.Index
	LoadDuration time.Duration
}

// Embedded returns the number of chunks that made it into the index.
func (s *Snapshot) Embedded() int {
	if s.Index == nil {
		return 0
	}
	return s.Index.Len()
}

// Options configures a QAService.
type Options struct {
	Chunk            chunker.Params
	TopK             int
	Summarizer       domain.Summarizer
	SummarySentences int
	Observers        []domain.Observer
	Logger           *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// QAService answers questions about the most recently loaded document.
// Calls must be serialized by the caller; readers of Snapshot and State may
// run concurrently with an operation.
type QAService struct {
	embedder  domain.Embedder
	backend   domain.Generator
	generator *answer.Generator
	opts      Options
	oplog     *logger.Logger
	log       zerolog.Logger

	snapshot atomic.Pointer[Snapshot]
	state    atomic.Int32
}

var _ domain.QAService = (*QAService)(nil)

// New creates an empty session. The chunk parameters are validated up front.
func New(embedder domain.Embedder, backend domain.Generator, opts Options) (*QAService, error) {
	if embedder == nil || backend == nil {
		return nil, fmt.Errorf("%w: embedder and generator are required", domain.ErrInvalidConfig)
	}
	if opts.Chunk == (chunker.Params{}) {
		opts.Chunk = chunker.DefaultParams()
	}
	if err := opts.Chunk.Validate(); err != nil {
		return nil, err
	}
	if opts.TopK <= 0 {
		opts.TopK = retriever.DefaultTopK
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = DefaultSummarySentences
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	oplog := opts.Logger.WithComponent("service")
	return &QAService{
		embedder:  embedder,
		backend:   backend,
		generator: answer.NewGenerator(backend),
		opts:      opts,
		oplog:     oplog,
		log:       oplog.Zerolog(),
	}, nil
}

// State returns the current lifecycle state.
func (s *QAService) State() State { return State(s.state.Load()) }

// Snapshot returns the current document snapshot, or nil before the first
// successful load.
func (s *QAService) Snapshot() *Snapshot { return s.snapshot.Load() }

// Params returns the chunking parameters used by Load.
func (s *QAService) Params() chunker.Params { return s.opts.Chunk }

// Load replaces the session contents with doc using the configured chunk
// parameters.
func (s *QAService) Load(ctx context.Context, doc domain.Document) error {
	return s.LoadWithParams(ctx, doc, s.opts.Chunk)
}

// LoadWithParams replaces the session contents with doc. Invalid params are
// rejected before any backend call. On failure the previous document stays
// loaded.
func (s *QAService) LoadWithParams(ctx context.Context, doc domain.Document, params chunker.Params) error {
	ck, err := chunker.NewWindowChunker(params)
	if err != nil {
		s.notifyError("load", err)
		return err
	}

	s.state.Store(int32(StateLoading))
	start := s.opts.Now()
	snap, err := s.build(ctx, doc, ck)
	if err != nil {
		s.settle()
		s.oplog.LogOperation("load", s.opts.Now().Sub(start), err, map[string]any{"path": doc.Path})
		s.notify(func(o domain.Observer) { o.Error("load", err.Error()) })
		return err
	}
	s.snapshot.Store(snap)
	s.state.Store(int32(StateReady))

	s.oplog.LogOperation("load", snap.LoadDuration, nil, map[string]any{
		"path":     doc.Path,
		"chunks":   snap.Produced,
		"embedded": snap.Embedded(),
	})
	s.notify(func(o domain.Observer) {
		o.DocumentLoaded(domain.DocumentLoaded{
			Path:           doc.Path,
			Model:          s.backend.ModelName(),
			EmbeddingModel: embeddingModel(s.embedder),
			Duration:       snap.LoadDuration,
			Title:          snap.Title,
			Authors:        snap.Authors,
			Chunks:         snap.Produced,
			Embedded:       snap.Embedded(),
		})
	})
	return nil
}

func (s *QAService) build(ctx context.Context, doc domain.Document, ck *chunker.WindowChunker) (*Snapshot, error) {
	start := s.opts.Now()
	if doc.ID == "" {
		doc.ID = documentID(doc)
	}
	meta := metadata.Extract(doc.Content)

	chunks, err := ck.Chunk(doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.Path, err)
	}

	if p, ok := s.embedder.(domain.Preparer); ok && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		// an unprepared embedder fails every call, leaving an empty index
		if err := p.Prepare(texts); err != nil {
			s.log.Warn().Err(err).Str("embedder", s.embedder.Name()).Msg("prepare embedder")
		}
	}

	store := memory.Build(ctx, chunks, s.embedder.Embed)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if store.Failed > 0 {
		s.log.Warn().Int("failed", store.Failed).Int("chunks", len(chunks)).Msg("some chunks were not embedded")
	}

	var summary string
	if s.opts.Summarizer != nil {
		summary, err = s.opts.Summarizer.Summarize(doc.Content, s.opts.SummarySentences)
		if err != nil {
			s.log.Warn().Err(err).Msg("summarize document")
			summary = ""
		}
	}

	return &Snapshot{
		Document:     doc,
		Title:        meta.Title,
		Authors:      meta.Authors,
		Summary:      summary,
		Params:       ck.Params(),
		Chunks:       store.Chunks(),
		Produced:     len(chunks),
		Index:        store,
		LoadDuration: s.opts.Now().Sub(start),
	}, nil
}

// Ask answers question from the loaded document. The returned text is always
// suitable for display; the error, when set, tells the caller what went wrong.
func (s *QAService) Ask(ctx context.Context, question string) (string, error) {
	text, _, err := s.AskWithSources(ctx, question)
	return text, err
}

// AskWithSources is Ask that also returns the passages the answer was
// generated from. The question is embedded once.
func (s *QAService) AskWithSources(ctx context.Context, question string) (string, []domain.SearchResult, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		s.notifyError("ask", domain.ErrNoDocument)
		return MsgNoDocument, nil, domain.ErrNoDocument
	}
	if snap.Index.Len() == 0 {
		s.notifyError("ask", domain.ErrEmptyIndex)
		return MsgEmptyIndex, nil, domain.ErrEmptyIndex
	}

	s.state.Store(int32(StateQuerying))
	defer s.settle()
	start := s.opts.Now()

	results, err := s.retrieve(ctx, snap, question, s.opts.TopK)
	if err != nil {
		s.notifyError("ask", err)
		if errors.Is(err, domain.ErrEmptyIndex) {
			return MsgEmptyIndex, nil, err
		}
		return MsgQuestionEmbedding, nil, err
	}

	text, err := s.generator.Answer(ctx, question, retriever.Texts(results))
	elapsed := s.opts.Now().Sub(start)
	s.oplog.LogOperation("ask", elapsed, err, map[string]any{"context_chunks": len(results)})
	if err != nil {
		s.notify(func(o domain.Observer) { o.Error("ask", err.Error()) })
	}
	s.notify(func(o domain.Observer) {
		o.QueryAnswered(domain.QueryAnswered{
			Question: question,
			Answer:   text,
			Model:    s.backend.ModelName(),
			Duration: elapsed,
			Err:      err,
		})
	})
	return text, results, err
}

// Retrieve returns the k chunks most relevant to question without
// generating an answer. k <= 0 uses the configured top-K.
func (s *QAService) Retrieve(ctx context.Context, question string, k int) ([]domain.SearchResult, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, domain.ErrNoDocument
	}
	if k <= 0 {
		k = s.opts.TopK
	}
	return s.retrieve(ctx, snap, question, k)
}

func (s *QAService) retrieve(ctx context.Context, snap *Snapshot, question string, k int) ([]domain.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed question: %w", domain.ErrEmbeddingUnavailable)
	}
	if retriever.IsZero(vec) {
		return retriever.Lexical(question, snap.Index.Chunks(), k)
	}
	return snap.Index.Search(vec, k)
}

// settle returns the state to Ready, or Empty when nothing was ever loaded.
func (s *QAService) settle() {
	if s.snapshot.Load() == nil {
		s.state.Store(int32(StateEmpty))
		return
	}
	s.state.Store(int32(StateReady))
}

func (s *QAService) notifyError(operation string, err error) {
	s.log.Error().Err(err).Str("operation", operation).Msg("operation failed")
	s.notify(func(o domain.Observer) { o.Error(operation, err.Error()) })
}

func (s *QAService) notify(fn func(domain.Observer)) {
	for _, o := range s.opts.Observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Interface("panic", r).Msg("observer panicked")
				}
			}()
			fn(o)
		}()
	}
}

func embeddingModel(e domain.Embedder) string {
	switch m := e.(type) {
	case interface{ EmbeddingModelName() string }:
		return m.EmbeddingModelName()
	case interface{ ModelName() string }:
		return m.ModelName()
	default:
		return e.Name()
	}
}

func documentID(doc domain.Document) string {
	key := doc.Path
	if key == "" {
		key = doc.Content
	}
	h := sha1.Sum([]byte(key))
	return hex.EncodeToString(h[:8])
}
