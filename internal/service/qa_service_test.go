package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/answer"
	"paperqa/internal/chunker"
	"paperqa/internal/domain"
	"paperqa/internal/embedding/tfidf"
	"paperqa/internal/metadata"
	"paperqa/internal/summarizer"
	"paperqa/internal/vectorstore/memory"
)

var paperText = "Deep Learning for Protein Folding\nAlice Smith, Bob Jones\nUniversity of Example\n\nAbstract\n" +
	strings.Repeat("alpha ", 40) + strings.Repeat("beta ", 40)

var smallParams = chunker.Params{ChunkSize: 200, Overlap: 0}

type fakeEmbedder struct {
	calls int
	fail  func(text string) bool
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls++
	if f.fail != nil && f.fail(text) {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return []float64{float64(strings.Count(text, "alpha")), float64(strings.Count(text, "beta")), 1}, nil
}

type fakeGenerator struct {
	prompt, system string
	reply          string
	err            error
}

func (g *fakeGenerator) ModelName() string { return "fake-llm" }

func (g *fakeGenerator) Generate(_ context.Context, prompt, system string) (string, error) {
	g.prompt, g.system = prompt, system
	return g.reply, g.err
}

type recorder struct {
	loaded   []domain.DocumentLoaded
	answered []domain.QueryAnswered
	errors   []string
}

func (r *recorder) DocumentLoaded(evt domain.DocumentLoaded) { r.loaded = append(r.loaded, evt) }
func (r *recorder) QueryAnswered(evt domain.QueryAnswered)   { r.answered = append(r.answered, evt) }
func (r *recorder) Error(op, msg string)                     { r.errors = append(r.errors, op+": "+msg) }

type panicObserver struct{}

func (panicObserver) DocumentLoaded(domain.DocumentLoaded) { panic("boom") }
func (panicObserver) QueryAnswered(domain.QueryAnswered)   { panic("boom") }
func (panicObserver) Error(string, string)                 { panic("boom") }

func newTestService(t *testing.T, emb domain.Embedder, gen *fakeGenerator, observers ...domain.Observer) *QAService {
	t.Helper()
	svc, err := New(emb, gen, Options{Chunk: smallParams, Observers: observers})
	require.NoError(t, err)
	return svc
}

func paper() domain.Document {
	return domain.Document{Path: "paper.txt", Content: paperText}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(&fakeEmbedder{}, &fakeGenerator{}, Options{Chunk: chunker.Params{ChunkSize: 500, Overlap: 600}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = New(nil, &fakeGenerator{}, Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	svc, err := New(&fakeEmbedder{}, &fakeGenerator{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, chunker.DefaultParams(), svc.Params())
	assert.Equal(t, StateEmpty, svc.State())
}

func TestAsk_NoDocument(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, &fakeEmbedder{}, &fakeGenerator{}, rec)

	text, err := svc.Ask(context.Background(), "anything?")
	assert.Equal(t, MsgNoDocument, text)
	assert.ErrorIs(t, err, domain.ErrNoDocument)
	assert.Equal(t, StateEmpty, svc.State())
	assert.Len(t, rec.errors, 1)
}

func TestLoadAndAsk(t *testing.T) {
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{reply: "The paper studies beta."}
	rec := &recorder{}
	svc := newTestService(t, emb, gen, rec)

	require.NoError(t, svc.Load(context.Background(), paper()))
	assert.Equal(t, StateReady, svc.State())

	snap := svc.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "Deep Learning for Protein Folding", snap.Title)
	assert.Contains(t, snap.Authors, "Alice Smith, Bob Jones")
	assert.NotEmpty(t, snap.Document.ID)

	want, err := chunker.Split(paperText, smallParams.ChunkSize, smallParams.Overlap)
	require.NoError(t, err)
	assert.Len(t, snap.Chunks, len(want))
	assert.Equal(t, len(want), snap.Produced)
	assert.Equal(t, len(want), snap.Embedded())

	text, err := svc.Ask(context.Background(), "what about beta")
	require.NoError(t, err)
	assert.Equal(t, "The paper studies beta.", text)
	assert.Equal(t, answer.SystemPrompt, gen.system)
	assert.True(t, strings.HasPrefix(gen.prompt, "Context from research paper:\n"))
	assert.Contains(t, gen.prompt, "beta beta")
	assert.True(t, strings.HasSuffix(gen.prompt, "Question: what about beta\n\nAnswer:"))
	assert.Equal(t, StateReady, svc.State())

	require.Len(t, rec.loaded, 1)
	assert.Equal(t, "paper.txt", rec.loaded[0].Path)
	assert.Equal(t, "fake-llm", rec.loaded[0].Model)
	assert.Equal(t, "fake", rec.loaded[0].EmbeddingModel)
	require.Len(t, rec.answered, 1)
	assert.Equal(t, "what about beta", rec.answered[0].Question)
	assert.NoError(t, rec.answered[0].Err)
}

func TestAsk_EmptyIndex(t *testing.T) {
	emb := &fakeEmbedder{fail: func(string) bool { return true }}
	gen := &fakeGenerator{reply: "unused"}
	svc := newTestService(t, emb, gen)

	require.NoError(t, svc.Load(context.Background(), paper()))
	loadCalls := emb.calls
	assert.Zero(t, svc.Snapshot().Embedded())

	text, err := svc.Ask(context.Background(), "anything")
	assert.Equal(t, MsgEmptyIndex, text)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	assert.Equal(t, loadCalls, emb.calls)
	assert.Empty(t, gen.prompt)
	assert.Equal(t, StateReady, svc.State())
}

func TestAsk_QuestionEmbeddingFails(t *testing.T) {
	emb := &fakeEmbedder{fail: func(text string) bool { return text == "bad question" }}
	svc := newTestService(t, emb, &fakeGenerator{})
	require.NoError(t, svc.Load(context.Background(), paper()))

	text, err := svc.Ask(context.Background(), "bad question")
	assert.Equal(t, MsgQuestionEmbedding, text)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, StateReady, svc.State())
}

func TestAsk_BackendError(t *testing.T) {
	gen := &fakeGenerator{err: &domain.BackendError{StatusCode: 500, Body: "model not found"}}
	rec := &recorder{}
	svc := newTestService(t, &fakeEmbedder{}, gen, rec)
	require.NoError(t, svc.Load(context.Background(), paper()))

	text, err := svc.Ask(context.Background(), "alpha?")
	assert.Equal(t, "Error: 500\nmodel not found", text)
	var be *domain.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 500, be.StatusCode)
	assert.Equal(t, StateReady, svc.State())
	assert.NotNil(t, svc.Snapshot())
	require.Len(t, rec.answered, 1)
	assert.Error(t, rec.answered[0].Err)
	assert.Len(t, rec.errors, 1)
}

func TestLoad_InvalidParamsMakeNoBackendCalls(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := newTestService(t, emb, &fakeGenerator{})

	err := svc.LoadWithParams(context.Background(), paper(), chunker.Params{ChunkSize: 500, Overlap: 600})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Zero(t, emb.calls)
	assert.Nil(t, svc.Snapshot())
	assert.Equal(t, StateEmpty, svc.State())
}

func TestLoad_DropsFailedChunksInLockstep(t *testing.T) {
	n := 0
	emb := &fakeEmbedder{fail: func(string) bool { n++; return n%2 == 0 }}
	rec := &recorder{}
	svc := newTestService(t, emb, &fakeGenerator{}, rec)
	require.NoError(t, svc.Load(context.Background(), paper()))

	snap := svc.Snapshot()
	assert.Equal(t, 3, snap.Produced)
	assert.Equal(t, 2, snap.Embedded())
	require.Len(t, snap.Chunks, snap.Embedded())
	assert.Equal(t, snap.Index.Chunks(), snap.Chunks)
	assert.Equal(t, 0, snap.Chunks[0].Index)
	assert.Equal(t, 2, snap.Chunks[1].Index)

	require.Len(t, rec.loaded, 1)
	assert.Equal(t, 3, rec.loaded[0].Chunks)
	assert.Equal(t, 2, rec.loaded[0].Embedded)
}

func TestLoad_FailureKeepsPreviousSnapshot(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, &fakeGenerator{})
	require.NoError(t, svc.Load(context.Background(), paper()))
	before := svc.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Load(ctx, domain.Document{Path: "other.txt", Content: strings.Repeat("gamma ", 100)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Same(t, before, svc.Snapshot())
	assert.Equal(t, StateReady, svc.State())
}

func TestLoad_ReplacesAndIsRepeatable(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, &fakeGenerator{})
	require.NoError(t, svc.Load(context.Background(), paper()))
	first := svc.Snapshot()
	require.NoError(t, svc.Load(context.Background(), paper()))
	second := svc.Snapshot()

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Authors, second.Authors)
	assert.Equal(t, first.Index.(*memory.Storage).Vectors(), second.Index.(*memory.Storage).Vectors())

	require.NoError(t, svc.Load(context.Background(), domain.Document{Path: "short.txt", Content: "too short"}))
	snap := svc.Snapshot()
	assert.Empty(t, snap.Chunks)
	assert.Equal(t, metadata.TitleNotFound, snap.Title)
	assert.Equal(t, metadata.AuthorsNotFound, snap.Authors)
}

func TestAskWithSources_EmbedsQuestionOnce(t *testing.T) {
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{reply: "beta it is"}
	svc := newTestService(t, emb, gen)
	require.NoError(t, svc.Load(context.Background(), paper()))
	before := emb.calls

	text, sources, err := svc.AskWithSources(context.Background(), "what about beta")
	require.NoError(t, err)
	assert.Equal(t, "beta it is", text)
	assert.Equal(t, before+1, emb.calls)
	require.Len(t, sources, 3)
	assert.Contains(t, sources[0].Chunk.Text, "beta")
	for _, src := range sources {
		assert.Contains(t, gen.prompt, src.Chunk.Text)
	}

	empty := newTestService(t, emb, gen)
	text, sources, err = empty.AskWithSources(context.Background(), "anything")
	assert.Equal(t, MsgNoDocument, text)
	assert.ErrorIs(t, err, domain.ErrNoDocument)
	assert.Nil(t, sources)
}

func TestObserverPanicsAreRecovered(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, &fakeEmbedder{}, &fakeGenerator{reply: "ok"}, panicObserver{}, rec)

	require.NotPanics(t, func() {
		require.NoError(t, svc.Load(context.Background(), paper()))
		text, err := svc.Ask(context.Background(), "alpha")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	})
	assert.Len(t, rec.loaded, 1)
	assert.Len(t, rec.answered, 1)
}

func TestRetrieve(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, &fakeGenerator{})
	_, err := svc.Retrieve(context.Background(), "q", 2)
	assert.ErrorIs(t, err, domain.ErrNoDocument)

	require.NoError(t, svc.Load(context.Background(), paper()))
	results, err := svc.Retrieve(context.Background(), "alpha", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Chunk.Text, "alpha")
}

func TestTFIDFEmbedderIsPreparedOnLoad(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	svc, err := New(tfidf.NewEmbedder(), gen, Options{
		Chunk:      smallParams,
		Summarizer: summarizer.NewFrequencySummarizer(),
		Now:        fixedClock(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background(), paper()))
	snap := svc.Snapshot()
	assert.Equal(t, len(snap.Chunks), snap.Embedded())
	assert.NotEmpty(t, snap.Summary)
	assert.Equal(t, time.Second, snap.LoadDuration)

	results, err := svc.Retrieve(context.Background(), "beta", 1)
	require.NoError(t, err)
	assert.Contains(t, results[0].Chunk.Text, "beta")

	// unknown terms embed to a zero vector and fall back to word overlap
	results, err = svc.Retrieve(context.Background(), "zebra", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "querying", StateQuerying.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n-1) * time.Second)
	}
}
