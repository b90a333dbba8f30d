// Package sessionlog records the events of one interactive session and
// renders them as a plain text log for export.
package sessionlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"paperqa/internal/domain"
	"paperqa/internal/logger"
	"paperqa/internal/monitor"
)

const timeLayout = "2006-01-02 15:04:05"

// EntryType names a kind of session event.
type EntryType string

const (
	SessionStart EntryType = "SESSION_START"
	DocumentLoad EntryType = "PDF_LOAD"
	Query        EntryType = "QUERY"
	Error        EntryType = "ERROR"
)

// Entry is one recorded event. Only the fields of its Type are set.
type Entry struct {
	At   time.Time
	Type EntryType

	System *monitor.SystemInfo
	Usage  *monitor.Usage

	Path           string
	Title          string
	Authors        string
	Model          string
	EmbeddingModel string
	Duration       time.Duration

	Question string
	Answer   string

	Operation string
	Message   string
}

// Sampler provides the resource reading attached to load and query entries.
type Sampler interface {
	Sample(ctx context.Context) (monitor.Usage, error)
}

// Options configures a Recorder.
type Options struct {
	Sampler Sampler
	Logger  *logger.Logger
	Now     func() time.Time
}

// Recorder keeps the entries of one session. It is safe for concurrent use.
type Recorder struct {
	id      string
	started time.Time
	opts    Options
	log     zerolog.Logger

	mu      sync.Mutex
	entries []Entry
}

var _ domain.Observer = (*Recorder)(nil)

// New starts a session record.
func New(opts Options) *Recorder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	id := uuid.NewString()
	return &Recorder{
		id:      id,
		started: opts.Now(),
		opts:    opts,
		log:     opts.Logger.Component("session").With().Str("session_id", id).Logger(),
	}
}

// ID returns the session identifier.
func (r *Recorder) ID() string { return r.id }

// Entries returns a copy of the recorded entries in order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// SessionStarted records the host description.
func (r *Recorder) SessionStarted(info monitor.SystemInfo) {
	r.log.Info().
		Str("os", info.OS).
		Str("processor", info.Processor).
		Int("logical_cores", info.LogicalCores).
		Float64("ram_total_gb", info.RAMTotalGB).
		Bool("gpu", info.HasGPU).
		Msg("session started")
	r.add(Entry{Type: SessionStart, System: &info})
}

// DocumentLoaded records a load.
func (r *Recorder) DocumentLoaded(evt domain.DocumentLoaded) {
	r.log.Info().
		Str("path", evt.Path).
		Str("model", evt.Model).
		Str("embedding_model", evt.EmbeddingModel).
		Int("chunks", evt.Chunks).
		Int("embedded", evt.Embedded).
		Dur("duration_ms", evt.Duration).
		Msg("document loaded")
	r.add(Entry{
		Type:           DocumentLoad,
		Usage:          r.sample(),
		Path:           evt.Path,
		Title:          evt.Title,
		Authors:        evt.Authors,
		Model:          evt.Model,
		EmbeddingModel: evt.EmbeddingModel,
		Duration:       evt.Duration,
	})
}

// QueryAnswered records a question and the text shown for it.
func (r *Recorder) QueryAnswered(evt domain.QueryAnswered) {
	r.log.Info().
		Str("model", evt.Model).
		Int("question_chars", len(evt.Question)).
		Dur("duration_ms", evt.Duration).
		Err(evt.Err).
		Msg("query answered")
	r.add(Entry{
		Type:     Query,
		Usage:    r.sample(),
		Question: evt.Question,
		Answer:   evt.Answer,
		Model:    evt.Model,
		Duration: evt.Duration,
	})
}

// Error records a failed operation.
func (r *Recorder) Error(operation, message string) {
	r.log.Warn().Str("operation", operation).Str("error", message).Msg("operation failed")
	r.add(Entry{Type: Error, Operation: operation, Message: message})
}

func (r *Recorder) sample() *monitor.Usage {
	if r.opts.Sampler == nil {
		return nil
	}
	u, err := r.opts.Sampler.Sample(context.Background())
	if err != nil {
		r.log.Debug().Err(err).Msg("resource sample")
		return nil
	}
	return &u
}

func (r *Recorder) add(e Entry) {
	e.At = r.opts.Now()
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// Format renders the session as text.
func (r *Recorder) Format() string {
	var b strings.Builder
	b.WriteString("=== PDF Q&A SESSION LOG ===\n")
	fmt.Fprintf(&b, "Session started: %s\n\n", r.started.Format(timeLayout))

	for _, e := range r.Entries() {
		fmt.Fprintf(&b, "[%s] %s\n", e.At.Format(timeLayout), e.Type)
		switch e.Type {
		case SessionStart:
			writeSystem(&b, e.System)
		case DocumentLoad:
			fmt.Fprintf(&b, "  File: %s\n", orUnknown(filepath.Base(e.Path)))
			fmt.Fprintf(&b, "  Title: %s\n", orUnknown(e.Title))
			fmt.Fprintf(&b, "  Model: %s\n", orUnknown(e.Model))
			fmt.Fprintf(&b, "  Embedding: %s\n", orUnknown(e.EmbeddingModel))
			fmt.Fprintf(&b, "  Processing time: %.2f seconds\n", e.Duration.Seconds())
			writeUsage(&b, e.Usage)
		case Query:
			fmt.Fprintf(&b, "  Model: %s\n", orUnknown(e.Model))
			fmt.Fprintf(&b, "  Question: %s\n", orUnknown(e.Question))
			fmt.Fprintf(&b, "  Query time: %.2f seconds\n", e.Duration.Seconds())
			writeUsage(&b, e.Usage)
			b.WriteString("  Answer:\n")
			answer := e.Answer
			if answer == "" {
				answer = "No answer"
			}
			for _, line := range strings.Split(answer, "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		case Error:
			fmt.Fprintf(&b, "  Operation: %s\n", orUnknown(e.Operation))
			fmt.Fprintf(&b, "  Error: %s\n", orUnknown(e.Message))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeSystem(b *strings.Builder, info *monitor.SystemInfo) {
	if info == nil {
		info = &monitor.SystemInfo{}
	}
	osName := info.OS
	if osName == "" {
		osName = "Unknown OS"
	}
	fmt.Fprintf(b, "  System: %s\n", osName)
	fmt.Fprintf(b, "  CPU: %s (%d cores, %d threads)\n", orUnknown(info.Processor), info.PhysicalCores, info.LogicalCores)
	fmt.Fprintf(b, "  RAM: %.2f GB\n", info.RAMTotalGB)
	if info.HasGPU {
		b.WriteString("  GPU: Available\n")
	} else {
		b.WriteString("  GPU: Not detected\n")
	}
}

func writeUsage(b *strings.Builder, u *monitor.Usage) {
	if u == nil {
		u = &monitor.Usage{}
	}
	fmt.Fprintf(b, "  CPU: %.1f%%, RAM: %.1f%%, ", u.CPUPercent, u.RAMPercent)
	if u.GPUAvailable {
		fmt.Fprintf(b, "GPU: %.1f%%\n", u.GPU.LoadPercent)
	} else {
		b.WriteString("GPU: N/A\n")
	}
}

func orUnknown(s string) string {
	if s == "" || s == "." {
		return "Unknown"
	}
	return s
}

// Export writes Format to path, creating parent directories.
func (r *Recorder) Export(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export session log: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(r.Format()), 0o644); err != nil {
		return fmt.Errorf("export session log: %w", err)
	}
	r.log.Info().Str("path", path).Msg("session log exported")
	return nil
}

// DefaultExportName returns a timestamped file name for Export.
func (r *Recorder) DefaultExportName() string {
	return fmt.Sprintf("paperqa_session_%s.txt", r.opts.Now().Format("20060102_150405"))
}
