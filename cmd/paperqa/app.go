package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"paperqa/internal/config"
	"paperqa/internal/domain"
	"paperqa/internal/embedding/openai"
	"paperqa/internal/embedding/tfidf"
	"paperqa/internal/extractor"
	"paperqa/internal/logger"
	"paperqa/internal/metrics"
	"paperqa/internal/monitor"
	"paperqa/internal/ollama"
	"paperqa/internal/service"
	"paperqa/internal/sessionlog"
	"paperqa/internal/summarizer"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath  string
	verbose     bool
	metricsAddr string
	// topK overrides retrieval.top_k when positive.
	topK int
}

// app is the wired application for one command invocation.
type app struct {
	cfg       *config.AppConfig
	log       *logger.Logger
	ollama    *ollama.Client
	embedder  domain.Embedder
	extractor *extractor.Extractor
	monitor   *monitor.Monitor
	metrics   *metrics.Metrics
	session   *sessionlog.Recorder
	service   *service.QAService

	closers []func() error
}

func loadConfig(opts *options) (*config.AppConfig, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	var (
		cfg *config.AppConfig
		err error
	)
	if opts.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if opts.topK > 0 {
		cfg.Retrieval.TopK = opts.topK
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires the components. Log output goes to logOut unless the config
// names a log file.
func newApp(opts *options, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	level := cfg.Logging.Level
	if opts.verbose {
		level = "debug"
	}
	if cfg.Logging.File != "" {
		f, err := logger.OpenFile(cfg.Logging.File)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		logOut = f
	}
	a.log = logger.New(logger.Config{Level: level, Pretty: cfg.Logging.Pretty || opts.verbose, Output: logOut})

	a.ollama = ollama.NewClient(cfg.OllamaClientConfig())
	if a.embedder, err = newEmbedder(cfg, a.ollama); err != nil {
		return nil, err
	}
	a.extractor = extractor.New(a.log)

	observers := []domain.Observer{}
	monOpts := monitor.Options{}
	if cfg.Metrics.Addr != "" {
		a.metrics = metrics.New()
		observers = append(observers, a.metrics)
		monOpts.OnSample = a.metrics.ObserveUsage
		a.serveMetrics(cfg.Metrics.Addr)
	}
	a.monitor = monitor.New(monOpts)
	a.session = sessionlog.New(sessionlog.Options{Sampler: a.monitor, Logger: a.log})
	observers = append(observers, a.session)

	var sum domain.Summarizer
	if cfg.Summarizer.Type == "frequency" {
		sum = summarizer.NewFrequencySummarizer()
	}
	a.service, err = service.New(a.embedder, a.ollama, service.Options{
		Chunk:            cfg.ChunkParams(),
		TopK:             cfg.Retrieval.TopK,
		Summarizer:       sum,
		SummarySentences: cfg.Summarizer.MaxSentences,
		Observers:        observers,
		Logger:           a.log,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newEmbedder(cfg *config.AppConfig, backend *ollama.Client) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case config.EmbedderTFIDF:
		return tfidf.NewEmbedder(), nil
	case config.EmbedderOpenAI:
		oc := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Timeout:    time.Duration(oc.TimeoutSecs) * time.Second,
			MaxRetries: oc.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		return client, nil
	default:
		return backend, nil
	}
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl := a.log.Zerolog()
			zl.Error().Err(err).Str("addr", addr).Msg("metrics server")
		}
	}()
	zl := a.log.Zerolog()
	zl.Info().Str("addr", addr).Msg("serving metrics")
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

// load extracts path and loads it into the session.
func (a *app) load(ctx context.Context, path string) error {
	doc, err := a.extractor.Load(path)
	if err != nil {
		a.session.Error("extract", err.Error())
		return err
	}
	return a.service.Load(ctx, doc)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// logWriter is where one-shot commands log: stderr with --verbose,
// nowhere otherwise so stdout stays clean.
func logWriter(opts *options) io.Writer {
	if opts.verbose {
		return os.Stderr
	}
	return io.Discard
}
