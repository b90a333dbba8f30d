// Package answer builds grounded prompts and delegates them to the
// generation backend.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"paperqa/internal/domain"
)

// ErrorPrefix starts every answer text that reports a backend failure.
const ErrorPrefix = "Error: "

// SystemPrompt restricts the model to the retrieved context.
const SystemPrompt = `You are a research assistant helping to answer questions based on the provided research paper.
Use ONLY the information from the provided context to answer the question.
If the answer cannot be determined from the context, say so clearly.
Do not make up information or rely on prior knowledge.`

// BuildContext joins retrieved chunks in retrieval order, separated by a blank line.
func BuildContext(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}

// BuildPrompt embeds the context block and the question in the user prompt.
func BuildPrompt(question, context string) string {
	return fmt.Sprintf("Context from research paper:\n%s\n\nQuestion: %s\n\nAnswer:", context, question)
}

// FormatBackendError renders err as the user-visible answer text.
func FormatBackendError(err error) string {
	var be *domain.BackendError
	if errors.As(err, &be) {
		return fmt.Sprintf("%s%d\n%s", ErrorPrefix, be.StatusCode, be.Body)
	}
	return ErrorPrefix + err.Error()
}

// Generator answers questions from retrieved chunks.
type Generator struct {
	backend domain.Generator
}

// NewGenerator wraps a generation backend.
func NewGenerator(backend domain.Generator) *Generator {
	return &Generator{backend: backend}
}

// Answer returns the backend's text for the grounded prompt. On failure the
// text is the error-prefixed backend response and err is the cause.
func (g *Generator) Answer(ctx context.Context, question string, chunks []string) (string, error) {
	prompt := BuildPrompt(question, BuildContext(chunks))
	text, err := g.backend.Generate(ctx, prompt, SystemPrompt)
	if err != nil {
		return FormatBackendError(err), fmt.Errorf("generate: %w", err)
	}
	return text, nil
}
