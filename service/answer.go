package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"factorymind-backend/llm"
)

const (
	answerSystemPrompt = "You are a helpful AI assistant for FactoryMind AI, an internal operations intelligence system. " +
		"Answer questions based on the provided document context. Be precise and cite sources. " +
		"If the answer is not in the context, say so."
	answerTemperature = 0.3
	answerMaxTokens   = 1500
)

// Synthesizer turns retrieved chunks into an answer for the question.
// chunks and sources are parallel slices.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, chunks, sources []string) (string, error)
}

// AnswerSynthesizer answers questions through a text completion backend
type AnswerSynthesizer struct {
	completer llm.Completer
}

// NewAnswerSynthesizer creates a synthesizer backed by completer
func NewAnswerSynthesizer(completer llm.Completer) *AnswerSynthesizer {
	return &AnswerSynthesizer{completer: completer}
}

func (a *AnswerSynthesizer) Synthesize(ctx context.Context, question string, chunks, sources []string) (string, error) {
	if a.completer == nil {
		return "", errors.New("text completer not set")
	}
	return a.completer.Complete(ctx, llm.Request{
		System:      answerSystemPrompt,
		Prompt:      buildAnswerPrompt(question, chunks, sources),
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
}

func buildAnswerPrompt(question string, chunks, sources []string) string {
	blocks := make([]string, len(chunks))
	for i, text := range chunks {
		source := "unknown"
		if i < len(sources) {
			source = sources[i]
		}
		blocks[i] = fmt.Sprintf("[Document %d: %s]\n%s", i+1, source, text)
	}

	return fmt.Sprintf(`Context from internal documents:
%s

Question: %s

Provide a clear, detailed answer based on the context above. Mention which documents you're referencing.`,
		strings.Join(blocks, "\n\n"), question)
}
