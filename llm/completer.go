package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var ErrCompletionFailed = errors.New("text completion failed")

const (
	maxRetries     = 3
	initialBackoff = time.Second
	// Gemini and Llama context limits; longer prompts are cut
	maxPromptChars = 30000
)

// Request is a single system + user prompt exchange
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Completer turns a prompt into generated text
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// callFunc performs one completion attempt
type callFunc func(ctx context.Context, req Request) (string, error)

// complete runs call with retries, per-attempt timeout and prompt truncation.
// The returned text is trimmed; an empty completion counts as a failure.
func complete(ctx context.Context, timeout time.Duration, req Request, call callFunc) (string, error) {
	if len(req.Prompt) > maxPromptChars {
		log.Printf("Warning: Prompt too long (%d chars), truncating to %d chars", len(req.Prompt), maxPromptChars)
		req.Prompt = truncate(req.Prompt, maxPromptChars) + "\n\n[Content truncated due to length...]"
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrCompletionFailed, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		text, err := call(callCtx, req)
		cancel()

		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" {
				return text, nil
			}
			err = errors.New("empty completion")
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Printf("Warning: Completion attempt %d/%d failed: %v", attempt+1, maxRetries, err)
	}
	return "", fmt.Errorf("%w: %v", ErrCompletionFailed, lastErr)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
