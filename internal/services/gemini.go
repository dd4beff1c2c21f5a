package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"geminichat-backend/internal/transcript"
)

type GeminiOptions struct {
	APIKey         string
	Model          string
	Temperature    float32
	ConcurrentReqs int
	RateWait       time.Duration
}

// GeminiService implements transcript.Completer on the Gemini chat API.
// Each call starts a fresh chat seeded with the projected history.
type GeminiService struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	rateChan  chan struct{} // Token bucket
	rateWait  time.Duration
}

func NewGeminiService(ctx context.Context, opts GeminiOptions) (*GeminiService, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini API key is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(opts.Temperature)

	if opts.ConcurrentReqs <= 0 {
		opts.ConcurrentReqs = 1
	}
	if opts.RateWait <= 0 {
		opts.RateWait = time.Minute
	}

	return &GeminiService{
		client:    client,
		model:     model,
		modelName: opts.Model,
		rateChan:  newRateChan(opts.ConcurrentReqs),
		rateWait:  opts.RateWait,
	}, nil
}

func newRateChan(n int) chan struct{} {
	ch := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		ch <- struct{}{}
	}
	return ch
}

func (s *GeminiService) Close() {
	s.client.Close()
}

func (s *GeminiService) ModelName() string {
	return s.modelName
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.rateWait):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Complete sends message on top of history and returns the reply text.
func (s *GeminiService) Complete(ctx context.Context, history []transcript.HistoryEntry, message string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", &transcript.ServiceError{Message: err.Error(), Err: err}
	}
	defer s.releaseRate()

	cs := s.model.StartChat()
	cs.History = toContents(history)

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", classifyError(err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Warn().Int("candidate", i).Str("finish_reason", cand.FinishReason.String()).Msg("gemini stopped early")
		}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", &transcript.ServiceError{Message: "Gemini returned an empty response"}
	}

	log.Debug().
		Str("model", s.modelName).
		Int("history", len(history)).
		Dur("elapsed", time.Since(start)).
		Msg("gemini completion")

	return text, nil
}

func toContents(history []transcript.HistoryEntry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, h := range history {
		contents = append(contents, &genai.Content{
			Role:  h.APIRole,
			Parts: []genai.Part{genai.Text(h.Text)},
		})
	}
	return contents
}

// classifyError turns SDK failures into transcript.ServiceError so they are
// reported as API errors rather than unexpected ones.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &transcript.ServiceError{Message: fmt.Sprintf("%d %s", apiErr.Code, msg), Err: err}
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &transcript.ServiceError{Message: blocked.Error(), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &transcript.ServiceError{Message: "timeout", Err: err}
	}

	return err
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
