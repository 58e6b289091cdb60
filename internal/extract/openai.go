package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"factures/internal/logger"
	"factures/internal/normalize"
	"factures/internal/ocr"
)

// OpenAIConfig configures the OpenAI engine.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string  // empty for api.openai.com
	Model       string  // gpt-4o-mini, gpt-4o
	Temperature float32 // 0 for deterministic output
	MaxRetries  int     // attempts per document, at least 1
	MaxTokens   int
}

// DefaultOpenAIConfig returns an OpenAIConfig with sensible defaults.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:      "gpt-4o-mini",
		MaxRetries: 3,
		MaxTokens:  2000,
	}
}

// image types the chat completion API accepts inline
var inlineImageTypes = map[string]bool{
	ocr.MimeJPEG: true,
	ocr.MimePNG:  true,
	ocr.MimeWEBP: true,
}

// OpenAIExtractor implements Extractor with an OpenAI chat completion.
type OpenAIExtractor struct {
	client *openai.Client
	ocr    ocr.OCRService
	config OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIExtractor creates the engine. ocrService reads documents that
// cannot be sent inline; it may be nil when only JPEG, PNG and WEBP files are
// processed.
func NewOpenAIExtractor(config OpenAIConfig, ocrService ocr.OCRService) (*OpenAIExtractor, error) {
	if config.APIKey == "" {
		return nil, WrapExtractionError("NewOpenAIExtractor", "", ErrMissingAPIKey, "")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return NewOpenAIExtractorWithClient(openai.NewClientWithConfig(clientConfig), config, ocrService), nil
}

// NewOpenAIExtractorWithClient creates the engine with an explicit client.
func NewOpenAIExtractorWithClient(client *openai.Client, config OpenAIConfig, ocrService ocr.OCRService) *OpenAIExtractor {
	defaults := DefaultOpenAIConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.MaxTokens < 1 {
		config.MaxTokens = defaults.MaxTokens
	}
	return &OpenAIExtractor{
		client: client,
		ocr:    ocrService,
		config: config,
		log:    logger.WithComponent("extract-openai"),
	}
}

// Model returns the chat model name.
func (e *OpenAIExtractor) Model() string {
	return e.config.Model
}

// Extract sends doc to the model and decodes its JSON answer. Transport
// errors and undecodable answers are retried up to MaxRetries times.
func (e *OpenAIExtractor) Extract(ctx context.Context, doc *Document) (*Result, error) {
	const op = "OpenAIExtractor.Extract"
	start := time.Now()

	msg, err := e.userMessage(ctx, doc)
	if err != nil {
		return nil, WrapExtractionError(op, doc.Path, err, "")
	}

	req := openai.ChatCompletionRequest{
		Model:       e.config.Model,
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			msg,
		},
	}

	e.log.Debug().
		Str("file", doc.Path).
		Str("mime_type", doc.MimeType).
		Str("model", e.config.Model).
		Float32("temperature", e.config.Temperature).
		Msg("Sending extraction request")

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, WrapExtractionError(op, doc.Path, err, "")
		}

		resp, err := e.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", e.config.MaxRetries).
				Msg("Chat completion failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			lastErr = ErrEmptyResponse
			e.log.Warn().Int("attempt", attempt).Msg("Empty model response, retrying")
			continue
		}

		content := resp.Choices[0].Message.Content
		fields, err := normalize.DecodeRawFieldMap(content)
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Model response is not a field map, retrying")
			continue
		}

		model := resp.Model
		if model == "" {
			model = e.config.Model
		}
		e.log.Debug().
			Str("file", doc.Path).
			Int("fields", len(fields)).
			Int("attempt", attempt).
			Int("prompt_tokens", resp.Usage.PromptTokens).
			Int("completion_tokens", resp.Usage.CompletionTokens).
			Msg("Extraction response decoded")

		return &Result{
			Fields:   fields,
			RawText:  content,
			Model:    model,
			Duration: time.Since(start),
		}, nil
	}

	if errors.Is(lastErr, normalize.ErrMalformedInput) || errors.Is(lastErr, ErrEmptyResponse) {
		return nil, WrapExtractionError(op, doc.Path, lastErr, fmt.Sprintf("after %d attempts", e.config.MaxRetries))
	}
	return nil, WrapExtractionError(op, doc.Path, fmt.Errorf("%w: %v", ErrProcessingFailed, lastErr),
		fmt.Sprintf("all %d attempts failed", e.config.MaxRetries))
}

// userMessage carries the prompt plus either the inline image or the OCR text.
func (e *OpenAIExtractor) userMessage(ctx context.Context, doc *Document) (openai.ChatCompletionMessage, error) {
	if inlineImageTypes[doc.MimeType] {
		return openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: ExtractionPrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(doc.MimeType, doc.Data),
						Detail: openai.ImageURLDetailHigh,
					},
				},
			},
		}, nil
	}

	if e.ocr == nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: %s needs OCR but no OCR service is configured", ErrUnsupportedFormat, doc.MimeType)
	}
	res, err := e.ocr.ProcessDocument(ctx, doc.Data, doc.MimeType)
	if err != nil {
		return openai.ChatCompletionMessage{}, err
	}
	e.log.Debug().
		Int("pages", res.PageCount).
		Int("text_length", len(res.Text)).
		Msg("OCR text ready")

	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: textPrompt(res.Text),
	}, nil
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
