// Package translate moves item text into English before embedding, which
// noticeably improves cross-lingual similarity. Translation is best effort:
// every failure path returns the original text untranslated.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
)

// Service translates to English with the free Google Translate endpoint,
// falling back to OpenAI chat when a key is configured.
type Service struct {
	httpClient   *http.Client
	openaiClient *openai.Client // nil without an API key
}

// New builds a Service. openaiKey may be empty.
func New(openaiKey string) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	if openaiKey != "" {
		s.openaiClient = openai.NewClient(openaiKey)
	}
	return s
}

// ToEnglish returns text translated to English, or the input itself when it
// already looks English or nothing works.
func (s *Service) ToEnglish(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || looksEnglish(text) {
		return text, nil
	}

	if result, err := s.googleTranslate(ctx, text); err == nil && result != "" {
		return result, nil
	} else if err != nil {
		slog.Debug("google translate failed", "error", err)
	}

	if s.openaiClient != nil {
		if result, err := s.openaiTranslate(ctx, text); err == nil && result != "" {
			return result, nil
		} else if err != nil {
			slog.Debug("openai translate failed", "error", err)
		}
	}

	return text, nil
}

// looksEnglish is a cheap filter: text made of ASCII letters only is not
// worth a translation round trip.
func looksEnglish(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// googleTranslate uses the public gtx endpoint (no key required).
func (s *Service) googleTranslate(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", "en")
	params.Set("dt", "t")
	params.Set("q", text)

	fullURL := "https://translate.googleapis.com/translate_a/single?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}
	return ParseGoogleResponse(body)
}

// ParseGoogleResponse extracts the translated text from the nested-array
// response the gtx endpoint returns.
func ParseGoogleResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response from Google Translate")
	}

	translations, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, translation := range translations {
		if arr, ok := translation.([]interface{}); ok && len(arr) > 0 {
			if translated, ok := arr[0].(string); ok {
				result.WriteString(translated)
			}
		}
	}
	return result.String(), nil
}

func (s *Service) openaiTranslate(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Translate the following text to English.
Translate only the text itself, without additional comments.

Text to translate:
%s`, text)

	callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, err := s.openaiClient.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: 1000,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
