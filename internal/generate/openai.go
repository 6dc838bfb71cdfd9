package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const generatePrompt = `You write short, dry satirical posts about congressional spending for a
watchdog account. Keep it under 270 characters, cite the dollar figure when
one is available, and end with #PorkReport.

Topic: %s
Bill: %s
Research notes:
%s

If the topic does not lend itself to a factual, non-partisan post, respond
with exactly SKIP.`

const leanPrompt = `Rate the partisan lean of the following text on a scale
from -1.0 (strongly left) through 0.0 (neutral) to 1.0 (strongly right).
Respond with only the number.

Text: %s`

// OpenAIGenerator talks to an OpenAI-compatible chat completion API.
type OpenAIGenerator struct {
	Model   string
	BaseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAIGenerator creates a generator client. The API key is read from
// the named environment variable.
func NewOpenAIGenerator(model, baseURL, apiKeyEnv string) *OpenAIGenerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIGenerator{
		Model:   model,
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  os.Getenv(apiKeyEnv),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIGenerator) IsConfigured() bool { return o.apiKey != "" }

// Generate implements Generator.
func (o *OpenAIGenerator) Generate(ctx context.Context, pc PromptContext) (string, bool, error) {
	prompt := fmt.Sprintf(generatePrompt, pc.Topic, pc.BillRef, strings.Join(pc.Research, "\n"))
	text, err := o.complete(ctx, prompt, 256, 0.7)
	if err != nil {
		return "", false, err
	}
	if text == "SKIP" {
		return "", true, nil
	}
	return text, false, nil
}

// Lean implements safety's partisan classifier: it asks the model for a
// single lean value in [-1, 1].
func (o *OpenAIGenerator) Lean(ctx context.Context, text string) (float64, error) {
	reply, err := o.complete(ctx, fmt.Sprintf(leanPrompt, text), 8, 0)
	if err != nil {
		return 0, err
	}
	lean, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable lean %q: %w", reply, err)
	}
	return lean, nil
}

// SubmitBatch implements BatchGenerator against the OpenAI batch API: the
// requests are uploaded as a JSONL file, then a 24h batch is created over it.
func (o *OpenAIGenerator) SubmitBatch(ctx context.Context, requests []PromptContext) (string, error) {
	var jsonl bytes.Buffer
	enc := json.NewEncoder(&jsonl)
	for i, pc := range requests {
		prompt := fmt.Sprintf(generatePrompt, pc.Topic, pc.BillRef, strings.Join(pc.Research, "\n"))
		line := map[string]any{
			"custom_id": fmt.Sprintf("req-%d", i),
			"method":    "POST",
			"url":       "/v1/chat/completions",
			"body": map[string]any{
				"model": o.Model,
				"messages": []map[string]string{
					{"role": "user", "content": prompt},
				},
				"max_tokens":  256,
				"temperature": 0.7,
			},
		}
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("encoding batch request %d: %w", i, err)
		}
	}

	fileID, err := o.uploadBatchFile(ctx, jsonl.Bytes())
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]any{
		"input_file_id":     fileID,
		"endpoint":          "/v1/chat/completions",
		"completion_window": "24h",
	})
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := o.postJSON(ctx, "/batches", body, &created); err != nil {
		return "", fmt.Errorf("creating batch: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("batch API returned no batch id")
	}
	return created.ID, nil
}

// PollBatch implements BatchGenerator. Terminal failure states (failed,
// expired, cancelled) report done with failed=true.
func (o *OpenAIGenerator) PollBatch(ctx context.Context, batchID string) (bool, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", o.BaseURL+"/batches/"+batchID, nil)
	if err != nil {
		return false, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return false, false, fmt.Errorf("batch API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return false, false, fmt.Errorf("batch API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, false, fmt.Errorf("decoding batch status: %w", err)
	}

	switch status.Status {
	case "completed":
		return true, false, nil
	case "failed", "expired", "cancelled":
		return true, true, nil
	default:
		return false, false, nil
	}
}

func (o *OpenAIGenerator) uploadBatchFile(ctx context.Context, jsonl []byte) (string, error) {
	var form bytes.Buffer
	w := multipart.NewWriter(&form)
	if err := w.WriteField("purpose", "batch"); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("file", "requests.jsonl")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(jsonl); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/files", &form)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("file upload error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("file upload returned %d: %s", resp.StatusCode, string(respBody))
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("file upload returned no file id")
	}
	return uploaded.ID, nil
}

func (o *OpenAIGenerator) postJSON(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("batch API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("batch API returned %d: %s", resp.StatusCode, string(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (o *OpenAIGenerator) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generator API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generator API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in generator response")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
