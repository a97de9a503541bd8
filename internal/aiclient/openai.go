package aiclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tribixbite/imaginize/internal/ierrors"
)

const (
	defaultChatModel  = openai.ChatModelGPT4o
	defaultImageModel = openai.ImageModelDallE3
	defaultImageSize  = "1024x1024"
)

// OpenAIConfig configures the concrete openai-go/v3-backed client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // optional, for OpenAI-compatible gateways
	ChatModel  string
	ImageModel string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// OpenAIClient implements Client using the official OpenAI SDK.
type OpenAIClient struct {
	name       string
	chatModel  string
	imageModel string
	client     openai.Client
	tokensUsed int64
}

// NewOpenAIClient builds a Client from cfg.
func NewOpenAIClient(name string, cfg OpenAIConfig) *OpenAIClient {
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultImageModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		name:       name,
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
		client:     openai.NewClient(opts...),
	}
}

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) TokensUsed() int64 { return atomic.LoadInt64(&c.tokensUsed) }

// analyzeSchema is the structured-output shape the unified analyze call
// asks for: scenes and entities from a single completion.
type analyzeSchema struct {
	Scenes []struct {
		Description string   `json:"description"`
		Quote       string   `json:"quote"`
		PageRef     string   `json:"pageRef"`
		Entities    []string `json:"entities"`
	} `json:"scenes"`
	Entities []struct {
		Type        string   `json:"type"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Quotes      []string `json:"quotes"`
	} `json:"entities"`
}

func (c *OpenAIClient) AnalyzeChapterUnified(ctx context.Context, chapterText, elementContext string, numScenes int, cfg AnalyzeConfig) (AnalyzeResult, error) {
	model := cfg.Model
	if model == "" {
		model = c.chatModel
	}

	prompt := buildAnalyzePrompt(chapterText, elementContext, numScenes)
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You analyze a book chapter and return scenes and story elements as JSON."),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}
	if cfg.Temperature > 0 {
		params.Temperature = openai.Float(cfg.Temperature)
	}
	if cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return AnalyzeResult{}, classifyError("analyzeChapterUnified", err)
	}
	if len(resp.Choices) == 0 {
		return AnalyzeResult{}, ierrors.New(ierrors.KindBadModelResponse, "analyzeChapterUnified", fmt.Errorf("no choices in response"))
	}

	var parsed analyzeSchema
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		// One internal re-prompt asking the model to emit valid JSON only.
		content, err2 := c.reprompt(ctx, params, content)
		if err2 != nil {
			return AnalyzeResult{}, ierrors.New(ierrors.KindBadModelResponse, "analyzeChapterUnified", err)
		}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return AnalyzeResult{}, ierrors.New(ierrors.KindBadModelResponse, "analyzeChapterUnified", err)
		}
	}

	atomic.AddInt64(&c.tokensUsed, resp.Usage.TotalTokens)

	result := AnalyzeResult{TokensUsed: resp.Usage.TotalTokens}
	for _, s := range parsed.Scenes {
		result.Scenes = append(result.Scenes, Scene{
			Description: s.Description,
			Quote:       s.Quote,
			PageRef:     s.PageRef,
			Entities:    s.Entities,
		})
	}
	for _, e := range parsed.Entities {
		result.Entities = append(result.Entities, ExtractedEntity{
			Type:        e.Type,
			Name:        e.Name,
			Description: e.Description,
			Quotes:      e.Quotes,
		})
	}
	return result, nil
}

// reprompt asks the model to reformat its previous answer as strict JSON,
// the single allowed retry on unparseable output.
func (c *OpenAIClient) reprompt(ctx context.Context, prior openai.ChatCompletionNewParams, badContent string) (string, error) {
	params := prior
	params.Messages = append(params.Messages,
		openai.AssistantMessage(badContent),
		openai.UserMessage("That was not valid JSON matching the requested schema. Reply with only valid JSON."),
	)
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError("analyzeChapterUnified.reprompt", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("reprompt returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildAnalyzePrompt(chapterText, elementContext string, numScenes int) string {
	var b strings.Builder
	b.WriteString("Read the following book chapter and produce JSON with two fields: \"scenes\" ")
	fmt.Fprintf(&b, "(a target of %d illustration-worthy moments, each with description, quote, pageRef, entities) ", numScenes)
	b.WriteString("and \"entities\" (story characters, creatures, places, items, objects mentioned, each with type, name, description, quotes).\n\n")
	if elementContext != "" {
		b.WriteString("Known elements from earlier chapters:\n")
		b.WriteString(elementContext)
		b.WriteString("\n\n")
	}
	b.WriteString("Chapter text:\n")
	b.WriteString(chapterText)
	return b.String()
}

func (c *OpenAIClient) ResolveEntity(ctx context.Context, entityType, candidateName, existingName string, cfg AnalyzeConfig) (ResolveResult, error) {
	model := cfg.Model
	if model == "" {
		model = c.chatModel
	}

	prompt := fmt.Sprintf(
		"Are \"%s\" and \"%s\" (both of type %s) the same story %s? Reply with JSON {\"isMatch\":bool,\"confidence\":0..1,\"reasoning\":string}.",
		candidateName, existingName, entityType, entityType,
	)
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ResolveResult{}, classifyError("resolveEntity", err)
	}
	if len(resp.Choices) == 0 {
		return ResolveResult{}, ierrors.New(ierrors.KindBadModelResponse, "resolveEntity", fmt.Errorf("no choices in response"))
	}

	var parsed ResolveResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return ResolveResult{}, ierrors.New(ierrors.KindBadModelResponse, "resolveEntity", err)
	}
	atomic.AddInt64(&c.tokensUsed, resp.Usage.TotalTokens)
	return parsed, nil
}

func (c *OpenAIClient) EnrichDescription(ctx context.Context, baseDescription string, newDetails []string, cfg AnalyzeConfig) (string, error) {
	model := cfg.Model
	if model == "" {
		model = c.chatModel
	}

	prompt := fmt.Sprintf(
		"Rewrite the following base description and new details into one coherent paragraph, preserving every fact. Base: %q. New details: %q.",
		baseDescription, strings.Join(newDetails, "; "),
	)
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError("enrichDescription", err)
	}
	if len(resp.Choices) == 0 {
		return "", ierrors.New(ierrors.KindBadModelResponse, "enrichDescription", fmt.Errorf("no choices in response"))
	}
	atomic.AddInt64(&c.tokensUsed, resp.Usage.TotalTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string, size string, cfg AnalyzeConfig) ([]byte, error) {
	if size == "" {
		size = defaultImageSize
	}
	model := cfg.Model
	if model == "" {
		model = c.imageModel
	}

	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:          model,
		Prompt:         prompt,
		Size:           openai.ImageGenerateParamsSize(size),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		N:              openai.Int(1),
	})
	if err != nil {
		return nil, classifyError("generateImage", err)
	}
	if len(resp.Data) == 0 {
		return nil, ierrors.New(ierrors.KindBadModelResponse, "generateImage", fmt.Errorf("no image data in response"))
	}

	img := resp.Data[0]
	if img.B64JSON != "" {
		return base64.StdEncoding.DecodeString(img.B64JSON)
	}
	if img.URL != "" {
		return downloadImage(ctx, img.URL)
	}
	return nil, ierrors.New(ierrors.KindBadModelResponse, "generateImage", fmt.Errorf("response carried neither inline bytes nor a URL"))
}

// downloadImage fetches image bytes when the provider only returned a
// URL, so callers always receive inline bytes.
func downloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ierrors.New(ierrors.KindTransport, "generateImage.download", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, ierrors.New(ierrors.KindTransport, "generateImage.download", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ierrors.New(ierrors.KindTransport, "generateImage.download", fmt.Errorf("status %d", resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}
