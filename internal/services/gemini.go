package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"chat-backend/internal/models"
)

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func NewGeminiProvider(ctx context.Context, opts ProviderOptions) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiProvider{client: client, model: model, maxTokens: opts.MaxTokens}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Complete replays all but the last turn as chat history and sends the last
// one. System messages become the model's system instruction.
func (p *GeminiProvider) Complete(ctx context.Context, history []models.ChatMessage) (string, error) {
	system, turns := splitSystem(history)
	if len(turns) == 0 {
		return "", errEmptyHistory
	}

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	if p.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(p.maxTokens))
	}
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	cs := model.StartChat()
	for _, m := range turns[:len(turns)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
		log.Printf("WARNING: Gemini stopped due to %s", resp.Candidates[0].FinishReason)
	}

	return extractText(resp), nil
}

func geminiRole(role models.Role) string {
	if role == models.RoleAssistant {
		return "model"
	}
	return "user"
}

// extractText joins the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text
}
