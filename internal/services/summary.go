package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/internal/models"
	"github.com/huangang/studiodesk/backend/pkg/logger"
	"github.com/huangang/studiodesk/backend/pkg/response"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

// LLM produces a completion for a single user prompt.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewLLM returns the client for cfg.Provider, or nil when no credentials
// are configured. Ollama needs no key.
func NewLLM(cfg *config.AIConfig) LLM {
	if cfg == nil {
		return nil
	}
	if cfg.APIKey == "" && cfg.Provider != "ollama" {
		return nil
	}
	return &providerLLM{cfg: *cfg}
}

type providerLLM struct {
	cfg config.AIConfig
}

func (p *providerLLM) Complete(ctx context.Context, prompt string) (string, error) {
	switch p.cfg.Provider {
	case "anthropic":
		return p.callAnthropic(ctx, prompt)
	case "ollama":
		return p.callOllama(ctx, prompt)
	case "gemini":
		return p.callGemini(ctx, prompt)
	case "azure":
		return p.callOpenAI(ctx, openai.DefaultAzureConfig(p.cfg.APIKey, p.cfg.BaseURL), prompt)
	default:
		clientConfig := openai.DefaultConfig(p.cfg.APIKey)
		if p.cfg.BaseURL != "" {
			clientConfig.BaseURL = p.cfg.BaseURL
		}
		return p.callOpenAI(ctx, clientConfig, prompt)
	}
}

func (p *providerLLM) temperature() float32 {
	if p.cfg.Temperature > 0 {
		return float32(p.cfg.Temperature)
	}
	return 0.7
}

func (p *providerLLM) callOpenAI(ctx context.Context, clientConfig openai.ClientConfig, prompt string) (string, error) {
	client := openai.NewClientWithConfig(clientConfig)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model, // deployment name on Azure
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.temperature(),
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.cfg.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", p.cfg.Provider)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *providerLLM) callAnthropic(ctx context.Context, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(p.cfg.APIKey)}
	if p.cfg.BaseURL != "" && !strings.Contains(p.cfg.BaseURL, "openai.com") {
		opts = append(opts, option.WithBaseURL(p.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := int64(p.cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 512
	}
	model := p.cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt") {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

func (p *providerLLM) callOllama(ctx context.Context, prompt string) (string, error) {
	baseURL := p.cfg.BaseURL
	if baseURL == "" || strings.Contains(baseURL, "openai.com") {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := p.cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt") {
		model = "llama3"
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Options:  map[string]interface{}{"temperature": p.temperature()},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	return content.String(), nil
}

func (p *providerLLM) callGemini(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.cfg.APIKey})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := p.cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt") {
		model = "gemini-2.5-flash"
	}
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return resp.Text(), nil
}

// StatusFacts are the project numbers a summary is written from.
type StatusFacts struct {
	ClientName    string   `json:"client_name"`
	ApprovedItems int      `json:"approved_items"`
	TotalItems    int      `json:"total_items"`
	PendingTitles []string `json:"pending_titles"`
	SketchCount   int64    `json:"sketch_count"`
	Progress      int      `json:"progress"`
}

type StatusSummary struct {
	Summary string      `json:"summary"`
	Facts   StatusFacts `json:"facts"`
}

type StatusSummaryRequest struct {
	ClientName string `json:"client_name" binding:"max=100"`
}

type StatusSummaryService struct {
	db      *gorm.DB
	guard   *Guard
	llm     LLM
	timeout time.Duration
}

func NewStatusSummaryService(db *gorm.DB, guard *Guard, llm LLM) *StatusSummaryService {
	return &StatusSummaryService{db: db, guard: guard, llm: llm, timeout: 60 * time.Second}
}

// Summarize writes a one-paragraph client update for a project.
func (s *StatusSummaryService) Summarize(ctx context.Context, sess *Session, projectID uint, clientName string) (*StatusSummary, error) {
	if _, err := s.guard.Authorize(ctx, sess, projectID, TierMember); err != nil {
		return nil, err
	}
	if s.llm == nil {
		return nil, response.NewUpstreamFailure("AI provider is not configured")
	}

	facts, err := s.collectFacts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	facts.ClientName = strings.TrimSpace(clientName)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Complete(ctx, BuildStatusPrompt(facts))
	if err != nil {
		logger.Warn().Err(err).Uint("project_id", projectID).Msg("status summary failed")
		return nil, response.NewUpstreamFailure("AI provider request failed")
	}
	return &StatusSummary{Summary: strings.TrimSpace(text), Facts: *facts}, nil
}

func (s *StatusSummaryService) collectFacts(ctx context.Context, projectID uint) (*StatusFacts, error) {
	db := s.db.WithContext(ctx)

	var project models.Project
	if err := db.Select("id", "progress").First(&project, projectID).Error; err != nil {
		return nil, storeError(err)
	}

	var items []models.BudgetItem
	if err := db.Where("project_id = ?", projectID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, storeError(err)
	}

	facts := &StatusFacts{TotalItems: len(items), Progress: project.Progress, PendingTitles: []string{}}
	for _, item := range items {
		switch item.Status {
		case models.BudgetStatusApproved:
			facts.ApprovedItems++
		case models.BudgetStatusPending:
			facts.PendingTitles = append(facts.PendingTitles, item.Title)
		}
	}

	if err := db.Model(&models.Sketch{}).Where("project_id = ?", projectID).Count(&facts.SketchCount).Error; err != nil {
		return nil, storeError(err)
	}
	return facts, nil
}

// BuildStatusPrompt renders the instruction sent to the model.
func BuildStatusPrompt(f *StatusFacts) string {
	client := f.ClientName
	if client == "" {
		client = "Client"
	}
	pending := "None"
	if len(f.PendingTitles) > 0 {
		quoted := make([]string, len(f.PendingTitles))
		for i, t := range f.PendingTitles {
			quoted[i] = "'" + t + "'"
		}
		pending = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	b.WriteString("You are an executive project status assistant for an interior design portal.\n")
	b.WriteString("Write exactly ONE paragraph of no more than 3-4 sentences.\n")
	fmt.Fprintf(&b, "Address the client as: \"Hi %s,\"\n", client)
	b.WriteString("Summarize the progress professionally based on this data:\n")
	fmt.Fprintf(&b, "- Approved budget items: %d out of %d total items.\n", f.ApprovedItems, f.TotalItems)
	fmt.Fprintf(&b, "- Pending items awaiting the client's feedback: %s.\n", pending)
	fmt.Fprintf(&b, "- Total sketches uploaded: %d.\n", f.SketchCount)
	fmt.Fprintf(&b, "- Overall progress: %d%%.\n", f.Progress)
	b.WriteString("Do not add greetings or closings beyond the paragraph itself.\n")
	return b.String()
}
