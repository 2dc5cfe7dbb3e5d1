package ai

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"hillshield/internal/model"
)

// completer is the slice of the OpenAI-compatible client the collaborator
// needs; tests inject a fake.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client talks to the generative-AI collaborator. Every method returns a
// usable value on every failure path: the last good answer from the TTL
// cache when there is one, the canned fallback otherwise. Failures are
// logged for diagnostics and never surfaced to the caller as errors.
type Client struct {
	api     completer
	model   string
	timeout time.Duration
	cache   *gocache.Cache
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	var api completer
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		api = openai.NewClientWithConfig(clientCfg)
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	return &Client{
		api:     api,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		cache:   gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		log:     log,
	}
}

func cacheKey(kind, input string) string {
	sum := sha256.Sum256([]byte(input))
	return kind + ":" + hex.EncodeToString(sum[:8])
}

// complete runs one chat completion with the client timeout layered on the
// caller's context, so navigation away cancels the request.
func (c *Client) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("ai: collaborator not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("ai: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// Prioritize categorizes an SOS description as low/medium/high/critical.
func (c *Client) Prioritize(ctx context.Context, details string) TriageResult {
	out, err := c.complete(ctx,
		"You triage emergency SOS messages for a disaster-response app. Reply with JSON {\"priority\":\"low|medium|high|critical\",\"reasoning\":\"...\"}; the reasoning is a brief justification in Bangla.",
		details, true)
	if err != nil {
		c.log.Warn("ai: prioritize failed", zap.Error(err))
		return fallbackTriage()
	}

	var parsed struct {
		Priority  string `json:"priority"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		c.log.Warn("ai: prioritize bad response", zap.Error(err))
		return fallbackTriage()
	}
	priority := model.AlertPriority(parsed.Priority)
	switch priority {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical:
	default:
		c.log.Warn("ai: prioritize unknown priority", zap.String("priority", parsed.Priority))
		return fallbackTriage()
	}
	return TriageResult{Priority: priority, Reasoning: parsed.Reasoning}
}

// AdviseSymptoms returns symptom-checker guidance in Bangla. Good answers
// are cached so the last one is served while offline.
func (c *Client) AdviseSymptoms(ctx context.Context, symptoms string) AdviceResult {
	key := cacheKey("advice", symptoms)
	out, err := c.complete(ctx,
		"আপনি 'ডাক্তার আছে? ভার্চুয়াল কনসালট্যান্ট'। শুভেচ্ছা বিনিময় এড়িয়ে সরাসরি মূল আলোচনায় প্রবেশ করুন। লক্ষণ বিশ্লেষণ করে মার্জিত ও সহমর্মী ভাষায় বৈজ্ঞানিক পরামর্শ দিন।",
		"The user reports symptoms: \""+symptoms+"\". Provide assessment, immediate actions, warning signs and risk category as clear bulleted Bangla.",
		false)
	if err != nil {
		c.log.Warn("ai: advice failed", zap.Error(err))
		if cached, ok := c.cache.Get(key); ok {
			res := cached.(AdviceResult)
			res.Fallback = true
			return res
		}
		return fallbackAdvice()
	}
	res := AdviceResult{Text: out}
	c.cache.SetDefault(key, res)
	return res
}

// MentalSupport returns calming trauma-informed guidance.
func (c *Client) MentalSupport(ctx context.Context, input string) AdviceResult {
	out, err := c.complete(ctx,
		"আপনি একজন ট্রমা-ইনফর্মড কাউন্সিলর। দুর্যোগের সময় মানুষের মানসিক চাপ কমাতে সাহায্য করুন। আপনার ভাষা হবে অত্যন্ত শান্ত এবং আশ্বাসদায়ক।",
		"User is distressed: \""+input+"\". Provide calming, empathetic support in Bangla. Focus on stress reduction.",
		false)
	if err != nil {
		c.log.Warn("ai: mental support failed", zap.Error(err))
		return fallbackMentalSupport()
	}
	return AdviceResult{Text: out}
}

// InterpretVoiceCommand maps a transcript to one of the app's fixed
// navigation/query actions.
func (c *Client) InterpretVoiceCommand(ctx context.Context, transcript string) VoiceIntent {
	out, err := c.complete(ctx,
		"Classify a Bangla or English voice command for a disaster-response app. Reply with JSON {\"action\":\"NAVIGATE_MAP|NAVIGATE_CHAT|NAVIGATE_DOCTOR|NAVIGATE_FIRST_AID|NAVIGATE_PROFILE|SCAN_MEDICINE|TRIGGER_SOS|MEDICAL_QUERY|FIRST_AID_QUERY|UNKNOWN\",\"params\":\"optional free text\"}.",
		transcript, true)
	if err != nil {
		c.log.Warn("ai: voice intent failed", zap.Error(err))
		return fallbackVoiceIntent()
	}

	var parsed struct {
		Action string `json:"action"`
		Params string `json:"params"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		c.log.Warn("ai: voice intent bad response", zap.Error(err))
		return fallbackVoiceIntent()
	}
	action := VoiceAction(strings.ToUpper(strings.TrimSpace(parsed.Action)))
	if !action.Valid() {
		return fallbackVoiceIntent()
	}
	return VoiceIntent{Action: action, Params: parsed.Params}
}

// IdentifyMedicine names a medicine from a photo and returns usage and
// risk guidance.
func (c *Client) IdentifyMedicine(ctx context.Context, image []byte, mimeType string) MedicineResult {
	if c.api == nil {
		return fallbackMedicine()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Identify the medicine in the photo. Reply with JSON {\"name\":...,\"generic\":...,\"usage\":...,\"dosage\":...,\"warnings\":...,\"riskLevel\":1-4,\"priorityScore\":0-10,\"disclaimer\":...}; free-text fields in Bangla.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "এই ওষুধটি শনাক্ত করুন।"},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil || len(resp.Choices) == 0 {
		c.log.Warn("ai: identify medicine failed", zap.Error(err))
		return fallbackMedicine()
	}

	var res MedicineResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &res); err != nil {
		c.log.Warn("ai: identify medicine bad response", zap.Error(err))
		return fallbackMedicine()
	}
	if res.RiskLevel < 1 || res.RiskLevel > 4 || res.PriorityScore < 0 || res.PriorityScore > 10 {
		return fallbackMedicine()
	}
	return res
}

// PredictReliability estimates mesh stability for the chat header. Cached,
// so the score survives short collaborator outages.
func (c *Client) PredictReliability(ctx context.Context) ReliabilityResult {
	const key = "reliability"
	out, err := c.complete(ctx,
		"Estimate a mesh-network reliability score for a rural hill region. Reply with JSON {\"score\":0-100,\"tip\":\"one short optimization tip in Bangla\"}.",
		"Predict mesh reliability score.", true)
	if err != nil {
		c.log.Warn("ai: reliability failed", zap.Error(err))
		if cached, ok := c.cache.Get(key); ok {
			res := cached.(ReliabilityResult)
			res.Fallback = true
			return res
		}
		return fallbackReliability()
	}

	var parsed struct {
		Score int    `json:"score"`
		Tip   string `json:"tip"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil || parsed.Score < 0 || parsed.Score > 100 {
		c.log.Warn("ai: reliability bad response", zap.Error(err))
		return fallbackReliability()
	}
	res := ReliabilityResult{Score: parsed.Score, Tip: parsed.Tip}
	c.cache.SetDefault(key, res)
	return res
}
