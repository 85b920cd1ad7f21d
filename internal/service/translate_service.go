package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"strata/backend/internal/logger"
	"strata/backend/internal/model"
	"strata/backend/internal/query"
	"strata/backend/internal/repository"
	"strata/backend/internal/service/ai"
)

// TranslateResult is the outcome of a prompt-to-query translation.
type TranslateResult struct {
	Filter      string
	Explanation string
	// StructuralKey/StructuralValue hold a key-scoped clause hoisted
	// out of Filter when the translator encoded one, so the UI can
	// pre-select the matching facet. Ambiguous marks a multi-clause
	// filter where the hoisted clause is only the first match.
	StructuralKey   string
	StructuralValue string
	Ambiguous       bool
}

// ConversationTurn is a transient record of one translation attempt,
// including failed ones. Held in memory only; history persists
// successful turns.
type ConversationTurn struct {
	Prompt    string
	Role      string // "user" or "error"
	Detail    string
	Timestamp time.Time
}

// TranslateService converts natural-language prompts into structured
// metadata queries and maintains the translation history.
type TranslateService interface {
	Translate(ctx context.Context, prompt string) (*TranslateResult, error)
	History(ctx context.Context) ([]model.AIHistoryEntry, error)
	ClearHistory(ctx context.Context) (int64, error)
	// Conversation returns the transient log of the current session,
	// newest first.
	Conversation() []ConversationTurn
}

type translateService struct {
	historyRepo  repository.AIHistoryRepository
	settingsRepo repository.SettingsRepository
	rateLimiter  *ai.RateLimiter

	// newProvider is swappable for tests.
	newProvider func(ai.Config) (ai.Provider, error)

	mu           sync.Mutex
	conversation []ConversationTurn
}

// NewTranslateService creates a new translation service.
func NewTranslateService(
	historyRepo repository.AIHistoryRepository,
	settingsRepo repository.SettingsRepository,
	rateLimiter *ai.RateLimiter,
) TranslateService {
	return &translateService{
		historyRepo:  historyRepo,
		settingsRepo: settingsRepo,
		rateLimiter:  rateLimiter,
		newProvider:  ai.NewProvider,
	}
}

func (s *translateService) Translate(ctx context.Context, prompt string) (*TranslateResult, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", ErrInvalid)
	}

	cfg, err := s.getAIConfig(ctx)
	if err != nil {
		s.recordFailure(prompt, err)
		return nil, err
	}

	provider, err := s.newProvider(cfg)
	if err != nil {
		logger.Warn("ai provider create failed", "module", "service", "action", "fetch", "resource", "ai", "result", "failed", "provider", cfg.Provider, "model", cfg.Model, "error", err)
		s.recordFailure(prompt, err)
		return nil, fmt.Errorf("create provider: %w", err)
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		logger.Warn("ai rate limit wait failed", "module", "service", "action", "fetch", "resource", "ai", "result", "failed", "error", err)
		s.recordFailure(prompt, err)
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	systemPrompt := ai.GetQueryTranslatePrompt(s.getString(ctx, keyAIPlatform), s.getString(ctx, keyAIPartition))
	raw, err := provider.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		logger.Warn("ai translate failed", "module", "service", "action", "fetch", "resource", "ai", "result", "failed", "provider", cfg.Provider, "model", cfg.Model, "error", err)
		s.recordFailure(prompt, err)
		return nil, fmt.Errorf("translate: %w", err)
	}

	translation := ai.ParseTranslation(raw)
	result := &TranslateResult{
		Filter:      translation.Query,
		Explanation: translation.Explanation,
	}

	if clause, outcome := query.ExtractClause(translation.Query); outcome != query.NoMatch {
		result.StructuralKey = clause.Key
		result.StructuralValue = clause.Value
		result.Ambiguous = outcome == query.Ambiguous
	}

	// History records successful turns only.
	if err := s.historyRepo.Save(ctx, prompt, result.Filter, result.Explanation); err != nil {
		logger.Warn("ai history save failed", "module", "service", "action", "save", "resource", "ai", "result", "failed", "error", err)
	}

	s.mu.Lock()
	s.conversation = append([]ConversationTurn{{
		Prompt:    prompt,
		Role:      "user",
		Timestamp: time.Now().UTC(),
	}}, s.conversation...)
	s.mu.Unlock()

	logger.Info("ai translate ok", "module", "service", "action", "fetch", "resource", "ai", "result", "ok", "provider", cfg.Provider, "model", cfg.Model, "ambiguous", result.Ambiguous)
	return result, nil
}

func (s *translateService) History(ctx context.Context) ([]model.AIHistoryEntry, error) {
	return s.historyRepo.List(ctx)
}

func (s *translateService) ClearHistory(ctx context.Context) (int64, error) {
	deleted, err := s.historyRepo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	logger.Info("ai history cleared", "module", "service", "action", "clear", "resource", "ai", "result", "ok", "deleted", deleted)
	return deleted, nil
}

func (s *translateService) Conversation() []ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]ConversationTurn, len(s.conversation))
	copy(turns, s.conversation)
	return turns
}

func (s *translateService) recordFailure(prompt string, cause error) {
	s.mu.Lock()
	s.conversation = append([]ConversationTurn{{
		Prompt:    prompt,
		Role:      "error",
		Detail:    truncateDetail(cause.Error()),
		Timestamp: time.Now().UTC(),
	}}, s.conversation...)
	s.mu.Unlock()
}

func (s *translateService) getAIConfig(ctx context.Context) (ai.Config, error) {
	var cfg ai.Config

	// Batch fetch all ai.* settings in a single query
	settings, err := s.settingsRepo.GetByPrefix(ctx, "ai.")
	if err != nil {
		return cfg, fmt.Errorf("get AI settings: %w", err)
	}

	settingsMap := make(map[string]string, len(settings))
	for _, setting := range settings {
		settingsMap[setting.Key] = setting.Value
	}

	cfg.Provider = settingsMap[keyAIProvider]
	if cfg.Provider == "" {
		cfg.Provider = ai.ProviderOpenAI
	}

	cfg.APIKey = settingsMap[keyAIAPIKey]
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("AI API key is not configured")
	}

	cfg.BaseURL = settingsMap[keyAIBaseURL]

	cfg.Model = settingsMap[keyAIModel]
	if cfg.Model == "" {
		return cfg, fmt.Errorf("AI model is not configured")
	}

	if settingsMap[keyAIThinking] == "true" {
		cfg.Thinking = true
	}

	if val := settingsMap[keyAIThinkingBudget]; val != "" {
		if budget, err := strconv.Atoi(val); err == nil {
			cfg.ThinkingBudget = budget
		}
	}

	cfg.ReasoningEffort = settingsMap[keyAIReasoningEffort]

	return cfg, nil
}

func (s *translateService) getString(ctx context.Context, key string) string {
	setting, err := s.settingsRepo.Get(ctx, key)
	if err != nil || setting == nil {
		return ""
	}
	return setting.Value
}
