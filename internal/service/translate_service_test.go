package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"strata/backend/internal/model"
	"strata/backend/internal/service/ai"
)

type stubHistoryRepo struct {
	saved   []model.AIHistoryEntry
	saveErr error
}

func (r *stubHistoryRepo) Save(ctx context.Context, prompt, filter, explanation string) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, model.AIHistoryEntry{Prompt: prompt, Filter: filter, Explanation: explanation})
	return nil
}

func (r *stubHistoryRepo) List(ctx context.Context) ([]model.AIHistoryEntry, error) {
	return r.saved, nil
}

func (r *stubHistoryRepo) DeleteAll(ctx context.Context) (int64, error) {
	n := int64(len(r.saved))
	r.saved = nil
	return n, nil
}

type stubSettingsRepo struct {
	values map[string]string
}

func (r *stubSettingsRepo) Get(ctx context.Context, key string) (*model.Setting, error) {
	val, ok := r.values[key]
	if !ok {
		return nil, nil
	}
	return &model.Setting{Key: key, Value: val}, nil
}

func (r *stubSettingsRepo) Set(ctx context.Context, key, value string) error {
	r.values[key] = value
	return nil
}

func (r *stubSettingsRepo) GetByPrefix(ctx context.Context, prefix string) ([]model.Setting, error) {
	var settings []model.Setting
	for k, v := range r.values {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			settings = append(settings, model.Setting{Key: k, Value: v})
		}
	}
	return settings, nil
}

func (r *stubSettingsRepo) Delete(ctx context.Context, key string) error {
	delete(r.values, key)
	return nil
}

type stubProvider struct {
	response string
	err      error
}

func (p *stubProvider) Test(ctx context.Context) (string, error) { return "ok", nil }
func (p *stubProvider) Name() string                             { return "stub" }
func (p *stubProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return p.response, p.err
}

func newTestTranslateService(provider ai.Provider, providerErr error) (*translateService, *stubHistoryRepo, *stubSettingsRepo) {
	history := &stubHistoryRepo{}
	settings := &stubSettingsRepo{values: map[string]string{
		keyAIProvider: ai.ProviderOpenAI,
		keyAIAPIKey:   "sk-test",
		keyAIModel:    "gpt-4o",
	}}
	svc := NewTranslateService(history, settings, ai.NewRateLimiter(100)).(*translateService)
	svc.newProvider = func(ai.Config) (ai.Provider, error) {
		return provider, providerErr
	}
	return svc, history, settings
}

func TestTranslate_StructuralClause(t *testing.T) {
	provider := &stubProvider{response: `{"query": "kind: \"osdu:wks:Well:1.0.0\"", "explanation": "All wells."}`}
	svc, history, _ := newTestTranslateService(provider, nil)

	result, err := svc.Translate(context.Background(), "show me all wells")
	require.NoError(t, err)
	require.Equal(t, `kind: "osdu:wks:Well:1.0.0"`, result.Filter)
	require.Equal(t, "All wells.", result.Explanation)
	require.Equal(t, "kind", result.StructuralKey)
	require.Equal(t, "osdu:wks:Well:1.0.0", result.StructuralValue)
	require.False(t, result.Ambiguous)

	require.Len(t, history.saved, 1)
	require.Equal(t, "show me all wells", history.saved[0].Prompt)
}

func TestTranslate_AmbiguousClause(t *testing.T) {
	provider := &stubProvider{response: `{"query": "kind:well operator:equinor", "explanation": ""}`}
	svc, _, _ := newTestTranslateService(provider, nil)

	result, err := svc.Translate(context.Background(), "equinor wells")
	require.NoError(t, err)
	require.Equal(t, "kind", result.StructuralKey)
	require.True(t, result.Ambiguous)
}

func TestTranslate_FreeTextFilter(t *testing.T) {
	provider := &stubProvider{response: `{"query": "north sea", "explanation": "Free text."}`}
	svc, _, _ := newTestTranslateService(provider, nil)

	result, err := svc.Translate(context.Background(), "anything in the north sea")
	require.NoError(t, err)
	require.Equal(t, "north sea", result.Filter)
	require.Empty(t, result.StructuralKey)
	require.False(t, result.Ambiguous)
}

func TestTranslate_EmptyPrompt(t *testing.T) {
	svc, _, _ := newTestTranslateService(&stubProvider{}, nil)

	_, err := svc.Translate(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestTranslate_MissingAPIKey(t *testing.T) {
	svc, history, settings := newTestTranslateService(&stubProvider{}, nil)
	delete(settings.values, keyAIAPIKey)

	_, err := svc.Translate(context.Background(), "wells")
	require.Error(t, err)
	require.Empty(t, history.saved)

	// Failed attempts land in the transient conversation log only.
	turns := svc.Conversation()
	require.Len(t, turns, 1)
	require.Equal(t, "error", turns[0].Role)
	require.Equal(t, "wells", turns[0].Prompt)
}

func TestTranslate_ProviderFailureNotPersisted(t *testing.T) {
	provider := &stubProvider{err: errors.New("rate limited by upstream")}
	svc, history, _ := newTestTranslateService(provider, nil)

	_, err := svc.Translate(context.Background(), "wells")
	require.Error(t, err)
	require.Empty(t, history.saved)

	turns := svc.Conversation()
	require.Len(t, turns, 1)
	require.Contains(t, turns[0].Detail, "rate limited")
}

func TestTranslate_ConversationNewestFirst(t *testing.T) {
	provider := &stubProvider{response: `{"query": "a", "explanation": ""}`}
	svc, _, _ := newTestTranslateService(provider, nil)

	_, err := svc.Translate(context.Background(), "first")
	require.NoError(t, err)
	_, err = svc.Translate(context.Background(), "second")
	require.NoError(t, err)

	turns := svc.Conversation()
	require.Len(t, turns, 2)
	require.Equal(t, "second", turns[0].Prompt)
	require.Equal(t, "first", turns[1].Prompt)
}

func TestClearHistory(t *testing.T) {
	provider := &stubProvider{response: `{"query": "a", "explanation": ""}`}
	svc, _, _ := newTestTranslateService(provider, nil)

	_, err := svc.Translate(context.Background(), "first")
	require.NoError(t, err)

	deleted, err := svc.ClearHistory(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	entries, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}
