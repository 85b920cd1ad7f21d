package ai_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"strata/backend/internal/service/ai"
)

func TestGetQueryTranslatePrompt_ContainsContext(t *testing.T) {
	prompt := ai.GetQueryTranslatePrompt("osdu", "opendes")
	require.Contains(t, prompt, "<platform>osdu</platform>")
	require.Contains(t, prompt, "<data_partition>opendes</data_partition>")
	require.Contains(t, prompt, "Lucene")
}

func TestGetQueryTranslatePrompt_EmptyContext(t *testing.T) {
	prompt := ai.GetQueryTranslatePrompt("", "")
	require.NotContains(t, prompt, "<platform>")
	require.NotContains(t, prompt, "<data_partition>")
	require.Contains(t, prompt, `{"query": "...", "explanation": "..."}`)
}

func TestParseTranslation_JSON(t *testing.T) {
	out := ai.ParseTranslation(`{"query": "kind: \"osdu:wks:Well:1.0.0\"", "explanation": "All wells."}`)
	require.Equal(t, `kind: "osdu:wks:Well:1.0.0"`, out.Query)
	require.Equal(t, "All wells.", out.Explanation)
}

func TestParseTranslation_CodeFence(t *testing.T) {
	out := ai.ParseTranslation("```json\n{\"query\": \"operator:equinor\", \"explanation\": \"Operated by Equinor.\"}\n```")
	require.Equal(t, "operator:equinor", out.Query)
	require.Equal(t, "Operated by Equinor.", out.Explanation)
}

func TestParseTranslation_PlainText(t *testing.T) {
	out := ai.ParseTranslation("  wells in the north sea  ")
	require.Equal(t, "wells in the north sea", out.Query)
	require.Empty(t, out.Explanation)
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := ai.NewProvider(ai.Config{Provider: ai.ProviderOpenAI, Model: "gpt-4o"})
	require.ErrorIs(t, err, ai.ErrMissingAPIKey)

	_, err = ai.NewProvider(ai.Config{Provider: ai.ProviderOpenAI, APIKey: "key"})
	require.ErrorIs(t, err, ai.ErrMissingModel)

	_, err = ai.NewProvider(ai.Config{Provider: ai.ProviderCompatible, APIKey: "key", Model: "m"})
	require.ErrorIs(t, err, ai.ErrMissingBaseURL)

	_, err = ai.NewProvider(ai.Config{Provider: "nope", APIKey: "key", Model: "m"})
	require.ErrorIs(t, err, ai.ErrInvalidProvider)
}

func TestAnthropicProvider_Name(t *testing.T) {
	provider, err := ai.NewAnthropicProvider("key", "", "claude-3", false, 0)
	require.NoError(t, err)
	require.Equal(t, ai.ProviderAnthropic, provider.Name())
}

func TestProviderNames(t *testing.T) {
	openaiProvider, err := ai.NewOpenAIProvider("key", "", "gpt-4o", false, "")
	require.NoError(t, err)
	require.Equal(t, ai.ProviderOpenAI, openaiProvider.Name())

	compat, err := ai.NewCompatibleProvider("key", "https://example.com/v1", "m", false, 0, "")
	require.NoError(t, err)
	require.Equal(t, ai.ProviderCompatible, compat.Name())
}
