package ai

import (
	"encoding/json"
	"strings"
)

// GetQueryTranslatePrompt returns the system prompt that converts a
// natural-language request into a Lucene-style metadata query.
func GetQueryTranslatePrompt(platform, partition string) string {
	contextTags := ""
	if platform != "" {
		contextTags += "\n<platform>" + platform + "</platform>"
	}
	if partition != "" {
		contextTags += "\n<data_partition>" + partition + "</data_partition>"
	}

	return `You are an expert in OSDU and ProSource metadata search. Convert natural-language requests into Lucene-style queries.

<context>` + contextTags + `
</context>

<instructions>
1. Output ONLY a JSON object of the shape {"query": "...", "explanation": "..."}
2. "query" is a Lucene-style filter. Use key-scoped clauses where the request names a schema kind, e.g. kind: "osdu:wks:Well:1.0.0"
3. "explanation" is one plain sentence describing what the query matches, written for the user
4. NEVER invent kinds or field names; when the request is generic, emit a free-text query
5. NEVER wrap the JSON in markdown code blocks
6. NO leading or trailing whitespace
</instructions>`
}

// Translation is the parsed output of a query translation call.
type Translation struct {
	Query       string `json:"query"`
	Explanation string `json:"explanation"`
}

// ParseTranslation decodes a provider response into a Translation.
// Models occasionally wrap JSON in a code fence despite instructions;
// the fence is stripped before decoding. A response that is not JSON
// at all is treated as a bare query with no explanation.
func ParseTranslation(raw string) Translation {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var t Translation
	if err := json.Unmarshal([]byte(cleaned), &t); err == nil && t.Query != "" {
		return t
	}
	return Translation{Query: cleaned}
}
