package llm

import "regexp"

// secretPatterns are applied in order; more specific patterns come first.
// Generic key/value rules skip values starting with '[' so text redacted by
// an earlier rule keeps its label.
var secretPatterns = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	{
		regexp.MustCompile(`(OPENAI_API_KEY|ANTHROPIC_API_KEY|OLLAMA_API_KEY|LLM_API_KEY|GITHUB_TOKEN|AWS_SECRET_ACCESS_KEY)\s*=\s*([^\s]+)`),
		"$1=[REDACTED:ENV_SECRET]",
	},
	{
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`),
		"[REDACTED:ANTHROPIC_KEY]",
	},
	{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		"[REDACTED:OPENAI_KEY]",
	},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?\s*([^"'\s\[][^"'\s]{7,})["']?`),
		"$1=[REDACTED:API_KEY]",
	},
	{
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.=]{20,}`),
		"[REDACTED:BEARER_TOKEN]",
	},
	{
		regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*["']?\s*([^"'\s\[][^"'\s]{3,})["']?`),
		"$1=[REDACTED:PASSWORD]",
	},
	{
		regexp.MustCompile(`(?i)-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----[\s\S]*?-----END (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
		"[REDACTED:PRIVATE_KEY]",
	},
}

// ScrubSecrets removes common credential shapes from text before it leaves
// the process.
func ScrubSecrets(content string) string {
	for _, p := range secretPatterns {
		content = p.regex.ReplaceAllString(content, p.replacement)
	}
	return content
}

// scrubTurns returns a copy of turns with user content scrubbed.
func scrubTurns(turns []Message) []Message {
	out := make([]Message, len(turns))
	for i, m := range turns {
		if m.Role == RoleUser {
			m.Content = ScrubSecrets(m.Content)
		}
		out[i] = m
	}
	return out
}
