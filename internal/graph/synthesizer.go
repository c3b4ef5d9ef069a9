package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Fixed replies. They are part of the user-facing contract.
const (
	MsgNotConfigured = "I'm sorry, but the AI service is not properly configured. Please check the API keys and try again later."
	MsgInternalError = "I couldn't generate an answer right now due to an internal error. Please try again later."
	MsgOffTopic      = "I'm sorry! I am a health assistant. Please ask related to health topics."
	MsgGreeting      = "Namaste! I'm AyurWell, your Ayurvedic health assistant. Tell me what's troubling you and I'll suggest traditional remedies."

	snippetPreamble  = "I couldn't generate a full answer using the LLM, but here are the most relevant snippets I found:\n\n"
	snippetSeparator = "\n\n---\n\n"
	maxSnippets      = 3
	maxSnippetRunes  = 600
)

const answerTemplate = `You are AyurWell, an EXCLUSIVE Ayurvedic health assistant. You MUST provide ONLY traditional Ayurvedic medicine information.

STRICT RULES - FOLLOW WITHOUT EXCEPTION:
1. NEVER mention: aspirin, ibuprofen, acetaminophen, antibiotics, or ANY pharmaceutical drugs
2. NEVER mention: over-the-counter medications, prescription medicines, or modern medical treatments
3. NEVER suggest: decongestants, antihistamines, expectorants, or any chemical medicines
4. ONLY provide: Ayurvedic herbs (Tulsi, Ginger, Turmeric, Ashwagandha, etc.), natural remedies, dosha balancing, Ayurvedic diet, and traditional practices
5. If modern medicine is asked, respond: "I specialize only in Ayurvedic treatments. For [condition], Ayurveda recommends [Ayurvedic remedy]"

FOR EVERY HEALTH CONCERN:
- Start with dosha imbalance explanation (Vata/Pitta/Kapha)
- Recommend Ayurvedic herbs and natural remedies
- Suggest Ayurvedic diet modifications
- Include lifestyle changes (Dinacharya)
- Mention Ayurvedic therapies (if applicable)

ChatHistory: %s
Context: %s
Question: %s

Respond with PURE AYURVEDIC SOLUTIONS ONLY. No exceptions.`

// Synthesizer composes the final answer. Generate always returns a
// non-empty string.
type Synthesizer struct {
	model   LanguageModel
	timeout time.Duration
	logger  *zap.Logger
}

func NewSynthesizer(model LanguageModel, timeout time.Duration, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		model:   model,
		timeout: timeout,
		logger:  logger.Named("synthesizer"),
	}
}

func (s *Synthesizer) Generate(ctx context.Context, history []Message, evidence []Passage, query string) string {
	if !s.model.Available() {
		synthesisTotal.WithLabelValues("not_configured").Inc()
		return MsgNotConfigured
	}

	answer, err := s.complete(ctx, BuildPrompt(history, evidence, query))
	if err == nil {
		synthesisTotal.WithLabelValues("generated").Inc()
		return answer
	}

	s.logger.Warn("answer generation failed", zap.Error(err), zap.Int("evidence", len(evidence)))
	if len(evidence) > 0 {
		synthesisTotal.WithLabelValues("snippets").Inc()
		return snippetAnswer(evidence)
	}
	synthesisTotal.WithLabelValues("apology").Inc()
	return MsgInternalError
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}
	return out, nil
}

// BuildPrompt renders the answer template.
func BuildPrompt(history []Message, evidence []Passage, query string) string {
	var h strings.Builder
	for _, m := range history {
		fmt.Fprintf(&h, "\n%s: %s", m.Role, m.Content)
	}
	texts := make([]string, 0, len(evidence))
	for _, p := range evidence {
		texts = append(texts, strings.TrimSpace(p.Text))
	}
	return fmt.Sprintf(answerTemplate, h.String(), strings.Join(texts, "\n\n"), query)
}

func snippetAnswer(evidence []Passage) string {
	n := min(len(evidence), maxSnippets)
	snippets := make([]string, 0, n)
	for _, p := range evidence[:n] {
		snippets = append(snippets, truncateRunes(strings.TrimSpace(p.Text), maxSnippetRunes))
	}
	return snippetPreamble + strings.Join(snippets, snippetSeparator)
}
