package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/venturelaunch/angel/internal/models"
)

// advisorSystemPrompt steers the model toward short, single-question turns
// that the modality resolver can classify.
const advisorSystemPrompt = `You are Angel, a guided assistant that helps people plan and launch a small business.
You ask exactly one question per message. Keep questions short and concrete.
When a question has a fixed set of sensible answers, list them as bullet points, one per line, each starting with "- ".
For yes/no questions, include the words "yes" and "no" in the question text.
Never answer your own question and never ask more than one question at a time.`

// Advisor produces follow-up onboarding questions from a chat model. It
// satisfies the journey's question source; when the model is unavailable the
// journey falls back to its scripted questions.
type Advisor struct {
	client ClientInterface
}

// NewAdvisor creates an Advisor backed by the given client.
func NewAdvisor(client ClientInterface) *Advisor {
	return &Advisor{client: client}
}

// NextQuestion generates the next onboarding question for a session, given
// the answers recorded so far.
func (a *Advisor) NextQuestion(ctx context.Context, session *models.Session, history []models.Answer) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("no GenAI client configured")
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(advisorSystemPrompt),
		openai.SystemMessage(sessionBackground(session)),
	}
	for _, answer := range history {
		messages = append(messages, openai.AssistantMessage(answer.Question))
		messages = append(messages, openai.UserMessage(answer.Body))
	}
	messages = append(messages, openai.UserMessage("Ask me the next question."))

	text, err := a.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Advisor NextQuestion generation failed", "error", err, "sessionID", session.ID)
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("model returned empty question")
	}
	slog.Debug("Advisor NextQuestion generated", "sessionID", session.ID, "phase", session.CurrentPhase)
	return text, nil
}

// sessionBackground summarizes the session for the model.
func sessionBackground(session *models.Session) string {
	var b strings.Builder
	b.WriteString("Session background:\n")
	if session.Name != "" {
		fmt.Fprintf(&b, "- Participant name: %s\n", session.Name)
	}
	fmt.Fprintf(&b, "- Current phase: %s\n", session.CurrentPhase)
	return b.String()
}
