package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/jlcilliers/cvchat/internal/domain"
)

// AnswerGenerator turns retrieved context and the conversation into a reply.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, systemPrompt string, history []domain.Message) (string, error)
}

// ChatConfig holds the assistant persona and reply limits.
type ChatConfig struct {
	OwnerName            string
	Rules                []string
	NotConfiguredMessage string
	NoIndexMessage       string
	FallbackIntro        string
	EmptyAnswerMessage   string
	HistoryWindow        int
	TopK                 int
	MaxSources           int
	ExcerptChars         int
}

// DefaultChatConfig returns the stock persona.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		OwnerName: "the site owner",
		Rules: []string{
			"Only answer using information from the provided sources.",
			`If the answer is not in the sources, say "I don't have that information in the indexed CV data" and suggest what topics the user could ask about instead.`,
			"Be concise and professional.",
			"Reference source IDs when making claims.",
			"Do not make up or infer information not present in the sources.",
		},
		NotConfiguredMessage: "The CV chatbot is not yet configured. Browse the case studies, products, and about pages to learn more in the meantime.",
		NoIndexMessage:       "I don't have CV data indexed yet. Please ask the site owner to upload their CV through the admin panel.",
		FallbackIntro:        "Here's what I found in the CV:",
		EmptyAnswerMessage:   "Sorry, I could not generate a response.",
		HistoryWindow:        5,
		TopK:                 DefaultTopK,
		MaxSources:           3,
		ExcerptChars:         80,
	}
}

// ChatService answers visitor questions grounded on retrieved CV chunks.
type ChatService struct {
	retriever Retriever
	answerer  AnswerGenerator
	cfg       ChatConfig
}

// NewChatService creates a ChatService. answerer may be nil, in which case
// every reply is the not-configured message.
func NewChatService(retriever Retriever, answerer AnswerGenerator, cfg ChatConfig) *ChatService {
	defaults := DefaultChatConfig()
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaults.HistoryWindow
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = defaults.MaxSources
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = defaults.ExcerptChars
	}
	return &ChatService{retriever: retriever, answerer: answerer, cfg: cfg}
}

// Reply answers the last message of the conversation.
func (s *ChatService) Reply(ctx context.Context, messages []domain.Message) (*domain.ChatReply, error) {
	if len(messages) == 0 {
		return nil, domain.ErrMessagesRequired
	}
	question := strings.TrimSpace(messages[len(messages)-1].Content)
	if question == "" {
		return nil, domain.ErrEmptyMessage
	}

	if s.answerer == nil {
		return &domain.ChatReply{Content: s.cfg.NotConfiguredMessage, Sources: []domain.Source{}}, nil
	}

	chunks, err := s.retriever.Retrieve(ctx, question, s.cfg.TopK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &domain.ChatReply{Content: s.cfg.NoIndexMessage, Sources: []domain.Source{}}, nil
	}

	sources := s.sources(chunks)
	answer, err := s.answerer.GenerateAnswer(ctx, s.SystemPrompt(chunks), s.history(messages))
	if err != nil {
		log.Printf("chat: answer generation failed, replying with retrieved excerpts: %v", err)
		return &domain.ChatReply{Content: s.degradedAnswer(chunks), Sources: sources}, nil
	}
	if strings.TrimSpace(answer) == "" {
		answer = s.cfg.EmptyAnswerMessage
	}

	return &domain.ChatReply{Content: answer, Sources: sources}, nil
}

// SystemPrompt renders the persona rules followed by the retrieved context.
func (s *ChatService) SystemPrompt(chunks []domain.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful assistant that answers questions about %s based ONLY on the provided CV context.\n\nRules:\n", s.cfg.OwnerName)
	for i, rule := range s.cfg.Rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	b.WriteString("\nContext from CV:\n")
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]: %s", c.ID, c.Text)
	}
	return b.String()
}

func (s *ChatService) history(messages []domain.Message) []domain.Message {
	start := len(messages) - s.cfg.HistoryWindow
	if start < 0 {
		start = 0
	}
	out := make([]domain.Message, 0, len(messages)-start)
	for _, m := range messages[start:] {
		role := m.Role
		if !domain.IsValidRole(role) {
			role = domain.RoleUser
		}
		out = append(out, domain.Message{Role: role, Content: m.Content})
	}
	return out
}

func (s *ChatService) sources(chunks []domain.Chunk) []domain.Source {
	n := min(len(chunks), s.cfg.MaxSources)
	out := make([]domain.Source, n)
	for i, c := range chunks[:n] {
		out[i] = domain.Source{ID: c.ID, Excerpt: excerpt(c.Text, s.cfg.ExcerptChars)}
	}
	return out
}

var newlineRuns = regexp.MustCompile(`\n+`)

func (s *ChatService) degradedAnswer(chunks []domain.Chunk) string {
	n := min(len(chunks), s.cfg.MaxSources)
	parts := make([]string, n)
	for i, c := range chunks[:n] {
		parts[i] = strings.TrimSpace(newlineRuns.ReplaceAllString(c.Text, " "))
	}
	return s.cfg.FallbackIntro + "\n\n" + strings.Join(parts, "\n\n")
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "..."
}
