package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jlcilliers/cvchat/internal/service"
)

// Assistant is the chat persona loaded from a YAML file.
type Assistant struct {
	OwnerName     string   `yaml:"owner_name"`
	Rules         []string `yaml:"rules"`
	Messages      Messages `yaml:"messages"`
	HistoryWindow int      `yaml:"history_window"`
	TopK          int      `yaml:"top_k"`
	MaxSources    int      `yaml:"max_sources"`
	ExcerptChars  int      `yaml:"excerpt_chars"`
	Temperature   float32  `yaml:"temperature"`
	MaxTokens     int      `yaml:"max_tokens"`
}

// Messages are the canned replies used when no answer can be generated.
type Messages struct {
	NotConfigured string `yaml:"not_configured"`
	NoIndex       string `yaml:"no_index"`
	FallbackIntro string `yaml:"fallback_intro"`
	EmptyAnswer   string `yaml:"empty_answer"`
}

// LoadAssistant reads the persona at path. If the file does not exist, returns defaults.
func LoadAssistant(path string) (*Assistant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultAssistant(), nil
		}
		return nil, fmt.Errorf("failed to read assistant config: %w", err)
	}

	var a Assistant
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse assistant config %s: %w", path, err)
	}
	applyAssistantDefaults(&a)
	return &a, nil
}

// ChatConfig converts the persona into service settings.
func (a *Assistant) ChatConfig() service.ChatConfig {
	return service.ChatConfig{
		OwnerName:            a.OwnerName,
		Rules:                a.Rules,
		NotConfiguredMessage: a.Messages.NotConfigured,
		NoIndexMessage:       a.Messages.NoIndex,
		FallbackIntro:        a.Messages.FallbackIntro,
		EmptyAnswerMessage:   a.Messages.EmptyAnswer,
		HistoryWindow:        a.HistoryWindow,
		TopK:                 a.TopK,
		MaxSources:           a.MaxSources,
		ExcerptChars:         a.ExcerptChars,
	}
}

func defaultAssistant() *Assistant {
	a := &Assistant{}
	applyAssistantDefaults(a)
	return a
}

func applyAssistantDefaults(a *Assistant) {
	d := service.DefaultChatConfig()
	if a.OwnerName == "" {
		a.OwnerName = d.OwnerName
	}
	if len(a.Rules) == 0 {
		a.Rules = d.Rules
	}
	if a.Messages.NotConfigured == "" {
		a.Messages.NotConfigured = d.NotConfiguredMessage
	}
	if a.Messages.NoIndex == "" {
		a.Messages.NoIndex = d.NoIndexMessage
	}
	if a.Messages.FallbackIntro == "" {
		a.Messages.FallbackIntro = d.FallbackIntro
	}
	if a.Messages.EmptyAnswer == "" {
		a.Messages.EmptyAnswer = d.EmptyAnswerMessage
	}
	if a.HistoryWindow == 0 {
		a.HistoryWindow = d.HistoryWindow
	}
	if a.TopK == 0 {
		a.TopK = d.TopK
	}
	if a.MaxSources == 0 {
		a.MaxSources = d.MaxSources
	}
	if a.ExcerptChars == 0 {
		a.ExcerptChars = d.ExcerptChars
	}
	if a.Temperature == 0 {
		a.Temperature = 0.3
	}
	if a.MaxTokens == 0 {
		a.MaxTokens = 500
	}
}
