package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ChartMarks/internal/domain/models"
	"ChartMarks/internal/services/features"
	"ChartMarks/pkg/logger"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You are a technical analyst annotating a price chart.
You receive a JSON summary of recent candles for one symbol and reply with ONE JSON object, no prose:

{
  "supports":    [price, ...],   // strongest first
  "resistances": [price, ...],   // strongest first
  "overlays": [
    {"type": "trendline", "label": "...", "points": [[bar_index, price], [bar_index, price]]},
    {"type": "channel" | "wedge", "label": "...", "upper": [[i, p], [i, p]], "lower": [[i, p], [i, p]]}
  ],
  "confidence": 0.0-1.0,
  "notes": "one sentence"
}

Bar indexes count from 0 at the oldest candle. Use at most 4 supports, 4 resistances and 3 overlays.`

// Config configures OpenAIAnalyst.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// OpenAIAnalyst asks a chat model for key levels and overlays.
type OpenAIAnalyst struct {
	cli       oa.Client
	model     string
	maxTokens int
	l         *logger.Logger
}

func NewOpenAIAnalyst(cfg Config, l *logger.Logger) *OpenAIAnalyst {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAIAnalyst{
		cli:       oa.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		l:         l.With(logger.String("component", "analyst")),
	}
}

// Analyze summarizes candles, asks the model and parses its reply.
func (a *OpenAIAnalyst) Analyze(ctx context.Context, symbol, tf string, candles []models.Candle) (models.Analysis, error) {
	if len(candles) == 0 {
		return models.Analysis{}, fmt.Errorf("no candles for %s", symbol)
	}

	mc := features.Summarize(symbol, tf, candles)
	ctxJSON, err := json.Marshal(mc)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("marshal market context: %w", err)
	}

	start := time.Now()
	resp, err := a.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(a.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(string(ctxJSON)),
		},
		MaxTokens:   oa.Int(int64(a.maxTokens)),
		Temperature: oa.Float(0.2),
	})
	if err != nil {
		return models.Analysis{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Analysis{}, fmt.Errorf("no response from openai")
	}

	out, err := ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return models.Analysis{}, err
	}
	out.Levels.Meta["model"] = a.model
	out.Levels.Meta["tf"] = tf
	out.Levels.Meta["bars"] = len(candles)
	out.Overlays.Meta["model"] = a.model
	out.Overlays.Meta["tf"] = tf

	a.l.Info("analysis done",
		logger.String("symbol", symbol),
		logger.Int("supports", len(out.Levels.Supports)),
		logger.Int("resistances", len(out.Levels.Resistances)),
		logger.Int("overlays", len(out.Overlays.Overlays)),
		logger.Int64("tokens", resp.Usage.TotalTokens),
		logger.Duration("duration_ms", time.Since(start)))
	return out, nil
}
