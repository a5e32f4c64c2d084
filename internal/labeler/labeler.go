// Package labeler asks a chat model for full-schema gold verdicts on sampled
// articles.
package labeler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/finsent/internal/logger"
	"github.com/rewired-gh/finsent/internal/models"
	"github.com/rewired-gh/finsent/internal/retry"
)

// Config selects the model and bounds each request.
type Config struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	MaxAttempts  int
	Backoff      time.Duration
	MaxSentences int
	// HeadlineMarker is stripped from sentence 0 to form the gold key.
	HeadlineMarker string
}

// maxBodyRunes caps the prompt when an article has no sentence list.
const maxBodyRunes = 8000

const systemPrompt = `You are a senior equity-research editor labelling financial news for sentiment.

The user sends one article in this format:
HEADLINE: <headline text>
ARTICLE:
<article text>

Reply with ONE minified JSON object with exactly these keys:
{"date": <YYYY-MM-DD if the article states it, else null>,
 "headline_summary": <the headline rewritten in at most 15 words>,
 "overall": {"label": "NEG|NEU|POS", "confidence": <integer 0-100>},
 "tickers": [<uppercase ticker symbols mentioned>],
 "sectors_summary": {<Sector>: {"weight": <float 0-1, 4 decimals>, "label": "NEG|NEU|POS", "confidence": <integer 0-100>}}}

Sector names must be one of: Technology, Healthcare, Finance, Energy, Industrials, Materials, Consumer, Utilities, RealEstate, Communication, Other.
NEG means downside risk or bad news. POS means upside or good news. NEU means purely factual or mixed; when unsure use NEU with confidence at most 60.
Sector weights must sum to 1. Output only the JSON, without markdown fences.`

// Labeler produces GoldRecords through a Completer.
type Labeler struct {
	completer    Completer
	policy       retry.Policy
	maxSentences int
	marker       string
}

// New creates a labeler. Zero config values fall back to 3 attempts,
// 1.5s fixed backoff, 40 sentences and the " <HEADLINE>" marker.
func New(c Completer, cfg Config) *Labeler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1500 * time.Millisecond
	}
	if cfg.MaxSentences <= 0 {
		cfg.MaxSentences = 40
	}
	if cfg.HeadlineMarker == "" {
		cfg.HeadlineMarker = " <HEADLINE>"
	}
	return &Labeler{
		completer: c,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       cfg.Backoff,
			OnRetry: func(attempt int, err error, wait time.Duration) {
				logger.Warn("Labeling attempt %d failed, retrying in %v: %v", attempt, wait, err)
			},
		},
		maxSentences: cfg.MaxSentences,
		marker:       cfg.HeadlineMarker,
	}
}

// WithPolicy replaces the retry policy, mainly to inject a clock.
func (l *Labeler) WithPolicy(p retry.Policy) *Labeler {
	l.policy = p
	return l
}

// Label returns the model's verdict for one article. A reply that is not a
// valid verdict counts as a failed attempt. The record is keyed by the
// article's own headline, as aggregation keys its output; the model's
// summary line moves to HeadlineRewrite.
func (l *Labeler) Label(ctx context.Context, a models.Article) (models.GoldRecord, error) {
	prompt := BuildPrompt(a, l.maxSentences)
	rec, err := retry.Do(ctx, l.policy, retry.Always, func(ctx context.Context) (models.GoldRecord, error) {
		reply, err := l.completer.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return models.GoldRecord{}, err
		}
		return ParseReply(reply)
	})
	if err != nil {
		return rec, err
	}
	if key := a.HeadlineKey(l.marker); key != "" {
		rec.HeadlineRewrite = rec.HeadlineSummary
		rec.HeadlineSummary = key
	}
	return rec, nil
}

// BuildPrompt renders the user message from the headline and at most
// maxSentences body sentences.
func BuildPrompt(a models.Article, maxSentences int) string {
	headline := a.Headline
	if headline == "" && len(a.Sentences) > 0 {
		headline = a.Sentences[0]
		if i := strings.LastIndex(headline, " <"); i >= 0 && strings.HasSuffix(headline, ">") {
			headline = headline[:i]
		}
	}

	var body string
	if len(a.Sentences) > 0 {
		n := min(len(a.Sentences), maxSentences)
		body = strings.Join(a.Sentences[:n], "\n")
	} else {
		body = models.Truncate(a.Body, maxBodyRunes)
	}
	return fmt.Sprintf("HEADLINE: %s\nARTICLE:\n%s", headline, body)
}

// ParseReply decodes a model reply, tolerating a surrounding markdown fence.
func ParseReply(reply string) (models.GoldRecord, error) {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	var rec models.GoldRecord
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return models.GoldRecord{}, fmt.Errorf("decode reply: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return models.GoldRecord{}, fmt.Errorf("invalid reply: %w", err)
	}
	if rec.Tickers == nil {
		rec.Tickers = []string{}
	}
	if rec.SectorsSummary == nil {
		rec.SectorsSummary = map[string]models.SectorVerdict{}
	}
	return rec, nil
}
