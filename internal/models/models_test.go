package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"NEG", Negative, false},
		{"neutral", Neutral, false},
		{" Positive ", Positive, false},
		{"pos", Positive, false},
		{"bullish", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLabel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLabel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLabelOrder(t *testing.T) {
	assert.Equal(t, 0, Negative.Index())
	assert.Equal(t, 1, Neutral.Index())
	assert.Equal(t, 2, Positive.Index())
	assert.Equal(t, -1, Label("MEH").Index())
	assert.Len(t, LabelOrder, NumLabels)
}

func TestArticleCheckScored(t *testing.T) {
	base := func() Article {
		return Article{
			Sentences:  []string{"Apple beats <HEADLINE>", "Shares rose."},
			Sectors:    map[string]float64{"Technology": 0.6, "Finance": 0.4},
			Sentiments: []SentenceScore{{Positive, 90}, {Neutral, 70}},
		}
	}

	tests := []struct {
		name   string
		mutate func(a *Article)
		want   error
	}{
		{"valid", func(a *Article) {}, nil},
		{"missing sentiments", func(a *Article) { a.Sentiments = nil }, ErrContractViolation},
		{"empty sentiments", func(a *Article) { a.Sentiments = []SentenceScore{} }, ErrMalformedArticle},
		{"length mismatch", func(a *Article) { a.Sentences = a.Sentences[:1] }, ErrMalformedArticle},
		{"bad confidence", func(a *Article) { a.Sentiments[1].Confidence = 101 }, ErrMalformedArticle},
		{"bad label", func(a *Article) { a.Sentiments[0].Label = "UP" }, ErrMalformedArticle},
		{"weights off", func(a *Article) { a.Sectors["Finance"] = 0.2 }, ErrMalformedArticle},
		{"no sectors", func(a *Article) { a.Sectors = nil }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			tt.mutate(&a)
			err := a.CheckScored()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMalformedArticleIsMalformedRecord(t *testing.T) {
	assert.True(t, errors.Is(ErrMalformedArticle, ErrMalformedRecord))
}

func TestArticleUnmarshal_FieldDrift(t *testing.T) {
	var a Article
	require.NoError(t, json.Unmarshal([]byte(`{"published":"2023-12-16","headline_summary":"Chips rally","sentences":["Chips rally <HEADLINE>"],"tickers":["NVDA"]}`), &a))
	assert.Equal(t, "2023-12-16", a.Date)
	assert.Equal(t, "Chips rally", a.Headline)
	assert.Equal(t, []string{"NVDA"}, a.Tickers)
	assert.Nil(t, a.Sentiments)
}

func TestArticleHeadlineKey(t *testing.T) {
	a := Article{Headline: "Chips rally today", Sentences: []string{"Chips rally <HEADLINE>", "More."}}
	assert.Equal(t, "Chips rally", a.HeadlineKey(" <HEADLINE>"))
	assert.Equal(t, "Chips rally today", (&Article{Headline: "Chips rally today"}).HeadlineKey(" <HEADLINE>"))
}

func TestVerdictUnmarshal_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Overall
	}{
		{"object", `{"headline_summary":"h","overall":{"label":"NEG","confidence":82.3}}`, Overall{Negative, 82.3}},
		{"bare string", `{"headline_summary":"h","overall":"positive"}`, Overall{Label: Positive}},
		{"legacy gold", `{"headline":"h","gold":{"overall":"NEU"}}`, Overall{Label: Neutral}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v ArticleVerdict
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, "h", v.HeadlineSummary)
			assert.Equal(t, tt.want, v.Overall)
			assert.NoError(t, v.Validate())
		})
	}
}

func TestVerdictRoundTrip(t *testing.T) {
	in := ArticleVerdict{
		Date:            "2023-12-16",
		HeadlineSummary: "Interesting times",
		Overall:         Overall{Negative, 82.35},
		Tickers:         []string{"AAPL", "JPM"},
		SectorsSummary: map[string]SectorVerdict{
			"Technology": {Weight: 0.5833, Label: Negative, Confidence: 80.1},
			"Finance":    {Weight: 0.4167, Label: Neutral, Confidence: 66.67},
		},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out ArticleVerdict
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestRecordError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewRecordError(ErrMalformedRecord, "", 7, `{"headline": "cut`, cause)
	assert.ErrorIs(t, err, ErrMalformedRecord)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "line 7")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab…", Truncate("abcdef", 2))
	assert.Equal(t, "日本…", Truncate("日本語テキスト", 2))
}
