package intent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Examples(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     Kind
		category Category
		count    int
	}{
		{"chinese tech news", "今天有什么科技新闻？", KindNewsRequest, CategoryTechnology, 0},
		{"chinese ai analysis", "分析一下AI领域的最新动态", KindDetailedAnalysis, CategoryTechnology, 0},
		{"greeting", "你好", KindGreeting, CategoryNone, 0},
		{"english greeting", "Hello there, show me sports news", KindGreeting, CategoryNone, 0},
		{"help", "这个助手有什么功能", KindHelp, CategoryNone, 0},
		{"english help", "can you help me?", KindHelp, CategoryNone, 0},
		{"count", "给我10条体育新闻", KindNewsRequest, CategorySports, 10},
		{"english count", "latest 3 business updates", KindNewsRequest, CategoryBusiness, 3},
		{"zero count is absent", "0 news please", KindNewsRequest, CategoryNone, 0},
		{"english trend", "What are the trends in health?", KindDetailedAnalysis, CategoryHealth, 0},
		{"analysis count", "analyze 12 tech stories", KindDetailedAnalysis, CategoryTechnology, 12},
		{"general", "electric cars", KindGeneral, CategoryNone, 0},
		{"empty", "", KindGeneral, CategoryNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.input)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.count, d.ArticleCount)
		})
	}
}

// Mixed-intent inputs resolve by a fixed order: greeting > help > analysis > news > general.
func TestClassify_PriorityOrder(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{"hi, help me analyze the news", KindGreeting},
		{"help me analyze the news", KindHelp},
		{"帮助我分析新闻", KindHelp},
		{"analyze today's news", KindDetailedAnalysis},
		{"分析今天的新闻", KindDetailedAnalysis},
		{"today's news", KindNewsRequest},
		{"nothing matching", KindGeneral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, Classify(tt.input).Kind, "input %q", tt.input)
	}
}

func TestClassify_GreetingHasNoKeywords(t *testing.T) {
	for _, input := range []string{
		"你好，今天有什么科技新闻？",
		"hi",
		"Hello! analyze the market trend for 5 companies",
		"早上好 分析 报告 health tech",
		"good morning world",
	} {
		d := Classify(input)
		require.Equal(t, KindGreeting, d.Kind, "input %q", input)
		assert.NotNil(t, d.Keywords)
		assert.Empty(t, d.Keywords)
		assert.Equal(t, CategoryNone, d.Category)
	}
}

func TestClassify_GreetingMustBeAtStart(t *testing.T) {
	assert.NotEqual(t, KindGreeting, Classify("say hello to the news").Kind)
	assert.NotEqual(t, KindGreeting, Classify("history of ai").Kind)
}

func TestClassify_AnalysisWithCategory(t *testing.T) {
	analysisWords := []string{"analyze", "analysis", "trend", "insight", "report", "分析", "趋势", "洞察", "报告"}
	categoryWords := map[string]Category{
		"tech":     CategoryTechnology,
		"科技":       CategoryTechnology,
		"stock":    CategoryBusiness,
		"election": CategoryPolitics,
		"football": CategorySports,
		"movie":    CategoryEntertainment,
		"research": CategoryScience,
		"医疗":       CategoryHealth,
	}

	for _, a := range analysisWords {
		for word, category := range categoryWords {
			input := fmt.Sprintf("%s %s one two three four five six", a, word)
			d := Classify(input)
			require.Equal(t, KindDetailedAnalysis, d.Kind, "input %q", input)
			assert.Equal(t, category, d.Category, "input %q", input)
			assert.NotEmpty(t, d.FocusAreas, "input %q", input)
			assert.LessOrEqual(t, len(d.FocusAreas), MaxKeywords, "input %q", input)
		}
	}
}

func TestClassify_SummaryLength(t *testing.T) {
	assert.Equal(t, SummaryShort, Classify("给我一个简短的科技分析").SummaryLength)
	assert.Equal(t, SummaryLong, Classify("详细分析一下经济").SummaryLength)
	assert.Equal(t, SummaryLong, Classify("a comprehensive report on ai").SummaryLength)
	assert.Equal(t, SummaryUnset, Classify("analyze sports").SummaryLength)
	assert.Equal(t, SummaryUnset, Classify("short news today").SummaryLength)
}

func TestClassify_NewsRequestKeepsKeywords(t *testing.T) {
	d := Classify("latest news about electric cars")
	assert.Equal(t, KindNewsRequest, d.Kind)
	assert.Equal(t, []string{"latest", "news", "electric", "cars"}, d.Keywords)
	assert.Nil(t, d.FocusAreas)
}

func TestExtractCategory_FirstMatchWins(t *testing.T) {
	assert.Equal(t, CategoryTechnology, ExtractCategory("科技公司股票"))
	assert.Equal(t, CategoryBusiness, ExtractCategory("公司的研究"))
	assert.Equal(t, CategoryNone, ExtractCategory("weather"))
	assert.Equal(t, CategoryNone, ExtractCategory("she said it would rain"))
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"今天 有 什么 科技 新闻？", []string{"今天", "科技", "新闻"}},
		{"a b c", []string{}},
		{"what is the price of gold, silver; copper: zinc! tin? lead", []string{"price", "gold", "silver", "copper", "zinc"}},
		{"吗 呢 吧 的", []string{}},
		{"", []string{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractKeywords(tt.input), "input %q", tt.input)
	}
}

func TestExtractKeywords_BoundedAndStopwordFree(t *testing.T) {
	inputs := []string{
		"the the the alpha beta gamma delta epsilon zeta eta",
		"什么 怎么 为什么 因为 所以 然而 科技 经济 政治 体育 娱乐 科学 健康",
		"one,two,three,four,five,six,seven",
	}
	for _, input := range inputs {
		got := ExtractKeywords(input)
		assert.LessOrEqual(t, len(got), MaxKeywords)
		for _, kw := range got {
			_, stop := stopwords[kw]
			assert.False(t, stop, "stopword %q leaked from %q", kw, input)
		}
	}
}

func TestExtractNumber(t *testing.T) {
	n, ok := ExtractNumber("top 12 stories from 2024")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = ExtractNumber("no digits here")
	assert.False(t, ok)

	_, ok = ExtractNumber("99999999999999999999999 articles")
	assert.False(t, ok)
}
