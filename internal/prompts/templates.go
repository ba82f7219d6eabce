package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/avvvet/newsbuddy/internal/intent"
	"github.com/avvvet/newsbuddy/internal/newsapi"
)

const WelcomeMessage = "Hi! I'm your AI news assistant. I can bring you the latest news summaries and in-depth analysis. What would you like to know about?"

const GreetingReply = "Hello! I'm your AI news assistant. I can give you the latest news summaries and analysis. Which topics are you interested in?"

const HelpReply = `I can help you:
📰 Get the latest news summaries
🔍 Analyze news in a specific field in depth
📊 Surface news trend insights
💡 Answer news-related questions

Try asking: "Any tech news today?" or "Analyze the latest developments in AI"`

const GeneralReply = "Here is the news I found related to your question:"

const FallbackReply = "Sorry, something went wrong while handling your request. Please try again later or rephrase your question."

const EmptyAgentReply = "Sorry, I didn't get a valid reply."

// MaxSuggestions caps every suggestion list.
const MaxSuggestions = 3

var defaultSuggestions = []string{
	"What other important news is there today?",
	"Give me a detailed analysis",
	"Any tech news?",
}

var fallbackSuggestions = []string{
	"What's the important news today?",
	"Latest developments in technology",
	"Business news summary",
}

var initialSuggestions = []string{
	"What's the important news today?",
	"Latest developments in technology",
	"Give me an analysis of business news",
}

// sentimentOrder fixes the report order of the known labels; unknown labels follow sorted.
var sentimentOrder = []string{newsapi.SentimentPositive, newsapi.SentimentNegative, newsapi.SentimentNeutral}

func FallbackSuggestions() []string {
	return append([]string(nil), fallbackSuggestions...)
}

func InitialSuggestions() []string {
	return append([]string(nil), initialSuggestions...)
}

// NewsReply renders the sentence introducing a quick-news result.
func NewsReply(category intent.Category, count int) string {
	if category == intent.CategoryNone {
		return fmt.Sprintf("Found %d latest news %s for you:", count, pluralize(count, "article", "articles"))
	}
	return fmt.Sprintf("Found %d latest %s news %s for you:", count, category, pluralize(count, "article", "articles"))
}

// AnalysisReport renders a detailed-analysis response as a multi-section report.
func AnalysisReport(category intent.Category, data newsapi.NewsData) string {
	var builder strings.Builder

	scope := "All categories"
	if category != intent.CategoryNone {
		scope = titleCase(string(category))
	}
	builder.WriteString(fmt.Sprintf("%s news analysis report:\n\n", scope))

	if insights := data.Insights; insights != nil {
		builder.WriteString("📊 Overview:\n")
		builder.WriteString(fmt.Sprintf("• Articles analyzed: %d\n", data.TotalArticles))
		builder.WriteString(fmt.Sprintf("• Categories found: %s\n", strings.Join(insights.CategoriesFound, ", ")))

		if len(insights.SentimentBreakdown) > 0 {
			builder.WriteString("• Sentiment breakdown:\n")
			for _, label := range sentimentLabels(insights.SentimentBreakdown) {
				count := insights.SentimentBreakdown[label]
				builder.WriteString(fmt.Sprintf("  - %s: %d %s\n", label, count, pluralize(count, "article", "articles")))
			}
		}

		if insights.HighImportanceNews > 0 {
			builder.WriteString(fmt.Sprintf("• High-importance news: %d\n", insights.HighImportanceNews))
		}

		if !insights.AverageConfidence.IsZero() {
			builder.WriteString(fmt.Sprintf("• Average confidence: %s\n", insights.AverageConfidence))
		}
	}

	if data.AIInsights != "" {
		builder.WriteString(fmt.Sprintf("\n🤖 AI insights:\n%s", data.AIInsights))
	}

	return strings.TrimRight(builder.String(), "\n")
}

// SuggestedQuestions starts from the fixed prompts, appends one prompt per distinct
// article category in first-seen order, and truncates to MaxSuggestions.
func SuggestedQuestions(articles []newsapi.Article) []string {
	questions := append([]string(nil), defaultSuggestions...)

	seen := make(map[string]struct{})
	for _, article := range articles {
		if article.Category == "" {
			continue
		}
		if _, ok := seen[article.Category]; ok {
			continue
		}
		seen[article.Category] = struct{}{}
		questions = append(questions, fmt.Sprintf("Any more news in %s?", article.Category))
	}

	if len(questions) > MaxSuggestions {
		questions = questions[:MaxSuggestions]
	}
	return questions
}

func sentimentLabels(breakdown map[string]int) []string {
	labels := make([]string, 0, len(breakdown))
	known := make(map[string]struct{}, len(sentimentOrder))
	for _, label := range sentimentOrder {
		known[label] = struct{}{}
		if _, ok := breakdown[label]; ok {
			labels = append(labels, label)
		}
	}

	var rest []string
	for label := range breakdown {
		if _, ok := known[label]; !ok {
			rest = append(rest, label)
		}
	}
	sort.Strings(rest)
	return append(labels, rest...)
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
