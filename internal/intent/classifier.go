// Package intent turns a raw chat utterance into a structured request descriptor.
//
// Classification is a fixed, ordered list of pattern checks. The first match wins:
// greeting, help, detailed analysis, news request, and finally the general fallback.
// Mixed-intent messages are resolved by that order alone.
package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Kind string

const (
	KindGreeting         Kind = "greeting"
	KindHelp             Kind = "help"
	KindNewsRequest      Kind = "news_request"
	KindDetailedAnalysis Kind = "detailed_analysis"
	KindGeneral          Kind = "general"
)

type Category string

const (
	CategoryNone          Category = ""
	CategoryTechnology    Category = "technology"
	CategoryBusiness      Category = "business"
	CategoryPolitics      Category = "politics"
	CategorySports        Category = "sports"
	CategoryEntertainment Category = "entertainment"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
)

type SummaryLength string

const (
	SummaryUnset  SummaryLength = ""
	SummaryShort  SummaryLength = "short"
	SummaryMedium SummaryLength = "medium"
	SummaryLong   SummaryLength = "long"
)

// MaxKeywords bounds Keywords and FocusAreas.
const MaxKeywords = 5

// Descriptor is the classification of a single message.
type Descriptor struct {
	Kind     Kind
	Category Category
	// ArticleCount is 0 when the user did not ask for a specific number.
	ArticleCount  int
	SummaryLength SummaryLength
	FocusAreas    []string
	Keywords      []string
}

var (
	greetingPattern = regexp.MustCompile(`^(?:你好|嗨|早上好|下午好|晚上好|hi\b|hello\b|hey\b|good (?:morning|afternoon|evening)\b)`)

	helpPattern = alternation(
		[]string{"帮助", "怎么用", "如何使用", "功能"},
		[]string{`help\b`, `what can you do`, `how (?:do i|to) use`},
	)

	analysisPattern = alternation(
		[]string{"分析", "深度", "详细", "趋势", "洞察", "报告"},
		[]string{`analy[sz]`, `trend`, `insight`, `report`, `in-depth`, `deep[ -]dive`},
	)

	newsPattern = alternation(
		[]string{"新闻", "消息", "资讯", "动态", "最新", "今天", "昨天"},
		[]string{`news`, `update`, `latest`, `today`, `yesterday`, `headline`},
	)

	shortSummaryPattern = alternation(
		[]string{"简短", "简要", "简单"},
		[]string{`brief`, `short`, `quick`},
	)

	longSummaryPattern = alternation(
		[]string{"详细", "全面", "深度"},
		[]string{`detailed`, `in-depth`, `comprehensive`, `long`},
	)

	numberPattern = regexp.MustCompile(`\d+`)
)

type categoryRule struct {
	pattern  *regexp.Regexp
	category Category
}

// Order matters: the first matching rule decides the category.
var categoryRules = []categoryRule{
	{alternation(
		[]string{"科技", "技术", "人工智能", "互联网", "软件", "硬件", "数码"},
		[]string{`ai\b`, `tech`, `software`, `hardware`, `internet`, `artificial intelligence`, `gadget`},
	), CategoryTechnology},
	{alternation(
		[]string{"商业", "经济", "金融", "股票", "投资", "创业", "公司"},
		[]string{`business`, `econom`, `financ`, `stock`, `invest`, `startup`, `compan`, `market`},
	), CategoryBusiness},
	{alternation(
		[]string{"政治", "政府", "选举", "政策", "国际", "外交"},
		[]string{`politic`, `government`, `election`, `polic(?:y|ies)`, `diploma`},
	), CategoryPolitics},
	{alternation(
		[]string{"体育", "运动", "足球", "篮球", "奥运"},
		[]string{`sport`, `football`, `soccer`, `basketball`, `olympic`},
	), CategorySports},
	{alternation(
		[]string{"娱乐", "电影", "音乐", "明星", "游戏"},
		[]string{`entertainment`, `movie`, `film`, `music`, `celebrit`, `gaming`},
	), CategoryEntertainment},
	{alternation(
		[]string{"科学", "研究", "发现", "实验", "学术"},
		[]string{`scien`, `research`, `discover`, `experiment`, `academ`},
	), CategoryScience},
	{alternation(
		[]string{"健康", "医疗", "疫情", "病毒", "医学"},
		[]string{`health`, `medic`, `pandemic`, `virus`, `disease`},
	), CategoryHealth},
}

var punctuationReplacer = strings.NewReplacer(
	"？", " ", "?", " ", "！", " ", "!", " ", "。", " ",
	"，", " ", ",", " ", "；", " ", ";", " ", "：", " ", ":", " ",
)

var stopwords = map[string]struct{}{
	"的": {}, "是": {}, "在": {}, "有": {}, "和": {}, "与": {}, "或": {}, "但": {},
	"然而": {}, "因为": {}, "所以": {}, "这": {}, "那": {}, "什么": {}, "怎么": {},
	"为什么": {}, "吗": {}, "呢": {}, "吧": {},
	"the": {}, "an": {}, "and": {}, "or": {}, "but": {}, "of": {}, "to": {}, "in": {},
	"on": {}, "at": {}, "for": {}, "with": {}, "from": {}, "about": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "it": {}, "its": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "there": {}, "what": {}, "how": {},
	"why": {}, "when": {}, "where": {}, "which": {}, "who": {}, "do": {}, "does": {},
	"did": {}, "can": {}, "could": {}, "you": {}, "me": {}, "my": {}, "any": {},
	"some": {}, "please": {}, "give": {}, "show": {}, "tell": {},
}

// Classify never fails: anything unmatched falls through to KindGeneral.
func Classify(text string) Descriptor {
	msg := strings.TrimSpace(strings.ToLower(text))

	if greetingPattern.MatchString(msg) {
		return Descriptor{Kind: KindGreeting, Keywords: []string{}}
	}

	if helpPattern.MatchString(msg) {
		return Descriptor{Kind: KindHelp, Keywords: []string{}}
	}

	if analysisPattern.MatchString(msg) {
		return Descriptor{
			Kind:          KindDetailedAnalysis,
			Category:      ExtractCategory(msg),
			ArticleCount:  articleCount(msg),
			SummaryLength: extractSummaryLength(msg),
			FocusAreas:    ExtractKeywords(msg),
			Keywords:      ExtractKeywords(msg),
		}
	}

	if newsPattern.MatchString(msg) {
		return Descriptor{
			Kind:         KindNewsRequest,
			Category:     ExtractCategory(msg),
			ArticleCount: articleCount(msg),
			Keywords:     ExtractKeywords(msg),
		}
	}

	return Descriptor{
		Kind:     KindGeneral,
		Keywords: ExtractKeywords(msg),
	}
}

// ExtractCategory expects lower-cased input.
func ExtractCategory(msg string) Category {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(msg) {
			return rule.category
		}
	}
	return CategoryNone
}

// ExtractKeywords returns at most MaxKeywords tokens in their original order.
func ExtractKeywords(msg string) []string {
	keywords := make([]string, 0, MaxKeywords)
	for _, token := range strings.Fields(punctuationReplacer.Replace(msg)) {
		if utf8.RuneCountInString(token) <= 1 {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		keywords = append(keywords, token)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}

// ExtractNumber parses the first run of ASCII digits.
func ExtractNumber(msg string) (int, bool) {
	digits := numberPattern.FindString(msg)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// articleCount treats a missing or non-positive number as absent.
func articleCount(msg string) int {
	if n, ok := ExtractNumber(msg); ok && n > 0 {
		return n
	}
	return 0
}

func extractSummaryLength(msg string) SummaryLength {
	switch {
	case shortSummaryPattern.MatchString(msg):
		return SummaryShort
	case longSummaryPattern.MatchString(msg):
		return SummaryLong
	default:
		return SummaryUnset
	}
}

// alternation joins CJK terms as-is and prefixes English terms with a word boundary,
// so "ai" matches in "分析一下ai领域" but not inside "said".
func alternation(cjk, english []string) *regexp.Regexp {
	parts := make([]string, 0, len(cjk)+len(english))
	parts = append(parts, cjk...)
	for _, word := range english {
		parts = append(parts, `\b`+word)
	}
	return regexp.MustCompile(strings.Join(parts, "|"))
}
