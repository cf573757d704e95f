package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"
	"github.com/commzilla/slack-mcp-server/internal/biz/repo"
)

const (
	// minAnalyzeMessages is the floor below which analysis is reported
	// as insufficient data
	minAnalyzeMessages = 10

	// localHistoryFloor is how many stored own messages are required
	// before skipping the Slack search fallback
	localHistoryFloor = 50

	// maxSampleMessages bounds the representative sample set
	maxSampleMessages = 50

	// analyzeFetchLimit caps how many messages are pulled for analysis
	analyzeFetchLimit = 500
)

var (
	emojiRange    = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`)
	greetingWords = regexp.MustCompile(`(?i)^(hey|hi|hello|yo|sup|morning|afternoon|evening|howdy|hiya|what's up|whats up)`)
	signOffWords  = regexp.MustCompile(`(?i)(thanks|cheers|best|regards|thx|ty|thank you|lmk|let me know|talk soon|ttyl)[\s!.]*$`)
	nonWordChars  = regexp.MustCompile(`[^\w\s]`)
)

var casualIndicators = []string{
	"lol", "haha", "yeah", "nah", "gonna", "wanna", "gotta",
	"tbh", "imo", "btw", "np", "nbd",
}

var formalIndicators = []string{
	"please", "kindly", "would you", "could you",
	"appreciate", "regarding", "furthermore", "however",
}

var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "a": {},
	"an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "to": {},
	"for": {}, "of": {}, "it": {}, "this": {}, "that": {}, "with": {},
}

// StyleUsecase derives and caches per-profile writing-style
// fingerprints from historical outbound messages
type StyleUsecase struct {
	messages repo.MessageRepo
	styles   repo.StyleRepo
}

// NewStyleUsecase creates the style inference usecase
func NewStyleUsecase(messages repo.MessageRepo, styles repo.StyleRepo) *StyleUsecase {
	return &StyleUsecase{messages: messages, styles: styles}
}

// GetMyStyle returns a formatted style fingerprint for the profile,
// computing and caching it when absent or when refresh is set. The
// Slack search API is consulted only when local storage has too few of
// the profile's own messages. Insufficient data is reported as
// descriptive text, not an error.
func (uc *StyleUsecase) GetMyStyle(ctx context.Context, profileID, userID string, slackCli repo.SlackRepo, refresh bool) (string, error) {
	if !refresh {
		cached, err := uc.styles.GetStyle(ctx, profileID)
		if err != nil {
			return "", fmt.Errorf("load cached style: %w", err)
		}
		if cached != nil {
			return FormatStyleProfile(profileID, cached), nil
		}
	}

	log.Printf("[style:%s] Fetching messages for style analysis...", profileID)

	texts, err := uc.collectTexts(ctx, profileID, userID, slackCli)
	if err != nil {
		return fmt.Sprintf("Failed to analyze style for profile %q. Error: %v. Try again later or add more watched channels so the daemon can collect messages.", profileID, err), nil
	}

	if len(texts) < minAnalyzeMessages {
		return fmt.Sprintf("Not enough messages to analyze style for profile %q (found %d). Need at least %d messages. Try watching more channels or waiting for the daemon to collect messages.",
			profileID, len(texts), minAnalyzeMessages), nil
	}

	style := AnalyzeMessages(texts)
	style.SampleMessages = SelectRepresentativeSamples(texts, maxSampleMessages)

	if err := uc.styles.SaveStyle(ctx, profileID, style); err != nil {
		return "", fmt.Errorf("save style: %w", err)
	}

	log.Printf("[style:%s] Style profile saved (%d messages analyzed).", profileID, len(texts))
	return FormatStyleProfile(profileID, style), nil
}

// collectTexts gathers analysis input: local history first, Slack
// search as fallback when local coverage is thin
func (uc *StyleUsecase) collectTexts(ctx context.Context, profileID, userID string, slackCli repo.SlackRepo) ([]string, error) {
	own, err := uc.messages.GetOwnMessages(ctx, profileID, analyzeFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("load own messages: %w", err)
	}

	if len(own) >= localHistoryFloor {
		texts := make([]string, 0, len(own))
		for _, m := range own {
			texts = append(texts, m.Text)
		}
		log.Printf("[style:%s] Using %d cached messages for analysis.", profileID, len(texts))
		return texts, nil
	}

	matches, err := slackCli.SearchUserMessages(ctx, userID, analyzeFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("search user messages: %w", err)
	}

	var texts []string
	for _, m := range matches {
		if strings.TrimSpace(m.Text) != "" {
			texts = append(texts, m.Text)
		}
	}
	log.Printf("[style:%s] Fetched %d messages from Slack API.", profileID, len(texts))
	return texts, nil
}

// AnalyzeMessages computes a style fingerprint from message texts.
// Deterministic given its input; returns the neutral default on empty
// input. Sample selection is the caller's concern.
func AnalyzeMessages(messages []string) *domain.StyleProfile {
	if len(messages) == 0 {
		return DefaultStyle()
	}

	total := float64(len(messages))

	var lengthSum int
	var withEmoji, withExclamation, withEllipsis, startsLower int
	for _, m := range messages {
		lengthSum += utf8.RuneCountInString(m)
		if emojiRange.MatchString(m) {
			withEmoji++
		}
		if strings.Contains(m, "!") {
			withExclamation++
		}
		if strings.Contains(m, "...") || strings.Contains(m, "…") {
			withEllipsis++
		}
		if r, _ := utf8.DecodeRuneInString(m); r != utf8.RuneError && unicode.IsLower(r) {
			startsLower++
		}
	}

	avgLength := float64(lengthSum) / total
	lowercaseRatio := float64(startsLower) / total

	capStyle := domain.CapNormal
	if lowercaseRatio > 0.7 {
		capStyle = domain.CapLowercase
	} else if lowercaseRatio < 0.2 {
		capStyle = domain.CapUppercase
	}

	length := domain.LengthLong
	if avgLength < 50 {
		length = domain.LengthShort
	} else if avgLength < 200 {
		length = domain.LengthMedium
	}

	return &domain.StyleProfile{
		AvgMessageLength:      int(math.Round(avgLength)),
		EmojiFrequency:        math.Round(float64(withEmoji)/total*100) / 100,
		UsesExclamation:       float64(withExclamation)/total > 0.2,
		UsesEllipsis:          float64(withEllipsis)/total > 0.1,
		CapitalizationStyle:   capStyle,
		GreetingPatterns:      leadingPatterns(messages),
		SignOffPatterns:       trailingPatterns(messages),
		CommonPhrases:         extractCommonPhrases(messages),
		FormalityLevel:        formality(messages),
		TypicalResponseLength: length,
	}
}

// DefaultStyle is the fixed neutral fingerprint for empty input
func DefaultStyle() *domain.StyleProfile {
	return &domain.StyleProfile{
		AvgMessageLength:      100,
		EmojiFrequency:        0,
		UsesExclamation:       false,
		UsesEllipsis:          false,
		CapitalizationStyle:   domain.CapNormal,
		GreetingPatterns:      []string{},
		SignOffPatterns:       []string{},
		CommonPhrases:         []string{},
		FormalityLevel:        domain.FormalityNeutral,
		TypicalResponseLength: domain.LengthMedium,
	}
}

// leadingPatterns collects up to 5 distinct greeting openers in order
// of first appearance
func leadingPatterns(messages []string) []string {
	seen := make(map[string]struct{})
	var patterns []string
	for _, m := range messages {
		match := greetingWords.FindString(strings.TrimSpace(m))
		if match == "" {
			continue
		}
		match = strings.ToLower(match)
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		patterns = append(patterns, match)
		if len(patterns) == 5 {
			break
		}
	}
	return patterns
}

// trailingPatterns collects up to 5 distinct sign-off words in order
// of first appearance
func trailingPatterns(messages []string) []string {
	seen := make(map[string]struct{})
	var patterns []string
	for _, m := range messages {
		groups := signOffWords.FindStringSubmatch(strings.TrimSpace(m))
		if groups == nil {
			continue
		}
		match := strings.ToLower(groups[1])
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		patterns = append(patterns, match)
		if len(patterns) == 5 {
			break
		}
	}
	return patterns
}

// extractCommonPhrases counts 2- and 3-grams over normalized text and
// returns the top 10 occurring at least 3 times, skipping phrases made
// entirely of stop words. Ties keep first-seen order.
func extractCommonPhrases(messages []string) []string {
	counts := make(map[string]int)
	var order []string

	record := func(phrase string) {
		if counts[phrase] == 0 {
			order = append(order, phrase)
		}
		counts[phrase]++
	}

	for _, msg := range messages {
		cleaned := nonWordChars.ReplaceAllString(strings.ToLower(msg), "")
		var words []string
		for _, w := range strings.Fields(cleaned) {
			if len(w) > 1 {
				words = append(words, w)
			}
		}

		for i := 0; i+1 < len(words); i++ {
			record(words[i] + " " + words[i+1])
		}
		for i := 0; i+2 < len(words); i++ {
			record(words[i] + " " + words[i+1] + " " + words[i+2])
		}
	}

	var phrases []string
	for _, phrase := range order {
		if counts[phrase] < 3 {
			continue
		}
		if allStopWords(phrase) {
			continue
		}
		phrases = append(phrases, phrase)
	}

	sort.SliceStable(phrases, func(i, j int) bool {
		return counts[phrases[i]] > counts[phrases[j]]
	})

	if len(phrases) > 10 {
		phrases = phrases[:10]
	}
	return phrases
}

func allStopWords(phrase string) bool {
	for _, w := range strings.Split(phrase, " ") {
		if _, ok := stopWords[w]; !ok {
			return false
		}
	}
	return true
}

// formality compares casual against formal indicator hits; one side
// wins when it more than doubles the other
func formality(messages []string) string {
	var casual, formal int
	for _, m := range messages {
		lower := strings.ToLower(m)
		for _, w := range casualIndicators {
			if strings.Contains(lower, w) {
				casual++
				break
			}
		}
		for _, w := range formalIndicators {
			if strings.Contains(lower, w) {
				formal++
				break
			}
		}
	}

	switch {
	case casual > formal*2:
		return domain.FormalityCasual
	case formal > casual*2:
		return domain.FormalityFormal
	default:
		return domain.FormalityNeutral
	}
}

// SelectRepresentativeSamples picks up to count messages spread evenly
// across the length-sorted input, so short, medium, and long messages
// are all represented
func SelectRepresentativeSamples(messages []string, count int) []string {
	if len(messages) <= count {
		return messages
	}

	sorted := make([]string, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) < utf8.RuneCountInString(sorted[j])
	})

	step := float64(len(sorted)) / float64(count)
	samples := make([]string, 0, count)
	for i := 0; i < count; i++ {
		idx := int(float64(i) * step)
		if idx > len(sorted)-1 {
			idx = len(sorted) - 1
		}
		samples = append(samples, sorted[idx])
	}
	return samples
}

// FormatStyleProfile renders a fingerprint as markdown guidance for
// reply drafting
func FormatStyleProfile(profileID string, p *domain.StyleProfile) string {
	if p == nil {
		return fmt.Sprintf("No style profile found for %q.", profileID)
	}

	exclaim := "rarely"
	if p.UsesExclamation {
		exclaim = "yes"
	}
	ellipsis := "rarely"
	if p.UsesEllipsis {
		ellipsis = "yes"
	}

	lines := []string{
		fmt.Sprintf("**Writing Style Profile for %q:**", profileID),
		"",
		fmt.Sprintf("- **Average message length:** %d characters", p.AvgMessageLength),
		fmt.Sprintf("- **Typical response length:** %s", p.TypicalResponseLength),
		fmt.Sprintf("- **Formality level:** %s", p.FormalityLevel),
		fmt.Sprintf("- **Capitalization:** %s", p.CapitalizationStyle),
		fmt.Sprintf("- **Emoji frequency:** %d%% of messages", int(math.Round(p.EmojiFrequency*100))),
		fmt.Sprintf("- **Uses exclamation marks:** %s", exclaim),
		fmt.Sprintf("- **Uses ellipsis:** %s", ellipsis),
	}

	if len(p.GreetingPatterns) > 0 {
		lines = append(lines, fmt.Sprintf("- **Greeting patterns:** %s", strings.Join(p.GreetingPatterns, ", ")))
	}
	if len(p.SignOffPatterns) > 0 {
		lines = append(lines, fmt.Sprintf("- **Sign-off patterns:** %s", strings.Join(p.SignOffPatterns, ", ")))
	}
	if len(p.CommonPhrases) > 0 {
		show := p.CommonPhrases
		if len(show) > 5 {
			show = show[:5]
		}
		lines = append(lines, fmt.Sprintf("- **Common phrases:** %s", strings.Join(show, ", ")))
	}

	if len(p.SampleMessages) > 0 {
		lines = append(lines, "", fmt.Sprintf("**Sample messages (%d):**", len(p.SampleMessages)))
		show := p.SampleMessages
		if len(show) > 15 {
			show = show[:15]
		}
		for _, s := range show {
			lines = append(lines, "> "+s)
		}
		if len(p.SampleMessages) > 15 {
			lines = append(lines, fmt.Sprintf("> ... and %d more", len(p.SampleMessages)-15))
		}
	}

	lines = append(lines, "",
		fmt.Sprintf("**Instructions for matching this style:** When drafting messages for this profile, match the formality level (%s), typical length (%s), capitalization style (%s), and emoji usage (%d%%). Use similar greetings and sign-offs when appropriate.",
			p.FormalityLevel, p.TypicalResponseLength, p.CapitalizationStyle, int(math.Round(p.EmojiFrequency*100))))

	return strings.Join(lines, "\n")
}
