package classifier

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
)

const (
	historySize        = 10
	maxPatterns        = 200
	learnThreshold     = 0.8
	learnedConfidence  = 0.5
	keywordsPerPattern = 5
	minSharedKeywords  = 3
)

var errNoResult = errors.New("classifier returned no result")

type pattern struct {
	keywords []string
	intent   Intent
}

// Chain tries the primary classifier, then learned patterns, then the
// heuristic. Confident primary answers are remembered by the message's top
// keywords so similar messages keep their intent while the primary is down.
// Chain is safe for concurrent use.
type Chain struct {
	primary   Classifier
	heuristic *Heuristic
	logger    *zap.Logger

	mu       sync.Mutex
	history  []string
	next     int
	patterns []pattern
}

// NewChain creates a Chain. primary may be nil.
func NewChain(primary Classifier, heuristic *Heuristic, logger *zap.Logger) *Chain {
	return &Chain{primary: primary, heuristic: heuristic, logger: logger}
}

func (c *Chain) Classify(ctx context.Context, text string) (*Result, error) {
	history := c.History()
	defer c.remember(text)

	if c.primary != nil {
		var (
			res *Result
			err error
		)
		if hc, ok := c.primary.(historyClassifier); ok {
			res, err = hc.ClassifyWithHistory(ctx, text, history)
		} else {
			res, err = c.primary.Classify(ctx, text)
		}
		if err == nil && res == nil {
			err = errNoResult
		}
		if err == nil {
			if res.Confidence >= learnThreshold {
				c.learn(text, res.Intent)
			}
			return res, nil
		}
		c.logger.Warn("primary classifier failed, using fallback", zap.Error(err))
	}

	fallback, _ := c.heuristic.Classify(ctx, text)
	if intent, ok := c.recall(text); ok {
		fallback.Intent = intent
		fallback.Confidence = learnedConfidence
		fallback.Source = SourceLearned
	}
	return fallback, nil
}

// History returns the recent messages, oldest first.
func (c *Chain) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.history))
	if len(c.history) < historySize {
		return append(out, c.history...)
	}
	out = append(out, c.history[c.next:]...)
	return append(out, c.history[:c.next]...)
}

// Reset forgets the conversation and every learned pattern.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.next = 0
	c.patterns = nil
}

func (c *Chain) remember(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) < historySize {
		c.history = append(c.history, text)
		return
	}
	c.history[c.next] = text
	c.next = (c.next + 1) % historySize
}

func (c *Chain) learn(text string, intent Intent) {
	kw := Keywords(text, keywordsPerPattern)
	if len(kw) < minSharedKeywords {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.patterns) >= maxPatterns {
		c.patterns = c.patterns[1:]
	}
	c.patterns = append(c.patterns, pattern{keywords: kw, intent: intent})
}

func (c *Chain) recall(text string) (Intent, bool) {
	kw := Keywords(text, keywordsPerPattern)
	set := make(map[string]struct{}, len(kw))
	for _, k := range kw {
		set[k] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	best, bestShared := -1, 0
	for i := len(c.patterns) - 1; i >= 0; i-- {
		shared := 0
		for _, k := range c.patterns[i].keywords {
			if _, ok := set[k]; ok {
				shared++
			}
		}
		if shared >= minSharedKeywords && shared > bestShared {
			best, bestShared = i, shared
		}
	}
	if best < 0 {
		return "", false
	}
	return c.patterns[best].intent, true
}

var commonWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "you": {}, "can": {}, "please": {}, "what": {}, "with": {},
	"this": {}, "that": {}, "are": {}, "was": {}, "have": {}, "has": {}, "would": {}, "could": {},
	"should": {}, "from": {}, "into": {}, "about": {}, "some": {}, "like": {}, "just": {}, "want": {},
	"need": {}, "give": {}, "get": {}, "how": {}, "why": {}, "who": {}, "which": {}, "when": {},
}

// Keywords returns up to n significant words of text ranked by frequency,
// then by first appearance.
func Keywords(text string, n int) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	count := make(map[string]int)
	first := make(map[string]int)
	for i, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, ok := commonWords[w]; ok {
			continue
		}
		if _, ok := count[w]; !ok {
			first[w] = i
		}
		count[w]++
	}
	out := make([]string, 0, len(count))
	for w := range count {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if count[out[i]] != count[out[j]] {
			return count[out[i]] > count[out[j]]
		}
		return first[out[i]] < first[out[j]]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
