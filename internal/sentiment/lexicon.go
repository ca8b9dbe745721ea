package sentiment

import (
	"context"
	"regexp"
	"strings"
)

// LexiconClassifier is an offline backend that sums opinion-word weights,
// flipping the sign of words inside a short negation window.
type LexiconClassifier struct {
	weights     map[string]float64
	negators    map[string]bool
	intensifier map[string]float64
	window      int
}

var wordPattern = regexp.MustCompile(`[a-z]+(?:'[a-z]+)?`)

// NewLexiconClassifier creates a classifier using the built-in lexicon.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		weights:     opinionWords,
		negators:    negationWords,
		intensifier: intensifierWords,
		window:      3,
	}
}

func (c *LexiconClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Prediction{}, ErrEmptyText
	}
	s := c.Score(text)
	return FromLogits(-s/2, s/2), nil
}

// Score returns the summed polarity of text. Positive means positive sentiment.
func (c *LexiconClassifier) Score(text string) float64 {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	var (
		total   float64
		negLeft int
		boost   = 1.0
	)
	for _, w := range words {
		if c.negators[w] {
			negLeft = c.window
			continue
		}
		if m, ok := c.intensifier[w]; ok {
			boost = m
			continue
		}
		if wt, ok := c.weights[w]; ok {
			wt *= boost
			if negLeft > 0 {
				wt = -wt * 0.75
			}
			total += wt
		}
		boost = 1.0
		if negLeft > 0 {
			negLeft--
		}
	}
	return total
}

var negationWords = map[string]bool{
	"not": true, "no": true, "never": true, "nothing": true, "nobody": true,
	"none": true, "cannot": true, "cant": true, "can't": true, "don't": true,
	"dont": true, "doesn't": true, "doesnt": true, "didn't": true, "didnt": true,
	"isn't": true, "isnt": true, "wasn't": true, "wasnt": true, "won't": true,
	"wont": true, "aren't": true, "hardly": true, "without": true,
}

var intensifierWords = map[string]float64{
	"very": 1.5, "really": 1.4, "so": 1.3, "extremely": 1.8, "super": 1.5,
	"too": 1.3, "totally": 1.5, "absolutely": 1.6, "highly": 1.4, "most": 1.3,
}

var opinionWords = map[string]float64{
	// positive
	"love": 3, "loved": 3, "loving": 2.5, "like": 1.5, "liked": 1.5,
	"good": 2, "great": 3, "excellent": 3.5, "amazing": 3.5, "awesome": 3.5,
	"best": 3, "better": 1.5, "nice": 2, "perfect": 3.5, "fantastic": 3.5,
	"wonderful": 3.5, "easy": 2, "fast": 2, "quick": 1.5, "smooth": 2,
	"reliable": 2, "helpful": 2.5, "useful": 2, "convenient": 2, "simple": 1.5,
	"thanks": 2, "thank": 2, "happy": 2.5, "satisfied": 2.5, "recommend": 2,
	"secure": 1.5, "efficient": 2, "friendly": 2, "works": 1, "working": 0.5,
	"improved": 1.5, "fine": 1, "cool": 1.5, "wow": 2.5, "impressive": 3,
	"enjoy": 2, "appreciate": 2, "beautiful": 2.5, "clean": 1.5, "stable": 1.5,
	"ok": 0.5, "okay": 0.5, "brilliant": 3.5, "superb": 3.5, "seamless": 2.5,

	// negative
	"bad": -2.5, "worst": -3.5, "worse": -2.5, "terrible": -3.5, "horrible": -3.5,
	"awful": -3.5, "poor": -2.5, "hate": -3, "hated": -3, "useless": -3,
	"slow": -2, "crash": -2.5, "crashes": -2.5, "crashing": -2.5, "crashed": -2.5,
	"bug": -2, "bugs": -2, "buggy": -2.5, "error": -2, "errors": -2,
	"freeze": -2.5, "freezes": -2.5, "freezing": -2.5, "stuck": -2, "fail": -2.5,
	"failed": -2.5, "fails": -2.5, "failure": -2.5, "problem": -2, "problems": -2,
	"issue": -1.5, "issues": -1.5, "annoying": -2.5, "disappointed": -2.5, "disappointing": -2.5,
	"frustrating": -3, "broken": -3, "difficult": -1.5, "hard": -1, "complicated": -1.5,
	"waste": -3, "scam": -3.5, "lost": -2, "unable": -2, "unreliable": -2.5,
	"lag": -2, "laggy": -2, "delay": -1.5, "delayed": -1.5, "rubbish": -3,
	"wrong": -2, "sucks": -3, "fix": -1, "unacceptable": -3, "pathetic": -3.5,
	"nonsense": -3, "stupid": -3, "confusing": -2, "boring": -1.5,
}
