package routing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length thresholds in characters. Messages between the two are neither
// simple nor long.
const (
	longMessageLen   = 200
	simpleMessageLen = 50
)

// complexKeywords marks subject matter that benefits from the strongest
// model. Mixed Hebrew and English because users write in both.
var complexKeywords = []string{
	"מתמטיקה", "מתמטי", "אלגברה", "גיאומטריה", "חשבון דיפרנציאלי",
	"פיזיקה", "פיזיקלי", "כימיה", "ביולוגיה",
	"calculus", "derivative", "integral", "quantum", "relativity",
	"תוכנה", "קוד", "programming", "code", "algorithm",
}

var (
	hebrewRegex = regexp.MustCompile(`[\x{0590}-\x{05FF}]`)
	mathRegex   = regexp.MustCompile(`[+\-*/=<>≤≥∫∑√]`)
	codeRegex   = regexp.MustCompile(`(?i)\b(function|const|let|var|if|for|while|class|import|from)\b`)
)

// MessageProfile classifies one user message for routing purposes
type MessageProfile struct {
	IsHebrew  bool
	IsComplex bool
	IsSimple  bool
	HasMath   bool
	HasCode   bool
}

// ProfileMessage derives the routing profile of a message. Length is
// measured in runes so Hebrew text is not penalized for its UTF-8 width.
func ProfileMessage(message string) MessageProfile {
	lower := strings.ToLower(message)

	hasComplexKeywords := false
	for _, keyword := range complexKeywords {
		if strings.Contains(lower, keyword) {
			hasComplexKeywords = true
			break
		}
	}

	length := utf8.RuneCountInString(message)
	isLong := length > longMessageLen
	isShort := length < simpleMessageLen

	return MessageProfile{
		IsHebrew:  hebrewRegex.MatchString(message),
		IsComplex: hasComplexKeywords || isLong,
		IsSimple:  isShort && !hasComplexKeywords,
		HasMath:   mathRegex.MatchString(message),
		HasCode:   codeRegex.MatchString(message),
	}
}
