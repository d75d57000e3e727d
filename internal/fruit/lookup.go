package fruit

import (
	"fmt"
	"strings"
	"unicode"
)

// Policy selects how a fruit option is turned into a nutrition API lookup key.
type Policy string

const (
	PolicyBasic     Policy = "basic"
	PolicySearchOn  Policy = "search_on"
	PolicyHeuristic Policy = "heuristic"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyBasic, PolicySearchOn, PolicyHeuristic:
		return p, nil
	default:
		return "", fmt.Errorf("unknown lookup policy %q", s)
	}
}

// Key derives the lookup key for opt. The result may still be unknown to the API.
func (p Policy) Key(opt Option) string {
	switch p {
	case PolicySearchOn:
		return SearchOnKey(opt)
	case PolicyHeuristic:
		return HeuristicKey(opt.Name)
	default:
		return BasicKey(opt.Name)
	}
}

// BasicKey is the display name, lowercased.
func BasicKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SearchOnKey prefers the search_on alias and falls back to the display name.
func SearchOnKey(opt Option) string {
	if s := strings.TrimSpace(opt.SearchOn); s != "" {
		return strings.ToLower(s)
	}
	return BasicKey(opt.Name)
}

// multiWordFruits maps names the first-token rule would mangle.
var multiWordFruits = map[string]string{
	"dragon fruit":    "dragonfruit",
	"passion fruit":   "passionfruit",
	"star fruit":      "starfruit",
	"kiwi fruit":      "kiwi",
	"ugli fruit":      "ugli",
	"vanilla fruit":   "vanilla",
	"honeydew melon":  "honeydew",
	"yerba mate":      "yerba",
	"ziziphus jujube": "jujube",
}

// HeuristicKey normalizes a display name: non-letters become spaces and every token
// is singularized. The longest leading run of tokens found in the multi-word table
// wins (so "Passion Fruits" and "Dragon Fruit (Pitaya)" still match), otherwise the
// first token is the key.
func HeuristicKey(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, name)

	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return ""
	}

	for i, tok := range tokens {
		tokens[i] = singularize(tok)
	}
	for n := len(tokens); n >= 2; n-- {
		if key, ok := multiWordFruits[strings.Join(tokens[:n], " ")]; ok {
			return key
		}
	}
	return tokens[0]
}

func singularize(word string) string {
	if len(word) <= 3 {
		return word
	}
	switch {
	case strings.HasSuffix(word, "ies"):
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "sses"),
		strings.HasSuffix(word, "oes"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}
