package chat

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	phonePattern = regexp.MustCompile(`(?:\+7|8|7)(?:[\s\-()]*\d){10}`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)
	// the word right after an explicit introduction is taken in any case
	introPattern = regexp.MustCompile(`(?:^|[^\p{L}])(?i:меня\s+зовут|мо[её]\s+имя|my\s+name\s+is)\s+(\p{L}+(?:\s+\p{Lu}\p{Ll}+)*)`)
	namePattern  = regexp.MustCompile(`(?:^|[^\p{L}])(?i:i\s+am|i'm)\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)*)`)
)

var greetings = []string{
	"привет",
	"приветствую",
	"здравствуй",
	"здравствуйте",
	"добрый день",
	"добрый вечер",
	"доброе утро",
	"доброй ночи",
	"хай",
	"салют",
	"hello",
	"hi",
	"hey",
	"good morning",
	"good afternoon",
	"good evening",
}

// words that look like names when capitalized at the start of a sentence
var nameStopWords = map[string]struct{}{
	"меня": {}, "мое": {}, "моё": {}, "мой": {}, "моя": {}, "имя": {}, "зовут": {},
	"телефон": {}, "номер": {}, "почта": {}, "добрый": {}, "доброе": {}, "доброй": {},
	"день": {}, "вечер": {}, "утро": {}, "ночи": {},
	"да": {}, "нет": {}, "хочу": {}, "спасибо": {}, "пожалуйста": {}, "это": {},
	"my": {}, "name": {}, "phone": {}, "number": {}, "yes": {}, "the": {}, "thanks": {},
}

const minNameLength = 3

// IsGreeting reports whether text contains a greeting word or phrase.
func IsGreeting(text string) bool {
	lower := strings.ToLower(text)
	for _, g := range greetings {
		if strings.Contains(lower, g) {
			return true
		}
	}
	return false
}

// HasGreetingWord reports whether text contains a greeting as whole words,
// so "Nothing" does not count as "hi".
func HasGreetingWord(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	joined := " " + strings.Join(words, " ") + " "
	for _, g := range greetings {
		if strings.Contains(joined, " "+g+" ") {
			return true
		}
	}
	return false
}

func isGreetingPhrase(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, g := range greetings {
		if lower == g {
			return true
		}
	}
	for _, word := range strings.Fields(lower) {
		for _, g := range greetings {
			if word == g {
				return true
			}
		}
	}
	return false
}

func acceptableName(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if utf8.RuneCountInString(candidate) < minNameLength {
		return false
	}
	if isGreetingPhrase(candidate) {
		return false
	}
	_, stop := nameStopWords[strings.ToLower(candidate)]
	return !stop
}

func isCapitalized(word string) bool {
	first, size := utf8.DecodeRuneInString(word)
	if !unicode.IsUpper(first) {
		return false
	}
	for _, r := range word[size:] {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// ExtractName finds a person's name, first from an explicit introduction
// ("меня зовут Иван", "my name is Ann"), then from the first capitalized word.
func ExtractName(text string) string {
	for _, m := range introPattern.FindAllStringSubmatch(text, -1) {
		if candidate := strings.TrimSpace(m[1]); acceptableName(candidate) {
			return titleName(candidate)
		}
	}
	for _, m := range namePattern.FindAllStringSubmatch(text, -1) {
		if candidate := strings.TrimSpace(m[1]); acceptableName(candidate) {
			return candidate
		}
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, word := range words {
		word = strings.Trim(word, "-")
		if isCapitalized(word) && acceptableName(word) {
			return word
		}
	}
	return ""
}

func titleName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// ExtractPhone returns the first telephone-shaped substring verbatim.
func ExtractPhone(text string) string {
	return phonePattern.FindString(text)
}

// NormalizePhone brings a Russian number to +7XXXXXXXXXX. Unrecognized
// input is returned unchanged.
func NormalizePhone(raw string) string {
	var sb strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			sb.WriteRune(ch)
		}
	}
	digits := sb.String()
	if len(digits) == 11 && digits[0] == '8' {
		digits = "7" + digits[1:]
	}
	if len(digits) == 11 && digits[0] == '7' {
		return "+" + digits
	}
	return raw
}

// ExtractEmail returns the first e-mail address in text.
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

// ContainsAny reports whether the lower-cased text contains any of words.
func ContainsAny(text string, words ...string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
