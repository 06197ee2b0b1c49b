package speech

import (
	"regexp"
	"strings"
	"time"
)

// Voice is a synthesis voice offered by a backend.
type Voice struct {
	Name   string
	Lang   string
	Gender string
}

// Preference is one step of the ordered voice-selection policy.
type Preference func(Voice) bool

// knownFemaleNames are platform voice names preferred outright before any
// heuristic matching.
var knownFemaleNames = map[string]bool{
	"Google UK English Female": true,
	"Google US English Female": true,
	"Samantha":                 true,
	"Zira":                     true,
	"Eva":                      true,
	"Microsoft Eva Mobile":     true,
}

var femaleShortlist = regexp.MustCompile(`(?i)(Samantha|Zira|Eva|Susan|Karen)`)

// DefaultPreferences is the ordered voice-selection policy: known female
// voices, anything self-describing as female, a name shortlist, vendor
// voices, then first available. The final predicate always matches, so
// selection never fails when any voice exists for the language.
func DefaultPreferences() []Preference {
	return []Preference{
		func(v Voice) bool { return knownFemaleNames[v.Name] },
		func(v Voice) bool {
			return strings.Contains(strings.ToLower(v.Name), "female") || strings.EqualFold(v.Gender, "female")
		},
		func(v Voice) bool { return femaleShortlist.MatchString(v.Name) },
		func(v Voice) bool { return strings.Contains(v.Name, "Google") },
		func(v Voice) bool { return true },
	}
}

// SelectVoice picks the best voice for a language by running each preference
// over the language-matching voices in order. It reports false only when no
// voice matches the language at all; the backend's default voice applies
// then.
func SelectVoice(voices []Voice, lang string, prefs []Preference) (Voice, bool) {
	var filtered []Voice
	for _, v := range voices {
		if v.Lang == lang {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return Voice{}, false
	}

	if len(prefs) == 0 {
		prefs = DefaultPreferences()
	}
	for _, pref := range prefs {
		for _, v := range filtered {
			if pref(v) {
				return v, true
			}
		}
	}
	return Voice{}, false
}

// DetectLanguage tags text with a speech locale by script: Thai, Han, or
// the English default.
func DetectLanguage(text string) string {
	for _, r := range text {
		if r >= 0x0e00 && r <= 0x0e7f {
			return "th-TH"
		}
	}
	for _, r := range text {
		if r >= 0x4e00 && r <= 0x9fff {
			return "zh-CN"
		}
	}
	return "en-US"
}

// IsLogographic reports whether the language's script has no usable word
// boundaries, so boundary events must be estimated.
func IsLogographic(lang string) bool {
	return strings.HasPrefix(lang, "zh")
}

// VoiceLister exposes a possibly asynchronous voice inventory, in the shape
// platform speech APIs provide it: an immediate listing that may be empty,
// plus a change notification that some platforms never fire.
type VoiceLister interface {
	Voices() []Voice
	OnVoicesChanged(fn func())
}

// AwaitVoices returns the lister's voices, waiting for the change
// notification when the initial listing is empty. The timeout covers
// platforms that never fire the notification; whatever is listed by then is
// returned.
func AwaitVoices(lister VoiceLister, timeout time.Duration) []Voice {
	if voices := lister.Voices(); len(voices) > 0 {
		return voices
	}

	changed := make(chan struct{}, 1)
	lister.OnVoicesChanged(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-changed:
	case <-timer.C:
	}
	return lister.Voices()
}
