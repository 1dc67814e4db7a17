package vmc

import "maps"

// defaultTranslations maps VRM 0.x preset names, as sent by VMC
// performers, onto VRM 1.0 expression names.
var defaultTranslations = map[string]string{
	"Joy":       "happy",
	"Angry":     "angry",
	"Sorrow":    "sad",
	"Fun":       "relaxed",
	"A":         "aa",
	"I":         "ih",
	"U":         "ou",
	"E":         "ee",
	"O":         "oh",
	"Neutral":   "neutral",
	"Blink":     "blink",
	"Blink_L":   "blinkLeft",
	"Blink_R":   "blinkRight",
	"LookUp":    "lookUp",
	"LookDown":  "lookDown",
	"LookLeft":  "lookLeft",
	"LookRight": "lookRight",
}

// Translations is an immutable blend-shape name table. The zero value
// translates nothing. Values are safe to share between goroutines.
type Translations struct {
	m map[string]string
}

// DefaultTranslations returns the built-in table.
func DefaultTranslations() Translations {
	return Translations{m: defaultTranslations}
}

// NewTranslations builds a table from m. The map is copied.
func NewTranslations(m map[string]string) Translations {
	return Translations{m: maps.Clone(m)}
}

// WithOverrides returns a new table holding t's entries with overrides
// applied on top. An override mapping a name to "" removes that name.
func (t Translations) WithOverrides(overrides map[string]string) Translations {
	m := make(map[string]string, len(t.m)+len(overrides))
	maps.Copy(m, t.m)
	for k, v := range overrides {
		if v == "" {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	return Translations{m: m}
}

// Translate returns the canonical name for name, or name itself if the
// table has no entry for it.
func (t Translations) Translate(name string) string {
	if v, ok := t.m[name]; ok {
		return v
	}
	return name
}

// Lookup reports the translation for name and whether one exists.
func (t Translations) Lookup(name string) (string, bool) {
	v, ok := t.m[name]
	return v, ok
}

func (t Translations) Len() int { return len(t.m) }

// Map returns a copy of the table.
func (t Translations) Map() map[string]string {
	return maps.Clone(t.m)
}
