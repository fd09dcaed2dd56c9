package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// DefaultVocabularyVersion identifies the built-in tier and noise word sets
const DefaultVocabularyVersion = "2025.1"

var (
	// "12GB RAM", "8 GB RAM": memory, never storage
	ramPattern = regexp.MustCompile(`(?i)\d+\s*gb\s*ram\b`)

	terabytePattern = regexp.MustCompile(`(?i)(\d+)\s*tb\b`)
	gigabytePattern = regexp.MustCompile(`(?i)(\d+)\s*gb\b`)
)

// defaultTierWords change product identity when present on only one side
var defaultTierWords = []string{
	"ultra", "plus", "pro", "max", "mini", "fe", "fold", "flip", "lite", "edge", "air",
}

// defaultNoiseWords never identify a model number on their own
var defaultNoiseWords = []string{
	// Brands
	"apple", "iphone", "samsung", "galaxy", "google", "pixel", "oneplus", "xiaomi", "redmi",
	"poco", "motorola", "moto", "nokia", "sony", "xperia", "huawei", "honor", "oppo", "realme",
	"vivo", "nothing", "fairphone", "doro", "zte", "tcl", "cat", "asus",
	// Colors
	"black", "white", "blue", "green", "red", "pink", "purple", "yellow", "gold", "silver",
	"gray", "grey", "graphite", "titanium", "midnight", "starlight", "obsidian", "porcelain",
	"navy", "mint", "cream", "lavender", "ultramarine", "teal", "coral", "natural", "desert",
	"sort", "hvid", "blå", "grøn", "rød", "lyserød", "lilla", "gul", "guld", "sølv", "grå",
	// Connectivity
	"5g", "4g", "3g", "lte", "wifi", "wi", "fi", "nfc", "bluetooth", "cellular", "unlocked",
	// Audio and SIM
	"esim", "sim", "dual", "dualsim", "nano", "earbuds", "headphones", "headset", "wireless",
	"anc", "tws", "jack",
}

// Vocabulary holds the named word sets the feature extractor and disqualifier work from
type Vocabulary struct {
	Version   string
	tierList  []string
	tierWords map[string]bool
	noise     map[string]bool
}

// DefaultVocabulary returns the built-in tier and noise word sets
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(DefaultVocabularyVersion, defaultTierWords, defaultNoiseWords)
}

// NewVocabulary builds a vocabulary. Tier words are always treated as noise words too.
func NewVocabulary(version string, tierWords, noiseWords []string) *Vocabulary {
	v := &Vocabulary{
		Version:   version,
		tierWords: make(map[string]bool),
		noise:     make(map[string]bool),
	}
	for _, w := range tierWords {
		w = Normalize(w)
		if w == "" || v.tierWords[w] {
			continue
		}
		v.tierWords[w] = true
		v.tierList = append(v.tierList, w)
		v.noise[w] = true
	}
	for _, w := range noiseWords {
		if w = Normalize(w); w != "" {
			v.noise[w] = true
		}
	}
	return v
}

// WithExtra returns a copy of the vocabulary extended with additional words
func (v *Vocabulary) WithExtra(tierWords, noiseWords []string) *Vocabulary {
	if len(tierWords) == 0 && len(noiseWords) == 0 {
		return v
	}
	noise := make([]string, 0, len(v.noise)+len(noiseWords))
	for w := range v.noise {
		noise = append(noise, w)
	}
	noise = append(noise, noiseWords...)
	tiers := append(append([]string{}, v.tierList...), tierWords...)

	base, _, _ := strings.Cut(v.Version, "+")
	extended := NewVocabulary(base, tiers, noise)
	extended.Version = base + "+" + extended.digest()
	return extended
}

// digest fingerprints the word sets so that every distinct vocabulary gets its own version
func (v *Vocabulary) digest() string {
	h := sha256.New()
	for _, set := range []map[string]bool{v.tierWords, v.noise} {
		words := make([]string, 0, len(set))
		for w := range set {
			words = append(words, w)
		}
		sort.Strings(words)
		h.Write([]byte(strings.Join(words, "\n")))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// TierWords returns the tier words in declaration order
func (v *Vocabulary) TierWords() []string {
	return append([]string(nil), v.tierList...)
}

// IsTierWord reports whether w is a tier word
func (v *Vocabulary) IsTierWord(w string) bool {
	return v.tierWords[w]
}

// IsNoise reports whether w belongs to the noise vocabulary
func (v *Vocabulary) IsNoise(w string) bool {
	return v.noise[w]
}

// Features are the structured signals extracted from one product text
type Features struct {
	Text       string   `json:"text"`
	Normalized string   `json:"normalized"`
	Tokens     TokenSet `json:"-"`
	StorageGB  *int     `json:"storage_gb,omitempty"`
	ModelToken string   `json:"model_token,omitempty"`
}

// HasStorage reports whether a storage capacity was found
func (f Features) HasStorage() bool {
	return f.StorageGB != nil
}

// Analyze extracts every feature of a product text
func (v *Vocabulary) Analyze(text string) Features {
	f := Features{
		Text:       text,
		Normalized: Normalize(text),
		Tokens:     Tokens(text),
	}
	if gb, ok := ExtractStorage(text); ok {
		f.StorageGB = &gb
	}
	if model, ok := v.ExtractModelToken(text); ok {
		f.ModelToken = model
	}
	return f
}

// ExtractStorage returns the storage capacity in GB. RAM phrases are ignored and
// a terabyte figure takes priority over a gigabyte one.
func ExtractStorage(text string) (int, bool) {
	cleaned := ramPattern.ReplaceAllString(text, " ")

	if m := terabytePattern.FindStringSubmatch(cleaned); m != nil {
		if tb, err := strconv.Atoi(m[1]); err == nil {
			return tb * 1024, true
		}
	}
	if m := gigabytePattern.FindStringSubmatch(cleaned); m != nil {
		if gb, err := strconv.Atoi(m[1]); err == nil {
			return gb, true
		}
	}
	return 0, false
}

// stripCapacities removes RAM and storage phrases
func stripCapacities(text string) string {
	text = ramPattern.ReplaceAllString(text, " ")
	text = terabytePattern.ReplaceAllString(text, " ")
	return gigabytePattern.ReplaceAllString(text, " ")
}

// ExtractModelToken returns the first non-noise token containing a digit,
// e.g. "16e", "s25", "a36".
func (v *Vocabulary) ExtractModelToken(text string) (string, bool) {
	for _, token := range strings.Fields(Normalize(stripCapacities(text))) {
		if v.noise[token] {
			continue
		}
		if strings.IndexFunc(token, unicode.IsNumber) >= 0 {
			return token, true
		}
	}
	return "", false
}

// allTierWords reports whether every part is a tier word
func (v *Vocabulary) allTierWords(parts map[string]bool) bool {
	if len(parts) == 0 {
		return false
	}
	for p := range parts {
		if !v.tierWords[p] {
			return false
		}
	}
	return true
}
