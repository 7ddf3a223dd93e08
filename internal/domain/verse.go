package domain

// TotalVerses est le nombre total de versets du Coran (numérotation globale 1..6236).
const TotalVerses = 6236

// TotalChapters est le nombre de sourates.
const TotalChapters = 114

type Chapter struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"englishName"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	RevelationType         string `json:"revelationType"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
}

// Verse est immuable une fois chargé.
type Verse struct {
	// Number est le numéro global (1..6236).
	Number        int    `json:"number"`
	NumberInSurah int    `json:"numberInSurah"`
	Arabic        string `json:"arabic"`
	Translation   string `json:"translation"`
	// Audio est vide si aucune récitation n'est disponible pour ce verset.
	Audio string `json:"audio,omitempty"`
}

func (v Verse) HasAudio() bool {
	return v.Audio != ""
}

// VerseText est la forme brute d'un verset renvoyée par le fournisseur de contenu,
// avant fusion avec la traduction.
type VerseText struct {
	Number        int      `json:"number"`
	NumberInSurah int      `json:"numberInSurah"`
	Text          string   `json:"text"`
	Audio         string   `json:"audio,omitempty"`
	AudioFallback []string `json:"audioSecondary,omitempty"`
	Chapter       *Chapter `json:"surah,omitempty"`
}

// AudioLocator renvoie l'audio principal, sinon le premier audio secondaire.
func (v VerseText) AudioLocator() string {
	if v.Audio != "" {
		return v.Audio
	}
	if len(v.AudioFallback) > 0 {
		return v.AudioFallback[0]
	}
	return ""
}

// ChapterEdition est une sourate dans une édition donnée (texte arabe + audio, ou traduction).
type ChapterEdition struct {
	Chapter
	Edition string      `json:"edition"`
	Verses  []VerseText `json:"ayahs"`
}

func ValidChapterNumber(n int) bool {
	return n >= 1 && n <= TotalChapters
}

func ValidVerseNumber(n int) bool {
	return n >= 1 && n <= TotalVerses
}

// MergeVerses combine le texte arabe (avec audio) et la traduction, alignés par position.
// Une traduction manquante donne un texte vide.
func MergeVerses(arabic []VerseText, translation []VerseText) []Verse {
	out := make([]Verse, 0, len(arabic))
	for i, a := range arabic {
		tr := ""
		if i < len(translation) {
			tr = translation[i].Text
		}
		out = append(out, Verse{
			Number:        a.Number,
			NumberInSurah: a.NumberInSurah,
			Arabic:        a.Text,
			Translation:   tr,
			Audio:         a.AudioLocator(),
		})
	}
	return out
}
