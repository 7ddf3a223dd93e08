package domain

const (
	DefaultReciter            = "ar.alafasy"
	DefaultTranslationEdition = "en.asad"
	ArabicTextEdition         = "quran-uthmani"

	MaxSpeed = 4.0
)

type Settings struct {
	// Édition audio (récitateur) utilisée pour charger les sourates.
	Reciter string  `json:"reciter"`
	Speed   float64 `json:"speed"`
	Volume  float64 `json:"volume"`

	// Mode sombre activé par défaut.
	DarkMode bool `json:"darkMode"`
}

func DefaultSettings() Settings {
	return Settings{
		Reciter:  DefaultReciter,
		Speed:    1,
		Volume:   1,
		DarkMode: true,
	}
}
