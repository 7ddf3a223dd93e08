package app

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

const (
	ShareCopy     = "copy"
	ShareWhatsApp = "whatsapp"
	ShareTwitter  = "twitter"
)

const shareQRSize = 256

type Share struct {
	Target string `json:"target"`
	Text   string `json:"text"`
	URL    string `json:"url,omitempty"`
}

// BuildShare met en forme un verset pour le presse-papiers ou un réseau social.
func BuildShare(target string, chapter domain.Chapter, verse domain.Verse) (Share, error) {
	ref := fmt.Sprintf("— %s, Ayah %d", chapter.EnglishName, verse.NumberInSurah)
	switch target {
	case "", ShareCopy:
		return Share{Target: ShareCopy, Text: shareText(chapter, verse)}, nil
	case ShareWhatsApp:
		text := shareText(chapter, verse)
		return Share{Target: target, Text: text, URL: "https://wa.me/?text=" + url.QueryEscape(text)}, nil
	case ShareTwitter:
		text := verse.Translation + "\n\n" + ref + "\n\n#Quran #Hidaya"
		return Share{Target: target, Text: text, URL: "https://twitter.com/intent/tweet?text=" + url.QueryEscape(text)}, nil
	default:
		return Share{}, coded(CodeInvalidParams, fmt.Sprintf("unknown share target %q", target), nil)
	}
}

func shareText(chapter domain.Chapter, verse domain.Verse) string {
	return fmt.Sprintf("%s\n\n%s\n\n— %s, Ayah %d", verse.Arabic, verse.Translation, chapter.EnglishName, verse.NumberInSurah)
}

// ShareQR encode le texte de partage en PNG.
func ShareQR(chapter domain.Chapter, verse domain.Verse) ([]byte, error) {
	png, err := qrcode.Encode(shareText(chapter, verse), qrcode.Medium, shareQRSize)
	if err != nil {
		return nil, coded(CodeInvalidParams, "failed to encode qr code", err)
	}
	return png, nil
}
