package app

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

var (
	shareChapter = domain.Chapter{Number: 1, EnglishName: "Al-Faatiha"}
	shareVerse   = domain.Verse{Number: 2, NumberInSurah: 2, Arabic: "ٱلْحَمْدُ لِلَّهِ رَبِّ ٱلْعَٰلَمِينَ", Translation: "All praise is due to God alone"}
)

func TestBuildShare_Copy(t *testing.T) {
	for _, target := range []string{"", ShareCopy} {
		s, err := BuildShare(target, shareChapter, shareVerse)
		if err != nil {
			t.Fatalf("BuildShare(%q): %v", target, err)
		}
		want := shareVerse.Arabic + "\n\n" + shareVerse.Translation + "\n\n— Al-Faatiha, Ayah 2"
		if s.Target != ShareCopy || s.Text != want || s.URL != "" {
			t.Fatalf("unexpected share: %+v", s)
		}
	}
}

func TestBuildShare_Links(t *testing.T) {
	wa, err := BuildShare(ShareWhatsApp, shareChapter, shareVerse)
	if err != nil {
		t.Fatalf("whatsapp: %v", err)
	}
	if !strings.HasPrefix(wa.URL, "https://wa.me/?text=") {
		t.Fatalf("unexpected whatsapp url %q", wa.URL)
	}
	decoded, err := url.QueryUnescape(strings.TrimPrefix(wa.URL, "https://wa.me/?text="))
	if err != nil || decoded != wa.Text {
		t.Fatalf("whatsapp text not round-tripped: %v", err)
	}

	tw, err := BuildShare(ShareTwitter, shareChapter, shareVerse)
	if err != nil {
		t.Fatalf("twitter: %v", err)
	}
	if strings.Contains(tw.Text, shareVerse.Arabic) {
		t.Fatalf("tweet must carry the translation only: %q", tw.Text)
	}
	if !strings.HasPrefix(tw.Text, shareVerse.Translation) || !strings.HasSuffix(tw.Text, "#Quran #Hidaya") {
		t.Fatalf("unexpected tweet: %q", tw.Text)
	}
	if !strings.HasPrefix(tw.URL, "https://twitter.com/intent/tweet?text=") {
		t.Fatalf("unexpected twitter url %q", tw.URL)
	}
}

func TestBuildShare_UnknownTarget(t *testing.T) {
	if _, err := BuildShare("fax", shareChapter, shareVerse); !IsCode(err, CodeInvalidParams) {
		t.Fatalf("expected invalid_params, got %v", err)
	}
}

func TestShareQR_IsPNG(t *testing.T) {
	png, err := ShareQR(shareChapter, shareVerse)
	if err != nil {
		t.Fatalf("ShareQR: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("expected a PNG image")
	}
}
