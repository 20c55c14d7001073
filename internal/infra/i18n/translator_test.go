//go:build !integration

package i18n

import (
	"testing"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: hello\nwelcome_user: hello %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "hello" {
			t.Errorf("wanted 'hello', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Ada"); got != "hello Ada" {
			t.Errorf("wanted 'hello Ada', got '%s'", got)
		}
	})
}

func TestEmbeddedLocales(t *testing.T) {
	translator, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator(en): %v", err)
	}
	got := translator.T("new_mail_header", "a@x.test")
	if got == "new_mail_header" {
		t.Fatal("embedded en locale is missing new_mail_header")
	}
}
