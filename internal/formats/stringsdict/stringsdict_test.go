package stringsdict

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fr.stringsdict")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

const sampleDict = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CharactersRemaining</key>
	<dict>
		<key>NSStringLocalizedFormatKey</key>
		<string>%#@chars@</string>
		<key>chars</key>
		<dict>
			<key>NSStringFormatSpecTypeKey</key>
			<string>NSStringPluralRuleType</string>
			<key>NSStringFormatValueTypeKey</key>
			<string>d</string>
			<key>one</key>
			<string>%d character remaining</string>
			<key>other</key>
			<string>%d characters remaining</string>
		</dict>
	</dict>
</dict>
</plist>
`

func TestReadFlattensQuantityLeaves(t *testing.T) {
	path := writeTemp(t, sampleDict)
	h := Handler{}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	v, ok := m.GetPath("CharactersRemaining.chars.one")
	if !ok || v != "%d character remaining" {
		t.Fatalf("CharactersRemaining.chars.one = %q, %v", v, ok)
	}
}

func TestWriteFullInjectsTranslatedLeavesPreservingStructure(t *testing.T) {
	path := writeTemp(t, sampleDict)
	h := Handler{}
	m, err := h.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	m.SetPath("CharactersRemaining.chars.one", "%d caractere restant")
	m.SetPath("CharactersRemaining.chars.other", "%d caracteres restants")

	out := filepath.Join(t.TempDir(), "out.stringsdict")
	if err := h.WriteFull(out, m); err != nil {
		t.Fatalf("WriteFull: %v", err)
	}
	got, _ := os.ReadFile(out)
	s := string(got)
	if !strings.Contains(s, "%d caractere restant</string>") {
		t.Fatalf("translated leaf not written:\n%s", s)
	}
	if !strings.Contains(s, "NSStringFormatSpecTypeKey") {
		t.Fatalf("format-spec metadata lost:\n%s", s)
	}
	if !strings.Contains(s, "%#@chars@</string>") {
		t.Fatalf("localized format key lost:\n%s", s)
	}
}
