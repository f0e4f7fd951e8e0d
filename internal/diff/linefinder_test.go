package diff

import "testing"

func TestFindLineJSONNested(t *testing.T) {
	data := []byte(`{
  "greeting": "Hi",
  "nav": {
    "home": "Home",
    "about": "About"
  }
}
`)
	ln, ok := FindLine("en.json", data, "nav.about")
	if !ok {
		t.Fatalf("expected to find nav.about")
	}
	if ln != 5 {
		t.Fatalf("nav.about line = %d, want 5", ln)
	}
}

func TestFindLineYAMLNested(t *testing.T) {
	data := []byte("greeting: Hi\nnav:\n  home: Home\n  about: About\n")
	ln, ok := FindLine("en.yml", data, "nav.about")
	if !ok {
		t.Fatalf("expected to find nav.about")
	}
	if ln != 4 {
		t.Fatalf("nav.about line = %d, want 4", ln)
	}
}

func TestFindLineFlatProperties(t *testing.T) {
	data := []byte("greeting=Hi\nfarewell=Bye\n")
	ln, ok := FindLine("en.properties", data, "farewell")
	if !ok || ln != 2 {
		t.Fatalf("farewell line = %d, ok=%v, want 2,true", ln, ok)
	}
}

func TestFindLineGettextMsgid(t *testing.T) {
	data := []byte("msgid \"greeting\"\nmsgstr \"Hi\"\n\nmsgid \"farewell\"\nmsgstr \"Bye\"\n")
	ln, ok := FindLine("fr.po", data, "farewell")
	if !ok || ln != 4 {
		t.Fatalf("farewell line = %d, ok=%v, want 4,true", ln, ok)
	}
}
