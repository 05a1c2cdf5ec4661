package ojson

import (
	"strings"
	"testing"
)

func TestWriteUnicodeEscaping(t *testing.T) {
	obj := NewObject()
	obj.Set("unicode", "Пр2ивет")

	var sb strings.Builder
	if err := Write(&sb, obj); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `{"unicode":"\u041f\u04402\u0438\u0432\u0435\u0442"}`
	if got := sb.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	obj := NewObject()
	obj.Set("name", "com.x.y")
	obj.Set("version", "1.2.3")
	obj.Set("tags", []any{"a", "b"})
	nested := NewObject()
	nested.Set("shasum", "deadbeef")
	obj.Set("dist", nested)

	var sb strings.Builder
	if err := Write(&sb, obj); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parsed, err := Parse([]byte(sb.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var sb2 strings.Builder
	if err := Write(&sb2, parsed); err != nil {
		t.Fatalf("Write (round 2): %v", err)
	}
	if sb.String() != sb2.String() {
		t.Fatalf("round trip mismatch:\n first:  %s\n second: %s", sb.String(), sb2.String())
	}
}

func TestWriteIndent(t *testing.T) {
	obj := NewObject()
	obj.Set("a", int64(1))
	obj.Set("b", []any{int64(1), int64(2)})

	var sb strings.Builder
	if err := WriteIndent(&sb, obj, "\t"); err != nil {
		t.Fatalf("WriteIndent: %v", err)
	}
	want := "{\n\t\"a\": 1,\n\t\"b\": [\n\t\t1,\n\t\t2\n\t]\n}"
	if got := sb.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteEmptyContainers(t *testing.T) {
	obj := NewObject()
	obj.Set("empty_obj", NewObject())
	obj.Set("empty_arr", []any{})

	var sb strings.Builder
	if err := Write(&sb, obj); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `{"empty_obj":{},"empty_arr":[]}`
	if got := sb.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
