package models

import "testing"

func TestCompositeCursorRoundTrip(t *testing.T) {
	createdAt := "2026-03-14 10:30:00 +0000 UTC"
	encoded := EncodeCompositeCursor(createdAt, 42)

	gotTime, gotId := DecodeCompositeCursor(&encoded)
	if gotTime != createdAt {
		t.Fatalf("expected datetime %q, got %q", createdAt, gotTime)
	}
	if gotId != 42 {
		t.Fatalf("expected id 42, got %d", gotId)
	}
}

func TestDecodeCompositeCursor_MalformedFallsBackToFirstPage(t *testing.T) {
	badBase64 := "%%%not-base64%%%"
	noSeparator := EncodeCursor("2026-03-14")
	badId := EncodeCursor("2026-03-14|abc")
	empty := ""

	for _, cursor := range []*string{nil, &empty, &badBase64, &noSeparator, &badId} {
		gotTime, gotId := DecodeCompositeCursor(cursor)
		if gotTime != "" || gotId != 0 {
			t.Fatalf("expected zero cursor, got (%q, %d)", gotTime, gotId)
		}
	}
}
