package query

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilterSaveLoad_RoundTrip(t *testing.T) {
	f := NewFilter()
	gb := GroupBy{Kind: GroupByFieldKind, Field: "worker"}
	f.GroupBy = &gb
	f.AddModifier(Modifier{Field: "status", Op: OpEquals, Value: "ok"})
	f.AddModifier(Modifier{Field: "msg", Op: OpContains, Value: "timeout"})

	path := filepath.Join(t.TempDir(), "saved.txt")
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok := Load(path)
	if !ok {
		t.Fatal("Load failed")
	}
	if loaded.GroupBy == nil || *loaded.GroupBy != gb {
		t.Fatalf("GroupBy = %+v, want %+v", loaded.GroupBy, gb)
	}
	mods := loaded.Modifiers()
	if len(mods) != 2 || mods[0].Field != "status" || mods[1].Field != "msg" {
		t.Fatalf("Modifiers = %+v", mods)
	}
}

func TestFilterLoad_StopsAtBlankLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	content := "event.field.a == \"1\"\n\nevent.field.b == \"2\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, ok := Load(path)
	if !ok {
		t.Fatal("Load failed")
	}
	mods := f.Modifiers()
	if len(mods) != 1 || mods[0].Field != "a" {
		t.Fatalf("Modifiers = %+v, want only field a", mods)
	}
}

func TestFilterLoad_AbortsOnParseFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	content := "event.field.a == \"1\"\nnot a valid clause\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := Load(path); ok {
		t.Fatal("expected Load to fail on malformed clause")
	}
}

func TestFilterLoad_MissingFile(t *testing.T) {
	if _, ok := Load(filepath.Join(t.TempDir(), "nope.txt")); ok {
		t.Fatal("expected Load to fail for a missing file")
	}
}
