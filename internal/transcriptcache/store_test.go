package transcriptcache_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"podcut/internal/testsupport"
	"podcut/internal/transcriptcache"
	"podcut/internal/transcription"
)

func sampleTranscript(text string) transcription.Transcript {
	return transcription.Transcript{
		Text: text,
		Segments: []transcription.Segment{
			{Speaker: "A", Start: 0, End: 2.5, Text: text},
		},
		Duration: 2.5,
		Language: "en",
		Chunks:   1,
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}

	want := sampleTranscript("hello")
	if err := store.Set(ctx, "abc123", want, transcription.Metadata{FileName: "show.mp3", Size: 42, Chunks: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := store.Get(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Text != want.Text || len(got.Segments) != 1 || got.Segments[0].Speaker != "A" || got.Duration != 2.5 {
		t.Fatalf("transcript = %+v", got)
	}

	if err := store.Set(ctx, "abc123", sampleTranscript("replaced"), transcription.Metadata{FileName: "show.mp3"}); err != nil {
		t.Fatalf("Set replace: %v", err)
	}
	got, _, _ = store.Get(ctx, "abc123")
	if got.Text != "replaced" {
		t.Fatalf("text = %q, want replaced", got.Text)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestListRemoveClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	for _, hash := range []string{"aaaa1111", "aaaa2222", "bbbb3333"} {
		meta := transcription.Metadata{FileName: hash + ".mp3", Size: 10, Chunks: 2}
		if err := store.Set(ctx, hash, sampleTranscript(hash), meta); err != nil {
			t.Fatalf("Set %s: %v", hash, err)
		}
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Chunks != 2 || e.SizeBytes != 10 || e.Language != "en" || e.CreatedAt.IsZero() {
			t.Fatalf("entry = %+v", e)
		}
	}

	if _, err := store.Remove(ctx, "aaaa"); !errors.Is(err, transcriptcache.ErrAmbiguousHash) {
		t.Fatalf("Remove(ambiguous) err = %v", err)
	}
	removed, err := store.Remove(ctx, "BBBB")
	if err != nil || !removed {
		t.Fatalf("Remove(prefix) = %v, %v", removed, err)
	}
	removed, err = store.Remove(ctx, "cccc")
	if err != nil || removed {
		t.Fatalf("Remove(missing) = %v, %v", removed, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Fatalf("count after clear = %d", n)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := transcriptcache.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Set(ctx, "hash", sampleTranscript("kept"), transcription.Metadata{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = first.Close()

	second := testsupport.MustOpenCache(t, cfg)
	got, ok, err := second.Get(ctx, "hash")
	if err != nil || !ok || got.Text != "kept" {
		t.Fatalf("Get after reopen = %+v, %v, %v", got, ok, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	_ = store.Close()

	db, err := sql.Open("sqlite", cfg.Cache.Path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	_, err = transcriptcache.Open(cfg)
	if !errors.Is(err, transcriptcache.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
	if !strings.Contains(err.Error(), cfg.Cache.Path) {
		t.Fatalf("error should name the database: %v", err)
	}
}

func TestOpenPathRequiresPath(t *testing.T) {
	if _, err := transcriptcache.OpenPath(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
