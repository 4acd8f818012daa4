package filesystem_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/appraise/internal/adapters/filesystem"
	"github.com/example/appraise/internal/errs"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestBatchReader_JSONObject(t *testing.T) {
	path := writeFile(t, "batch.json", `{
		"source_language": "eng",
		"target_language": "deu",
		"items": [
			{"item_id": "1", "source_text": "Hello", "target_text": "Hallo", "position": 3},
			{"item_id": "2", "source_text": "Bye", "target_text": null}
		]
	}`)

	batches, err := filesystem.NewBatchReader().ReadBatches(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadBatches failed: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	if b.SourceLanguage != "eng" || b.TargetLanguage != "deu" || b.FileName != "batch.json" {
		t.Errorf("unexpected batch header: %+v", b)
	}
	if len(b.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(b.Items))
	}
	if got := b.Items[0].Get("position"); got != "3" {
		t.Errorf("expected numeric field as text, got %q", got)
	}
	if got := b.Items[1].Get("target_text"); got != "" {
		t.Errorf("expected null as empty, got %q", got)
	}
	if len(b.Checksum) != 64 {
		t.Errorf("expected sha256 hex checksum, got %q", b.Checksum)
	}
}

func TestBatchReader_JSONArrayHasDistinctChecksums(t *testing.T) {
	path := writeFile(t, "batches.json", `[
		{"source_language": "eng", "target_language": "deu", "items": [{"item_id": "1"}]},
		{"source_language": "eng", "target_language": "ces", "domain": "news", "items": [{"item_id": "1"}]}
	]`)

	batches, err := filesystem.NewBatchReader().ReadBatches(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadBatches failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].Checksum == batches[1].Checksum {
		t.Error("expected distinct checksums per batch")
	}
	if batches[1].Domain != "news" || batches[1].FileName != "batches.json#1" {
		t.Errorf("unexpected second batch: %+v", batches[1])
	}
}

func TestBatchReader_ChecksumIsStable(t *testing.T) {
	content := `{"source_language": "eng", "target_language": "deu", "items": [{"item_id": "1"}]}`
	a, err := filesystem.NewBatchReader().ReadBatches(context.Background(), writeFile(t, "a.json", content))
	if err != nil {
		t.Fatalf("ReadBatches failed: %v", err)
	}
	b, err := filesystem.NewBatchReader().ReadBatches(context.Background(), writeFile(t, "b.json", content))
	if err != nil {
		t.Fatalf("ReadBatches failed: %v", err)
	}
	if a[0].Checksum != b[0].Checksum {
		t.Error("identical content must hash identically regardless of file name")
	}
}

func TestBatchReader_Tabular(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "csv",
			file: "batch.csv",
			content: "source_language,target_language,item_id,source_text,target_text\n" +
				"eng,deu,1,Hello,Hallo\n" +
				"eng,ces,2,Hi,Ahoj\n" +
				"eng,deu,3,\"Yes, sir\",Ja\n",
		},
		{
			name: "tsv",
			file: "batch.tsv",
			content: "source_language\ttarget_language\titem_id\tsource_text\ttarget_text\n" +
				"eng\tdeu\t1\tHello\tHallo\n" +
				"eng\tces\t2\tHi\tAhoj\n" +
				"eng\tdeu\t3\tYes, sir\tJa\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := filesystem.NewBatchReader().ReadBatches(context.Background(), writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("ReadBatches failed: %v", err)
			}
			if len(batches) != 2 {
				t.Fatalf("expected 2 batches, got %d", len(batches))
			}
			deu := batches[0]
			if deu.TargetLanguage != "deu" || len(deu.Items) != 2 {
				t.Fatalf("unexpected first batch: %+v", deu)
			}
			if got := deu.Items[1].Get("source_text"); got != "Yes, sir" {
				t.Errorf("expected quoted field, got %q", got)
			}
			if deu.Items[1].Line != 4 {
				t.Errorf("expected line 4, got %d", deu.Items[1].Line)
			}
		})
	}
}

func TestBatchReader_Malformed(t *testing.T) {
	reader := filesystem.NewBatchReader()

	_, err := reader.ReadBatches(context.Background(), writeFile(t, "bad.json", `{"items": [`))
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation for bad JSON, got %v", err)
	}

	_, err = reader.ReadBatches(context.Background(), writeFile(t, "empty.csv", ""))
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation for empty CSV, got %v", err)
	}

	_, err = reader.ReadBatches(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBatchReader_LowercasesLanguageCodes(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "upper.json", `{"source_language": " ENG", "target_language": "Deu", "items": [
			{"item_id": "1", "source_language": "ENG", "target_language": "DEU", "source_text": "a", "target_text": "b"}
		]}`},
		{"csv", "upper.csv", "source_language,target_language,item_id,source_text,target_text\nENG,DEU,1,a,b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := filesystem.NewBatchReader().ReadBatches(context.Background(), writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("ReadBatches failed: %v", err)
			}
			if len(batches) != 1 {
				t.Fatalf("expected 1 batch, got %d", len(batches))
			}
			b := batches[0]
			if b.SourceLanguage != "eng" || b.TargetLanguage != "deu" {
				t.Errorf("expected eng-deu, got %s-%s", b.SourceLanguage, b.TargetLanguage)
			}
			item := b.Items[0]
			if item.Get("source_language") != "eng" || item.Get("target_language") != "deu" {
				t.Errorf("expected lowercased row languages, got %+v", item.Fields)
			}
		})
	}
}
