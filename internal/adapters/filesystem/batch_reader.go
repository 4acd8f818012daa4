// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/appraise/internal/core/batch"
	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/ports/secondary"
)

// BatchReader implements secondary.BatchSource for JSON, CSV and TSV files.
type BatchReader struct{}

// NewBatchReader creates a new filesystem batch reader.
func NewBatchReader() *BatchReader {
	return &BatchReader{}
}

// jsonBatch is one batch object inside a JSON batch file.
type jsonBatch struct {
	SourceLanguage string                     `json:"source_language"`
	TargetLanguage string                     `json:"target_language"`
	Domain         string                     `json:"domain"`
	TaskType       string                     `json:"task_type"`
	Items          []map[string]json.RawMessage `json:"items"`
}

// ReadBatches parses every batch in the file at path. The format follows
// the extension: .csv and .tsv are tabular, anything else is JSON.
func (r *BatchReader) ReadBatches(ctx context.Context, path string) ([]batch.RawBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseTabular(name, data, ',')
	case ".tsv":
		return parseTabular(name, data, '\t')
	default:
		return parseJSON(name, data)
	}
}

func checksum(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func parseJSON(name string, data []byte) ([]batch.RawBatch, error) {
	trimmed := bytes.TrimSpace(data)
	var elems []json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, errs.New(errs.ErrValidation, "read batches", "%s: %v", name, err)
		}
	} else {
		elems = []json.RawMessage{trimmed}
	}

	batches := make([]batch.RawBatch, 0, len(elems))
	for i, elem := range elems {
		var jb jsonBatch
		if err := json.Unmarshal(elem, &jb); err != nil {
			return nil, errs.New(errs.ErrValidation, "read batches", "%s: batch %d: %v", name, i, err)
		}
		b := batch.RawBatch{
			FileName:       name,
			Checksum:       checksum(elem),
			SourceLanguage: langCode(jb.SourceLanguage),
			TargetLanguage: langCode(jb.TargetLanguage),
			Domain:         strings.TrimSpace(jb.Domain),
			TaskType:       strings.TrimSpace(jb.TaskType),
		}
		if len(elems) > 1 {
			b.FileName = fmt.Sprintf("%s#%d", name, i)
		}
		for j, raw := range jb.Items {
			fields := make(map[string]string, len(raw))
			for k, v := range raw {
				fields[k] = scalar(v)
			}
			lowerLanguages(fields)
			b.Items = append(b.Items, batch.RawItem{Line: j + 1, Fields: fields})
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// langCode matches the manifest's spelling of language codes.
func langCode(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lowerLanguages(fields map[string]string) {
	for _, k := range []string{batch.FieldSourceLanguage, batch.FieldTargetLanguage} {
		if v, ok := fields[k]; ok {
			fields[k] = langCode(v)
		}
	}
}

// scalar renders a JSON value as a field string. Strings are unquoted,
// null is empty and everything else keeps its JSON text.
func scalar(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || string(v) == "null" {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return string(v)
}

// parseTabular groups rows by (source, target, domain); each group is one batch.
func parseTabular(name string, data []byte, comma rune) ([]batch.RawBatch, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.New(errs.ErrValidation, "read batches", "%s: empty file", name)
	}
	if err != nil {
		return nil, errs.New(errs.ErrValidation, "read batches", "%s: %v", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	groups := make(map[string]*batch.RawBatch)
	var order []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.New(errs.ErrValidation, "read batches", "%s: %v", name, err)
		}
		line, _ := cr.FieldPos(0)

		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				fields[col] = record[i]
			}
		}
		lowerLanguages(fields)
		item := batch.RawItem{Line: line, Fields: fields}
		src := item.Get(batch.FieldSourceLanguage)
		tgt := item.Get(batch.FieldTargetLanguage)
		domain := item.Get(batch.FieldDomain)
		key := src + "\x00" + tgt + "\x00" + domain

		g, ok := groups[key]
		if !ok {
			g = &batch.RawBatch{
				SourceLanguage: src,
				TargetLanguage: tgt,
				Domain:         domain,
				TaskType:       item.Get("task_type"),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.Items = append(g.Items, item)
	}

	sum := checksum(data)
	batches := make([]batch.RawBatch, 0, len(order))
	for i, key := range order {
		b := *groups[key]
		b.FileName = name
		if len(order) > 1 {
			b.FileName = name + "#" + strconv.Itoa(i)
		}
		b.Checksum = checksum([]byte(sum), []byte(key))
		batches = append(batches, b)
	}
	return batches, nil
}

// Ensure BatchReader implements the interface.
var _ secondary.BatchSource = (*BatchReader)(nil)
