// Package tasktype holds the closed set of supported annotation task types.
// The lookup table is built once and never modified at runtime.
package tasktype

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/example/appraise/internal/errs"
)

// Type names a supported annotation task.
type Type string

const (
	Direct           Type = "Direct"
	Document         Type = "Document"
	MultiModal       Type = "MultiModal"
	Pairwise         Type = "Pairwise"
	PairwiseDocument Type = "PairwiseDocument"
	Data             Type = "Data"
)

// Raw batch field names.
const (
	FieldItemID      = "item_id"
	FieldItemType    = "item_type"
	FieldSourceText  = "source_text"
	FieldTargetText  = "target_text"
	FieldTarget1Text = "target1_text"
	FieldTarget2Text = "target2_text"
	FieldDocumentID  = "document_id"
	FieldImageURL    = "image_url"
)

// Payload is a validated annotation submission, keyed by score field.
type Payload map[string]int

// Handler describes the behavior of one task type.
type Handler interface {
	Type() Type
	// Slug is the URL path segment of the task endpoints.
	Slug() string
	// RequiredFields lists raw item fields that must be non-empty.
	RequiredFields() []string
	// TextFields lists the fields the normalizer cleans and length-checks.
	TextFields() []string
	// ScoreFields lists the submitted score names.
	ScoreFields() []string
	// ParseSubmission validates the submitted form values.
	ParseSubmission(values map[string]string) (Payload, error)
}

type variant struct {
	typ        Type
	slug       string
	required   []string
	text       []string
	scoreNames []string
}

func (v variant) Type() Type               { return v.typ }
func (v variant) Slug() string             { return v.slug }
func (v variant) RequiredFields() []string { return append([]string(nil), v.required...) }
func (v variant) TextFields() []string     { return append([]string(nil), v.text...) }
func (v variant) ScoreFields() []string    { return append([]string(nil), v.scoreNames...) }

// ParseSubmission requires every score field to be an integer in [0, 100].
func (v variant) ParseSubmission(values map[string]string) (Payload, error) {
	payload := make(Payload, len(v.scoreNames))
	for _, name := range v.scoreNames {
		raw := strings.TrimSpace(values[name])
		if raw == "" {
			return nil, errs.New(errs.ErrInvalidSubmission, string(v.typ), "missing %s", name)
		}
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errs.New(errs.ErrInvalidSubmission, string(v.typ), "%s %q is not a number", name, raw)
		}
		if score < 0 || score > 100 {
			return nil, errs.New(errs.ErrInvalidSubmission, string(v.typ), "%s %v out of range [0, 100]", name, score)
		}
		payload[name] = int(score)
	}
	return payload, nil
}

var variants = []variant{
	{
		typ:        Direct,
		slug:       "direct-assessment",
		required:   []string{FieldSourceText, FieldTargetText},
		text:       []string{FieldSourceText, FieldTargetText},
		scoreNames: []string{"score"},
	},
	{
		typ:        Document,
		slug:       "direct-assessment-document",
		required:   []string{FieldSourceText, FieldTargetText, FieldDocumentID},
		text:       []string{FieldSourceText, FieldTargetText},
		scoreNames: []string{"score"},
	},
	{
		typ:        MultiModal,
		slug:       "multimodal-assessment",
		required:   []string{FieldSourceText, FieldTargetText, FieldImageURL},
		text:       []string{FieldSourceText, FieldTargetText},
		scoreNames: []string{"score"},
	},
	{
		typ:        Pairwise,
		slug:       "pairwise-assessment",
		required:   []string{FieldSourceText, FieldTarget1Text, FieldTarget2Text},
		text:       []string{FieldSourceText, FieldTarget1Text, FieldTarget2Text},
		scoreNames: []string{"score1", "score2"},
	},
	{
		typ:        PairwiseDocument,
		slug:       "pairwise-assessment-document",
		required:   []string{FieldSourceText, FieldTarget1Text, FieldTarget2Text, FieldDocumentID},
		text:       []string{FieldSourceText, FieldTarget1Text, FieldTarget2Text},
		scoreNames: []string{"score1", "score2"},
	},
	{
		typ:        Data,
		slug:       "data-assessment",
		required:   []string{FieldSourceText},
		text:       []string{FieldSourceText},
		scoreNames: []string{"score"},
	},
}

var (
	byType = func() map[Type]Handler {
		m := make(map[Type]Handler, len(variants))
		for _, v := range variants {
			m[v.typ] = v
		}
		return m
	}()
	bySlug = func() map[string]Handler {
		m := make(map[string]Handler, len(variants))
		for _, v := range variants {
			m[v.slug] = v
		}
		return m
	}()
)

// Lookup resolves a task type name.
func Lookup(name string) (Handler, error) {
	if h, ok := byType[Type(name)]; ok {
		return h, nil
	}
	return nil, errs.New(errs.ErrUnsupportedTaskType, "", "%q (valid: %s)", name, strings.Join(Names(), ", "))
}

// LookupSlug resolves a task endpoint path segment.
func LookupSlug(slug string) (Handler, error) {
	if h, ok := bySlug[strings.Trim(slug, "/")]; ok {
		return h, nil
	}
	return nil, errs.New(errs.ErrUnsupportedTaskType, "", "no task endpoint %q", slug)
}

// Valid reports whether name is a supported task type.
func Valid(name string) bool {
	_, ok := byType[Type(name)]
	return ok
}

// Names returns the supported task type names, sorted.
func Names() []string {
	names := make([]string, 0, len(byType))
	for t := range byType {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

func (t Type) String() string { return string(t) }

// MustLookup is for package-level constants in tests and wiring.
func MustLookup(t Type) Handler {
	h, err := Lookup(string(t))
	if err != nil {
		panic(fmt.Sprintf("tasktype: %v", err))
	}
	return h
}
