// Package manifest parses declarative campaign manifests into an immutable Context.
// Parsing is pure: nothing here touches the store.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/errs"
)

// Format is the syntax of a manifest document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	defaultOwner   = "admin"
	defaultCorpus  = "default"
	defaultDomain  = "general"
	maxCampaignNo  = 255
	maxAnnotators  = 255
	defaultVersion = 1
)

var languageCode = regexp.MustCompile(`^[a-z]{2,3}$`)

// ManifestError lists every problem found in a manifest.
type ManifestError struct {
	Path     string
	Problems []string
}

func (e *ManifestError) Error() string {
	where := "manifest"
	if e.Path != "" {
		where = fmt.Sprintf("manifest %s", e.Path)
	}
	return fmt.Sprintf("%s: %s", where, strings.Join(e.Problems, "; "))
}

func (e *ManifestError) Unwrap() error { return errs.ErrManifest }

// TaskDeclaration configures one task type of the campaign.
type TaskDeclaration struct {
	Type         tasktype.Type
	Quota        int
	Corpus       string
	Version      int
	Instructions string
}

// LanguagePair declares a market and the number of annotators staffing it.
type LanguagePair struct {
	Source        string
	Target        string
	Domain        string
	MarketVersion int
	Annotators    int
}

// Key is the natural key of the pair's market.
func (p LanguagePair) Key() string {
	return p.Source + ":" + p.Target + ":" + p.Domain
}

// Context is the validated, read-only result of loading a manifest.
type Context struct {
	campaignName string
	campaignNo   int
	owner        string
	tasks        []TaskDeclaration
	pairs        []LanguagePair
}

func (c *Context) CampaignName() string { return c.campaignName }
func (c *Context) CampaignNo() int      { return c.campaignNo }
func (c *Context) Owner() string        { return c.owner }

// Tasks returns a copy of the task declarations in manifest order.
func (c *Context) Tasks() []TaskDeclaration {
	return append([]TaskDeclaration(nil), c.tasks...)
}

// LanguagePairs returns a copy of the language pairs in manifest order.
func (c *Context) LanguagePairs() []LanguagePair {
	return append([]LanguagePair(nil), c.pairs...)
}

// Task returns the declaration for a task type.
func (c *Context) Task(t tasktype.Type) (TaskDeclaration, bool) {
	for _, d := range c.tasks {
		if d.Type == t {
			return d, true
		}
	}
	return TaskDeclaration{}, false
}

// Pair finds the language pair for source/target. An empty domain matches
// the first pair declared for the languages.
func (c *Context) Pair(source, target, domain string) (LanguagePair, bool) {
	for _, p := range c.pairs {
		if p.Source == source && p.Target == target && (domain == "" || p.Domain == domain) {
			return p, true
		}
	}
	return LanguagePair{}, false
}

type rawTask struct {
	Type         string `json:"type" yaml:"type"`
	Quota        int    `json:"quota" yaml:"quota"`
	Corpus       string `json:"corpus" yaml:"corpus"`
	Version      int    `json:"version" yaml:"version"`
	Instructions string `json:"instructions" yaml:"instructions"`
}

type rawPair struct {
	Source        string `json:"source" yaml:"source"`
	Target        string `json:"target" yaml:"target"`
	Domain        string `json:"domain" yaml:"domain"`
	MarketVersion int    `json:"market_version" yaml:"market_version"`
	Annotators    int    `json:"annotators" yaml:"annotators"`
}

type rawManifest struct {
	CampaignName  string    `json:"campaign_name" yaml:"campaign_name"`
	CampaignNo    int       `json:"campaign_no" yaml:"campaign_no"`
	Owner         string    `json:"owner" yaml:"owner"`
	TaskTypes     []rawTask `json:"task_types" yaml:"task_types"`
	LanguagePairs []rawPair `json:"language_pairs" yaml:"language_pairs"`
}

// Load reads and parses the manifest at path. The format follows the file
// extension; anything other than .yaml/.yml is parsed as JSON.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Problems: []string{err.Error()}}
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	ctx, err := Parse(data, format)
	if err != nil {
		if me, ok := err.(*ManifestError); ok {
			me.Path = path
		}
		return nil, err
	}
	return ctx, nil
}

// Parse decodes and validates a manifest document. Unknown keys and
// trailing content are rejected.
func Parse(data []byte, format Format) (*Context, error) {
	var raw rawManifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, &ManifestError{Problems: []string{fmt.Sprintf("malformed YAML: %v", err)}}
		}
		var extra yaml.Node
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return nil, &ManifestError{Problems: []string{"malformed YAML: more than one document"}}
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return nil, &ManifestError{Problems: []string{fmt.Sprintf("malformed JSON: %v", err)}}
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, &ManifestError{Problems: []string{"malformed JSON: trailing data after manifest object"}}
		}
	}
	return build(raw)
}

func build(raw rawManifest) (*Context, error) {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	ctx := &Context{
		campaignName: strings.TrimSpace(raw.CampaignName),
		campaignNo:   raw.CampaignNo,
		owner:        strings.TrimSpace(raw.Owner),
	}
	if ctx.campaignName == "" {
		addf("campaign_name is required")
	}
	if ctx.campaignNo < 1 || ctx.campaignNo > maxCampaignNo {
		addf("campaign_no must be between 1 and %d, got %d", maxCampaignNo, ctx.campaignNo)
	}
	if ctx.owner == "" {
		ctx.owner = defaultOwner
	}

	if len(raw.TaskTypes) == 0 {
		addf("task_types must declare at least one task type")
	}
	seenTasks := make(map[tasktype.Type]bool)
	for i, rt := range raw.TaskTypes {
		if !tasktype.Valid(rt.Type) {
			addf("task_types[%d]: unknown task type %q (valid: %s)", i, rt.Type, strings.Join(tasktype.Names(), ", "))
			continue
		}
		t := tasktype.Type(rt.Type)
		if seenTasks[t] {
			addf("task_types[%d]: duplicate task type %s", i, t)
			continue
		}
		seenTasks[t] = true
		if rt.Quota < 1 {
			addf("task_types[%d]: quota must be >= 1, got %d", i, rt.Quota)
		}
		decl := TaskDeclaration{
			Type:         t,
			Quota:        rt.Quota,
			Corpus:       strings.TrimSpace(rt.Corpus),
			Version:      rt.Version,
			Instructions: rt.Instructions,
		}
		if decl.Corpus == "" {
			decl.Corpus = defaultCorpus
		}
		if decl.Version == 0 {
			decl.Version = defaultVersion
		}
		if decl.Version < 0 {
			addf("task_types[%d]: version must be positive", i)
		}
		ctx.tasks = append(ctx.tasks, decl)
	}

	if len(raw.LanguagePairs) == 0 {
		addf("language_pairs must declare at least one pair")
	}
	seenPairs := make(map[string]bool)
	for i, rp := range raw.LanguagePairs {
		pair := LanguagePair{
			Source:        strings.ToLower(strings.TrimSpace(rp.Source)),
			Target:        strings.ToLower(strings.TrimSpace(rp.Target)),
			Domain:        strings.TrimSpace(rp.Domain),
			MarketVersion: rp.MarketVersion,
			Annotators:    rp.Annotators,
		}
		if pair.Domain == "" {
			pair.Domain = defaultDomain
		}
		if pair.MarketVersion == 0 {
			pair.MarketVersion = defaultVersion
		}
		if !languageCode.MatchString(pair.Source) {
			addf("language_pairs[%d]: invalid source language %q", i, rp.Source)
		}
		if !languageCode.MatchString(pair.Target) {
			addf("language_pairs[%d]: invalid target language %q", i, rp.Target)
		}
		if pair.MarketVersion < 0 {
			addf("language_pairs[%d]: market_version must be positive", i)
		}
		if pair.Annotators < 1 || pair.Annotators > maxAnnotators {
			addf("language_pairs[%d]: annotators must be between 1 and %d, got %d", i, maxAnnotators, pair.Annotators)
		}
		if seenPairs[pair.Key()] {
			addf("language_pairs[%d]: duplicate pair %s", i, pair.Key())
		}
		seenPairs[pair.Key()] = true
		ctx.pairs = append(ctx.pairs, pair)
	}

	if len(problems) > 0 {
		return nil, &ManifestError{Problems: problems}
	}
	return ctx, nil
}
