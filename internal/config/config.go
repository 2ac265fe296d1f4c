// Package config reads the optional YAML configuration file.
//
// A file looks like:
//
//	analyzers:
//	  send_sync_variance: true
//	  unsafe_destructor: true
//	  unsafe_dataflow: false
//	report_level: warning
//	verbosity: verbose
//	dataflow_policy: any-trait
//	sensitive_apis:
//	  - path: mycrate::buf::RawBuf::set_filled
//	    group: set_len
//	ignore:
//	  - item: mycrate::fill
//	    checkers: unsafe_dataflow - length re-checked by the caller
//
// Every key is optional. Values given on the command line win over the
// file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mpyw/soundcheck"
	"github.com/mpyw/soundcheck/internal/checkers/unsafedataflow"
	"github.com/mpyw/soundcheck/internal/ignore"
	"github.com/mpyw/soundcheck/internal/logging"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
)

// File is the decoded configuration file. Nil fields were not given.
type File struct {
	Analyzers      Analyzers              `yaml:"analyzers"`
	ReportLevel    *report.Severity       `yaml:"report_level"`
	Verbosity      *logging.Verbosity     `yaml:"verbosity"`
	DataflowPolicy *unsafedataflow.Policy `yaml:"dataflow_policy"`
	SensitiveAPIs  []SensitiveAPI         `yaml:"sensitive_apis"`
	Ignore         []Ignore               `yaml:"ignore"`
}

// Analyzers toggles individual checkers.
type Analyzers struct {
	SendSyncVariance *bool `yaml:"send_sync_variance"`
	UnsafeDestructor *bool `yaml:"unsafe_destructor"`
	UnsafeDataflow   *bool `yaml:"unsafe_dataflow"`
}

// SensitiveAPI is one extra catalog entry.
type SensitiveAPI struct {
	Path  string `yaml:"path"`
	Group string `yaml:"group"`
}

// Ignore silences checkers on one item. An empty checker list silences
// all of them.
type Ignore struct {
	Item     string `yaml:"item"`
	Checkers string `yaml:"checkers"`
}

// Load decodes a configuration file. Unknown keys are an error.
func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if _, err := f.entries(); err != nil {
		return nil, err
	}
	if _, err := f.ignores(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and decodes the configuration file at name.
func LoadFile(name string) (*File, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	f, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func (f *File) entries() ([]paths.Entry, error) {
	var entries []paths.Entry
	for i, api := range f.SensitiveAPIs {
		g, err := paths.ParseGroup(api.Group)
		if err != nil {
			return nil, fmt.Errorf("sensitive_apis[%d]: %w", i, err)
		}
		if _, err := paths.Parse(api.Path); err != nil {
			return nil, fmt.Errorf("sensitive_apis[%d]: %w", i, err)
		}
		entries = append(entries, paths.Entry{Path: api.Path, Group: g})
	}
	return entries, nil
}

func (f *File) ignores() ([]ignore.Entry, error) {
	var entries []ignore.Entry
	for i, ig := range f.Ignore {
		e, err := ignore.ParseEntry(ig.Item, ig.Checkers)
		if err != nil {
			return nil, fmt.Errorf("ignore[%d]: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Apply copies the values given in f onto cfg. A value is skipped when
// explicit reports that the flag of the same meaning was set; explicit
// may be nil. Sensitive APIs and ignore entries are appended to the ones
// already in cfg.
func (f *File) Apply(cfg *soundcheck.Config, explicit func(flag string) bool) error {
	if explicit == nil {
		explicit = func(string) bool { return false }
	}

	setBool := func(dst *bool, src *bool, flag string) {
		if src != nil && !explicit(flag) {
			*dst = *src
		}
	}
	setBool(&cfg.SendSyncVariance, f.Analyzers.SendSyncVariance, "send-sync")
	setBool(&cfg.UnsafeDestructor, f.Analyzers.UnsafeDestructor, "unsafe-destructor")
	setBool(&cfg.UnsafeDataflow, f.Analyzers.UnsafeDataflow, "unsafe-dataflow")

	if f.ReportLevel != nil && !explicit("report-level") {
		cfg.ReportLevel = *f.ReportLevel
	}
	if f.Verbosity != nil && !explicit("verbosity") {
		cfg.Verbosity = *f.Verbosity
	}
	if f.DataflowPolicy != nil && !explicit("dataflow-policy") {
		cfg.Policy = *f.DataflowPolicy
	}

	entries, err := f.entries()
	if err != nil {
		return err
	}
	cfg.ExtraPaths = append(cfg.ExtraPaths, entries...)

	ignores, err := f.ignores()
	if err != nil {
		return err
	}
	cfg.Ignore = append(cfg.Ignore, ignores...)
	return nil
}
