package soundcheck_test

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/tools/txtar"

	"github.com/mpyw/soundcheck"
	"github.com/mpyw/soundcheck/internal/ignore"
	"github.com/mpyw/soundcheck/internal/irload"
	"github.com/mpyw/soundcheck/internal/paths"
	"github.com/mpyw/soundcheck/internal/report"
)

func TestSendSync(t *testing.T) {
	runTestdata(t, "sendsync")
}

func TestUnsafeDestructor(t *testing.T) {
	runTestdata(t, "unsafedestructor")
}

func TestUnsafeDataflow(t *testing.T) {
	runTestdata(t, "unsafedataflow")
}

func TestPipeline(t *testing.T) {
	runTestdata(t, "pipeline")
}

// runTestdata runs every archive under testdata/src/dir. An archive holds
// the program dump, optional "name=value" flag lines and the expected
// findings, one "location severity message" line each, where message is
// matched as a substring.
func runTestdata(t *testing.T, dir string) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join("testdata", "src", dir, "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatalf("no archives in testdata/src/%s", dir)
	}

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".txtar"), func(t *testing.T) {
			prog, archive, err := irload.LoadArchiveFile(file)
			if err != nil {
				t.Fatal(err)
			}
			defer setFlags(t, archive)()

			got, err := soundcheck.Analyzer.Run(prog, hclog.NewNullLogger())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			checkWant(t, archive, got)
		})
	}
}

// setFlags applies the archive's flags and returns a func restoring their
// defaults.
func setFlags(t *testing.T, archive *txtar.Archive) func() {
	t.Helper()

	data, ok := irload.ArchiveFile(archive, "flags")
	if !ok {
		return func() {}
	}

	var names []string
	for _, line := range nonEmptyLines(data) {
		name, value, _ := strings.Cut(line, "=")
		if err := soundcheck.Analyzer.Flags.Set(name, value); err != nil {
			t.Fatalf("setting -%s: %v", name, err)
		}
		names = append(names, name)
	}
	return func() {
		for _, name := range names {
			_ = soundcheck.Analyzer.Flags.Set(name, soundcheck.Analyzer.Flags.Lookup(name).DefValue)
		}
	}
}

func checkWant(t *testing.T, archive *txtar.Archive, got []report.Finding) {
	t.Helper()

	data, ok := irload.ArchiveFile(archive, "want")
	if !ok {
		t.Fatal("archive has no want section")
	}
	want := nonEmptyLines(data)

	if len(got) != len(want) {
		t.Errorf("got %d findings, want %d", len(got), len(want))
	}
	for i := 0; i < len(got) || i < len(want); i++ {
		switch {
		case i >= len(want):
			t.Errorf("unexpected finding: %s", got[i])
		case i >= len(got):
			t.Errorf("missing finding: %s", want[i])
		default:
			loc, rest, _ := strings.Cut(want[i], " ")
			severity, message, _ := strings.Cut(rest, " ")
			f := got[i]
			if f.Span.String() != loc || f.Severity.String() != severity || !strings.Contains(f.Message, message) {
				t.Errorf("finding %d = %s\nwant %s", i, f, want[i])
			}
		}
	}
}

func nonEmptyLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func loadArchive(t *testing.T, name string) *irload.Program {
	t.Helper()
	prog, _, err := irload.LoadArchiveFile(filepath.Join("testdata", "src", name))
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func allCheckers() soundcheck.Config {
	cfg := soundcheck.DefaultConfig()
	cfg.UnsafeDestructor = true
	return cfg
}

func TestRunIdempotent(t *testing.T) {
	prog := loadArchive(t, "pipeline/mixed.txtar")
	cfg := allCheckers()

	first, err := soundcheck.Run(prog, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := soundcheck.Run(prog, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 {
		t.Fatalf("got %d findings, want 3", len(first))
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestRunReportLevel(t *testing.T) {
	prog := loadArchive(t, "pipeline/mixed.txtar")

	tests := []struct {
		level report.Severity
		want  int
	}{
		{report.Info, 3},
		{report.Warning, 3},
		{report.Error, 2},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			cfg := allCheckers()
			cfg.ReportLevel = tt.level
			got, err := soundcheck.Run(prog, cfg, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d findings at %s, want %d", len(got), tt.level, tt.want)
			}
			for _, f := range got {
				if f.Severity < tt.level {
					t.Errorf("finding below threshold: %s", f)
				}
			}
		})
	}
}

func TestRunDisabledCheckers(t *testing.T) {
	prog := loadArchive(t, "pipeline/mixed.txtar")

	cfg := soundcheck.Config{ReportLevel: report.Info}
	got, err := soundcheck.Run(prog, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d findings with every checker disabled, want 0", len(got))
	}

	cfg.UnsafeDataflow = true
	got, err = soundcheck.Run(prog, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Checker != report.UnsafeDataflow {
		t.Errorf("got %v, want one UnsafeDataflow finding", got)
	}
}

func TestRunProgressLog(t *testing.T) {
	prog := loadArchive(t, "pipeline/mixed.txtar")

	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info})
	if _, err := soundcheck.Run(prog, allCheckers(), logger); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	var last int
	for _, name := range []report.Checker{report.UnsafeDestructor, report.SendSyncVariance, report.UnsafeDataflow} {
		for _, phase := range []string{"started", "finished"} {
			msg := fmt.Sprintf("%s analysis %s", name, phase)
			i := strings.Index(out, msg)
			if i < 0 {
				t.Fatalf("log lacks %q:\n%s", msg, out)
			}
			if i < last {
				t.Errorf("%q logged out of order:\n%s", msg, out)
			}
			last = i
		}
	}
}

func TestRunIgnore(t *testing.T) {
	prog := loadArchive(t, "pipeline/mixed.txtar")

	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Warn})

	cfg := allCheckers()
	cfg.Ignore = []ignore.Entry{
		{Item: "demo::fill", Checkers: []report.Checker{report.UnsafeDataflow}},
		{Item: "demo::<impl Send for Wrapper<T>>"},
		{Item: "demo::unrelated"},
	}
	got, err := soundcheck.Run(prog, cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Checker != report.UnsafeDestructor {
		t.Errorf("got %v, want only the destructor finding", got)
	}
	if !strings.Contains(buf.String(), "unused ignore entry: item=demo::unrelated") {
		t.Errorf("unused entry not logged:\n%s", buf.String())
	}
}

func TestRunErrors(t *testing.T) {
	if _, err := soundcheck.Run(nil, soundcheck.DefaultConfig(), nil); !errors.Is(err, soundcheck.ErrNoProgram) {
		t.Errorf("Run(nil) error = %v, want ErrNoProgram", err)
	}

	prog := loadArchive(t, "pipeline/mixed.txtar")
	cfg := soundcheck.DefaultConfig()
	cfg.ExtraPaths = []paths.Entry{
		{Path: "alloc::vec::Vec::set_len", Group: paths.RawRead},
	}
	if _, err := soundcheck.Run(prog, cfg, nil); !errors.Is(err, paths.ErrGroupConflict) {
		t.Errorf("conflicting catalog error = %v, want ErrGroupConflict", err)
	}
}

func TestAnalyzerFlags(t *testing.T) {
	cfg, err := soundcheck.Analyzer.Config()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(soundcheck.DefaultConfig(), cfg); diff != "" {
		t.Errorf("flag defaults differ from DefaultConfig (-want +got):\n%s", diff)
	}

	if err := soundcheck.Analyzer.Flags.Set("sensitive-api", "bogus"); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = soundcheck.Analyzer.Flags.Set("sensitive-api", "")
	}()
	if _, err := soundcheck.Analyzer.Config(); err == nil {
		t.Error("Config() with an invalid -sensitive-api succeeded")
	}

	if err := soundcheck.Analyzer.Flags.Set("report-level", "fatal"); err == nil {
		t.Error("-report-level=fatal accepted")
	}
	if err := soundcheck.Analyzer.Flags.Set("dataflow-policy", "everything"); err == nil {
		t.Error("-dataflow-policy=everything accepted")
	}
}
