package metatest

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/mpyw/soundcheck"
	"github.com/mpyw/soundcheck/internal/irload"
	"github.com/mpyw/soundcheck/internal/report"
)

// members are the archive members a fixture may hold.
var members = map[string]bool{
	"flags":            true,
	irload.ProgramFile: true,
	"want":             true,
}

var location = regexp.MustCompile(`^[\w./-]+:\d+(:\d+)?$`)

// Fixture describes one archive under testdata/src.
type Fixture struct {
	Dir  string
	Name string
	// Positive fixtures expect at least one finding.
	Positive bool
}

func TestFixtureValidation(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "src", "*", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no fixtures found")
	}

	var fixtures []Fixture
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".txtar")
		dir := filepath.Base(filepath.Dir(file))
		t.Run(dir+"/"+name, func(t *testing.T) {
			fixtures = append(fixtures, validateFixture(t, file, dir, name))
		})
	}

	// Every checker needs fixtures on both sides of the line.
	t.Run("Variants", func(t *testing.T) {
		validateVariants(t, fixtures)
	})
}

func validateFixture(t *testing.T, file, dir, name string) Fixture {
	fx := Fixture{Dir: dir, Name: name}

	a, err := txtar.ParseFile(file)
	if err != nil {
		t.Fatalf("parsing archive: %v", err)
	}
	if strings.TrimSpace(string(a.Comment)) == "" {
		t.Errorf("missing description comment")
	}

	seen := make(map[string]bool)
	for _, f := range a.Files {
		if !members[f.Name] {
			t.Errorf("unexpected member %q", f.Name)
		}
		if seen[f.Name] {
			t.Errorf("duplicate member %q", f.Name)
		}
		seen[f.Name] = true
	}
	for _, required := range []string{irload.ProgramFile, "want"} {
		if !seen[required] {
			t.Errorf("missing member %q", required)
		}
	}

	if _, err := irload.LoadArchive(a); err != nil {
		t.Errorf("program does not load: %v", err)
	}

	if data, ok := irload.ArchiveFile(a, "flags"); ok {
		for _, line := range lines(data) {
			flagName, _, ok := strings.Cut(line, "=")
			if !ok {
				t.Errorf("flag line %q is not name=value", line)
				continue
			}
			if soundcheck.Analyzer.Flags.Lookup(flagName) == nil {
				t.Errorf("unknown flag %q", flagName)
			}
		}
	}

	if data, ok := irload.ArchiveFile(a, "want"); ok {
		for _, line := range lines(data) {
			fields := strings.SplitN(line, " ", 3)
			if len(fields) != 3 {
				t.Errorf("want line %q needs a location, a severity and a message", line)
				continue
			}
			if !location.MatchString(fields[0]) {
				t.Errorf("want line %q has an invalid location", line)
			}
			if _, err := report.ParseSeverity(fields[1]); err != nil {
				t.Errorf("want line %q: %v", line, err)
			}
			fx.Positive = true
		}
	}
	return fx
}

func validateVariants(t *testing.T, fixtures []Fixture) {
	type sides struct{ positive, negative bool }
	byDir := make(map[string]*sides)
	for _, fx := range fixtures {
		s := byDir[fx.Dir]
		if s == nil {
			s = &sides{}
			byDir[fx.Dir] = s
		}
		if fx.Positive {
			s.positive = true
		} else {
			s.negative = true
		}
	}

	for _, dir := range []string{"sendsync", "unsafedestructor", "unsafedataflow"} {
		s, ok := byDir[dir]
		switch {
		case !ok:
			t.Errorf("no fixtures for %s", dir)
		case !s.positive:
			t.Errorf("%s has no fixture with findings", dir)
		case !s.negative:
			t.Errorf("%s has no fixture without findings", dir)
		}
	}
}

func lines(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}
