package irload

import (
	"fmt"

	"golang.org/x/tools/txtar"
)

// ProgramFile is the archive member holding the program dump.
const ProgramFile = "program.yaml"

// LoadArchive decodes the program dump stored in a txtar archive.
func LoadArchive(a *txtar.Archive) (*Program, error) {
	data, ok := ArchiveFile(a, ProgramFile)
	if !ok {
		return nil, fmt.Errorf("archive has no %s", ProgramFile)
	}
	return LoadBytes(data)
}

// LoadArchiveFile parses the txtar archive at name and decodes its
// program dump.
func LoadArchiveFile(name string) (*Program, *txtar.Archive, error) {
	a, err := txtar.ParseFile(name)
	if err != nil {
		return nil, nil, err
	}
	p, err := LoadArchive(a)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, a, nil
}

// ArchiveFile returns the contents of the named archive member.
func ArchiveFile(a *txtar.Archive, name string) ([]byte, bool) {
	for _, f := range a.Files {
		if f.Name == name {
			return f.Data, true
		}
	}
	return nil, false
}
