package paths_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpyw/soundcheck/internal/ir"
	"github.com/mpyw/soundcheck/internal/paths"
)

func TestDefaultCatalog(t *testing.T) {
	cat := paths.DefaultCatalog()

	tests := []struct {
		path string
		want paths.Group
	}{
		{"alloc::vec::Vec::set_len", paths.SetLen},
		{"std::vec::Vec::set_len", paths.SetLen},
		{"core::ptr::read", paths.RawRead},
		{"core::ptr::write", paths.RawWrite},
		{"core::ptr::copy_nonoverlapping", paths.RawCopy},
		{"core::ptr::drop_in_place", paths.DropInPlace},
		{"alloc::alloc::dealloc", paths.Dealloc},
		{"core::mem::MaybeUninit::assume_init", paths.InitState},
		{"core::slice::<impl [T]>::get_unchecked", paths.UncheckedIndex},
		{"core::mem::transmute", paths.Transmute},
		{"core::cell::UnsafeCell", paths.SharedMutability},
		{"core::cell::RefCell", paths.SharedMutability},
		{"std::sync::Mutex", paths.ExclusiveLock},
		{"std::sync::RwLock", paths.SharedLock},
		{"std::sync::OnceLock", paths.SharedLock},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			g, ok := cat.Group(ir.Path(paths.MustParse(tt.path)))
			require.True(t, ok)
			assert.Equal(t, tt.want, g)
		})
	}

	assert.False(t, cat.InGroup(ir.Path{"alloc", "vec", "Vec", "len"}, paths.SetLen))
	assert.True(t, cat.InGroup(ir.Path{"core", "ptr", "write"}, paths.RawRead, paths.RawWrite))
	assert.Equal(t, len(paths.DefaultEntries()), cat.Len())
}

func TestCatalogWithEntries(t *testing.T) {
	base := paths.DefaultCatalog()
	extended, err := base.WithEntries(paths.Entry{Path: "smallvec::SmallVec::set_len", Group: paths.SetLen})
	require.NoError(t, err)

	path := ir.Path{"smallvec", "SmallVec", "set_len"}
	assert.True(t, extended.InGroup(path, paths.SetLen))
	assert.False(t, base.InGroup(path, paths.SetLen), "base catalog must not change")

	_, err = base.WithEntries(paths.Entry{Path: "core::ptr::read", Group: paths.RawWrite})
	assert.ErrorIs(t, err, paths.ErrGroupConflict)
}

func TestParseEntries(t *testing.T) {
	entries, err := paths.ParseEntries("set_len=smallvec::SmallVec::set_len, raw_write=my::<impl Writer<u8, u16>>::poke")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, paths.Entry{Path: "smallvec::SmallVec::set_len", Group: paths.SetLen}, entries[0])
	assert.Equal(t, paths.Entry{Path: "my::<impl Writer<u8, u16>>::poke", Group: paths.RawWrite}, entries[1])

	entries, err = paths.ParseEntries("  ")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = paths.ParseEntries("nogroup")
	assert.Error(t, err)

	_, err = paths.ParseEntries("bogus=a::b")
	assert.Error(t, err)

	_, err = paths.ParseEntries("raw_read=")
	assert.ErrorIs(t, err, paths.ErrEmptyPath)
}
