package pagecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: grow an empty file, write+load a range, read back.
func TestPageList_GrowWriteReadback(t *testing.T) {
	pl := NewPageList()
	pl.Resize(4096, false, false)
	require.Equal(t, int64(4096), pl.Size())
	assert.False(t, pl.IsPageLoaded(0, 4096))

	pl.SetPageLoadedStatus(0, 4096, LoadModified, true)
	assert.True(t, pl.IsPageLoaded(0, 4096))
	assert.True(t, pl.IsModified())
	assert.Equal(t, int64(4096), pl.BytesModified())
}

// S2: write past the current end of an empty list produces two distinct
// dirty pages rather than silently merging, when compress is withheld.
func TestPageList_WritePastEndUncompressed(t *testing.T) {
	pl := NewPageList()
	pl.SetPageLoadedStatus(1000, 10, Modified, false)

	pages := pl.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, Page{Offset: 0, Bytes: 1000, Loaded: false, Modified: true}, pages[0])
	assert.Equal(t, Page{Offset: 1000, Bytes: 10, Loaded: false, Modified: true}, pages[1])
	assert.Equal(t, int64(1010), pl.Size())
}

// S3-equivalent: shrinking an explicitly-dirty file always reports
// modified, even if no truncated page itself carried Modified=true.
func TestPageList_ShrinkSetsShrunkFromCallerFlag(t *testing.T) {
	pl := NewPageList()
	pl.Init(1000, true, false)
	require.False(t, pl.IsModified())

	pl.Resize(500, false, true)
	assert.True(t, pl.IsModified())
	assert.Equal(t, int64(500), pl.Size())
}

// Shrinking is driven purely by the caller's modified argument: a
// truncated-away page carrying Modified=true does not, by itself, mark
// the file dirty if the caller says the shrink itself is clean.
func TestPageList_ShrinkIgnoresRemovedPageFlagsWhenCallerSaysClean(t *testing.T) {
	pl := NewPageList()
	pl.Init(1000, true, false)
	pl.SetPageLoadedStatus(500, 500, LoadModified, true)
	pl.Resize(500, false, false)
	assert.False(t, pl.IsModified())
}

func TestPageList_ResizeGrowAppendsNewPage(t *testing.T) {
	pl := NewPageListFromSize(100, true, false)
	pl.Resize(300, false, false)

	pages := pl.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, int64(100), pages[0].Bytes)
	assert.True(t, pages[0].Loaded)
	assert.Equal(t, int64(200), pages[1].Bytes)
	assert.False(t, pages[1].Loaded)
}

func TestPageList_ParseSplitsAtBoundary(t *testing.T) {
	pl := NewPageListFromSize(100, true, false)
	require.True(t, pl.Parse(40))

	pages := pl.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, int64(0), pages[0].Offset)
	assert.Equal(t, int64(40), pages[0].Bytes)
	assert.Equal(t, int64(40), pages[1].Offset)
	assert.Equal(t, int64(60), pages[1].Bytes)
}

func TestPageList_ParseAtSizeIsNoopSuccess(t *testing.T) {
	pl := NewPageListFromSize(100, true, false)
	assert.True(t, pl.Parse(100))
	assert.Len(t, pl.Pages(), 1)
}

func TestPageList_ParseBeyondSizeFails(t *testing.T) {
	pl := NewPageListFromSize(100, true, false)
	assert.False(t, pl.Parse(101))
}

func TestPageList_CompressMergesAdjacentEqualPages(t *testing.T) {
	pl := NewPageList()
	pl.SetPageLoadedStatus(0, 50, Loaded, false)
	pl.SetPageLoadedStatus(50, 50, Loaded, false)
	pl.Compress()

	pages := pl.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, int64(100), pages[0].Bytes)
}

func TestPageList_CompressBridgesGapsWithHole(t *testing.T) {
	pl := &PageList{pages: []Page{
		{Offset: 0, Bytes: 10, Loaded: true},
		{Offset: 20, Bytes: 10, Loaded: true},
	}}
	pl.Compress()

	pages := pl.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, Page{Offset: 10, Bytes: 10}, pages[1])
}

func TestPageList_IsPageLoadedVacuousOnEmptyWindow(t *testing.T) {
	pl := NewPageList()
	assert.True(t, pl.IsPageLoaded(0, 0))
}

func TestPageList_FindUnloadedPageSkipsModifiedHoles(t *testing.T) {
	pl := NewPageList()
	pl.SetPageLoadedStatus(0, 100, Modified, false)
	pl.SetPageLoadedStatus(100, 100, NotLoadedModified, false)

	start, size, found := pl.FindUnloadedPage(0)
	require.True(t, found)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, int64(100), size)
}

func TestPageList_GetUnloadedPagesMergesAdjacent(t *testing.T) {
	pl := NewPageListFromSize(300, false, false)
	got := pl.GetUnloadedPages(0, 0)
	require.Len(t, got, 1)
	assert.Equal(t, int64(300), got[0].Bytes)
}

func TestPageList_GetTotalUnloadedPageSizeHonorsLimit(t *testing.T) {
	pl := &PageList{pages: []Page{
		{Offset: 0, Bytes: 10},
		{Offset: 10, Bytes: 100, Loaded: true},
		{Offset: 110, Bytes: 20},
	}}
	total := pl.GetTotalUnloadedPageSize(0, 130, 50)
	assert.Equal(t, int64(30), total)
}

func TestPageList_GetNoDataPageListsExcludesModified(t *testing.T) {
	pl := &PageList{pages: []Page{
		{Offset: 0, Bytes: 10, Loaded: true},
		{Offset: 10, Bytes: 10, Modified: true},
		{Offset: 20, Bytes: 10},
	}}
	got := pl.GetNoDataPageLists(0, 30)
	require.Len(t, got, 2)
	assert.Equal(t, int64(0), got[0].Offset)
	assert.Equal(t, int64(20), got[1].Offset)
}

func TestPageList_ClearAllModifiedResetsShrunkAndFlags(t *testing.T) {
	pl := NewPageListFromSize(100, true, true)
	pl.Resize(50, false, true)
	require.True(t, pl.IsModified())

	pl.ClearAllModified()
	assert.False(t, pl.IsModified())
	for _, p := range pl.Pages() {
		assert.False(t, p.Modified)
	}
}

func TestPageList_BytesModifiedSumsOnlyModifiedPages(t *testing.T) {
	pl := &PageList{pages: []Page{
		{Offset: 0, Bytes: 10, Modified: true},
		{Offset: 10, Bytes: 20, Modified: false},
		{Offset: 30, Bytes: 5, Modified: true},
	}}
	assert.Equal(t, int64(15), pl.BytesModified())
}
