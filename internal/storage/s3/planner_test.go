package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/objectfs/internal/pagecache"
)

// A fully clean, fully loaded file needs no download fills and a single
// copy part.
func TestGetPageListsForMultipartUpload_CleanFileIsSingleCopyPart(t *testing.T) {
	pl := pagecache.NewPageListFromSize(10*1024*1024, true, false)
	plan := GetPageListsForMultipartUpload(pl, 8*1024*1024)

	assert.Empty(t, plan.DownloadFills)
	require.Len(t, plan.Parts, 1)
	assert.False(t, plan.Parts[0].Upload)
	assert.Equal(t, int64(10*1024*1024), plan.Parts[0].Bytes)
}

// A short leading modified run below MinMultipartSize borrows the bytes
// it lacks from the start of the unmodified run that follows: those
// bytes are downloaded and folded into a 5 MiB upload part, and the rest
// of the unmodified run becomes a trailing copy part (a leading 1 MiB
// modified range in a 20 MiB file, with a 10 MiB max part size).
func TestGetPageListsForMultipartUpload_LeadingModifiedRangeFoldsForward(t *testing.T) {
	pl := pagecache.NewPageListFromSize(20*1024*1024, true, false)
	pl.SetPageLoadedStatus(0, 1*1024*1024, pagecache.LoadModified, true)

	plan := GetPageListsForMultipartUpload(pl, 10*1024*1024)

	require.Len(t, plan.DownloadFills, 1)
	assert.Equal(t, Range{Offset: 1 * 1024 * 1024, Bytes: 4 * 1024 * 1024}, plan.DownloadFills[0])

	require.Len(t, plan.Parts, 2)
	assert.Equal(t, MixPart{Range: Range{Offset: 0, Bytes: 5 * 1024 * 1024}, Upload: true}, plan.Parts[0])
	assert.Equal(t, MixPart{Range: Range{Offset: 5 * 1024 * 1024, Bytes: 15 * 1024 * 1024}, Upload: false}, plan.Parts[1])
}

// A modified range surrounded by unmodified, unloaded data requires a
// download fill for the unmodified bytes it must fold into its own
// part before upload.
func TestGetPageListsForMultipartUpload_ModifiedRangeNeedsFill(t *testing.T) {
	pl := pagecache.NewPageList()
	pl.Init(20*1024*1024, false, false)
	pl.SetPageLoadedStatus(9*1024*1024, 2*1024*1024, pagecache.Modified, true)

	plan := GetPageListsForMultipartUpload(pl, 8*1024*1024)

	require.Len(t, plan.DownloadFills, 1)
	assert.Equal(t, Range{Offset: 11 * 1024 * 1024, Bytes: 3 * 1024 * 1024}, plan.DownloadFills[0])

	require.Len(t, plan.Parts, 3)
	assert.Equal(t, MixPart{Range: Range{Offset: 0, Bytes: 9 * 1024 * 1024}, Upload: false}, plan.Parts[0])
	assert.Equal(t, MixPart{Range: Range{Offset: 9 * 1024 * 1024, Bytes: 5 * 1024 * 1024}, Upload: true}, plan.Parts[1])
	assert.Equal(t, MixPart{Range: Range{Offset: 14 * 1024 * 1024, Bytes: 6 * 1024 * 1024}, Upload: false}, plan.Parts[2])

	for _, p := range plan.Parts {
		if p.Offset <= 9*1024*1024 && p.End() >= 11*1024*1024 {
			assert.True(t, p.Upload)
		}
	}
}

func TestGetPageListsForMultipartUpload_SplitsOversizedModifiedRun(t *testing.T) {
	pl := pagecache.NewPageList()
	pl.SetPageLoadedStatus(0, 25*1024*1024, pagecache.Modified, true)

	plan := GetPageListsForMultipartUpload(pl, 8*1024*1024)

	require.Len(t, plan.Parts, 3)
	var total int64
	for _, p := range plan.Parts {
		assert.True(t, p.Upload)
		assert.GreaterOrEqual(t, p.Bytes, int64(MinMultipartSize))
		total += p.Bytes
	}
	assert.Equal(t, int64(25*1024*1024), total)
}

func TestGetPageListsForMultipartUpload_EmptyFileHasNoParts(t *testing.T) {
	pl := pagecache.NewPageList()
	plan := GetPageListsForMultipartUpload(pl, 8*1024*1024)
	assert.Empty(t, plan.Parts)
	assert.Empty(t, plan.DownloadFills)
}
