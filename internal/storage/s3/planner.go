package s3

import (
	"github.com/objectfs/objectfs/internal/pagecache"
)

// MinMultipartSize is the smallest part S3 accepts for any part except
// the last (5 MiB). The planner folds any candidate part below this
// floor into its neighbor rather than ask S3 to reject it.
const MinMultipartSize = 5 * 1024 * 1024

// Range is a half-open byte range [Offset, Offset+Bytes) with no flags
// attached: the planner's download-fill output.
type Range struct {
	Offset int64
	Bytes  int64
}

func (r Range) End() int64 { return r.Offset + r.Bytes }

// MixPart is one part of a planned multipart upload: either fresh bytes
// that must be read from the local cache and PUT (Upload=true), or bytes
// that are already correct in the remote object and can be copied
// server-side with UploadPartCopy (Upload=false).
type MixPart struct {
	Range
	Upload bool
}

// UploadPlan is the planner's full output for one file: the unmodified
// ranges that must be downloaded from the remote object before upload
// can proceed (because they are folded into an upload part next to
// modified bytes), and the final sequence of upload/copy parts. The
// download ranges are chosen from the Modified flag alone and may
// include bytes that are already cached locally.
type UploadPlan struct {
	DownloadFills []Range
	Parts         []MixPart
}

// GetPageListsForMultipartUpload decides, for a file of the given size
// and page list, how to multipart-upload it: which unmodified byte
// ranges must first be downloaded from the remote object because they
// are folded into an upload part, and the final ordered list of upload-vs-copy
// parts, each at least MinMultipartSize (except optionally the last).
//
// The decision is driven entirely by each byte's Modified flag, not its
// Loaded flag: an unmodified run is presumed correct in the remote
// object whether or not it happens to be cached locally, so it becomes
// a cheap server-side copy rather than an upload. maxPartSize bounds how
// large a single upload part may grow before the planner splits it; an
// upload run longer than 2*maxPartSize is cut into maxPartSize-sized
// parts rather than left as one oversized part. Copy parts are never
// split.
func GetPageListsForMultipartUpload(pl *pagecache.PageList, maxPartSize int64) UploadPlan {
	pl.Compress()
	size := pl.Size()
	if size <= 0 {
		return UploadPlan{}
	}
	if maxPartSize <= 0 {
		maxPartSize = MinMultipartSize
	}

	runs := compressByModified(pl)

	var downloadPages []MixPart
	var mixuploadPages []MixPart
	var prev MixPart

	for _, cur := range runs {
		if cur.Upload {
			if !prev.Upload {
				if prev.Bytes < MinMultipartSize {
					// previous (unmodified) area is too small for one
					// part on its own; all of it must be downloaded so
					// it can be folded into the upload that follows.
					downloadPages = append(downloadPages, prev)
					prev.Upload = true
					mixuploadPages = append(mixuploadPages, prev)
				} else {
					mixuploadPages = append(mixuploadPages, prev)
				}
				prev = cur
			} else {
				// previous is modified too: extend it.
				prev.Bytes += cur.Bytes
			}
		} else {
			if !prev.Upload {
				// previous is unmodified too: extend it.
				prev.Bytes += cur.Bytes
			} else if prev.Bytes < MinMultipartSize {
				missing := MinMultipartSize - prev.Bytes
				if missing+MinMultipartSize < cur.Bytes {
					// current run is large enough that only its
					// leading "missing" bytes need downloading; the
					// rest starts a new unmodified (copy) run.
					downloadPages = append(downloadPages, MixPart{
						Range: Range{Offset: cur.Offset, Bytes: missing},
					})
					prev.Bytes = MinMultipartSize
					mixuploadPages = append(mixuploadPages, prev)

					prev = cur
					prev.Offset += missing
					prev.Bytes -= missing
				} else {
					// current run is too small by itself to leave a
					// remainder above the floor; download all of it
					// and fold it into the previous upload run.
					downloadPages = append(downloadPages, cur)
					prev.Bytes += cur.Bytes
				}
			} else {
				// previous (modified) area is already large enough.
				mixuploadPages = append(mixuploadPages, prev)
				prev = cur
			}
		}
	}
	if prev.Bytes > 0 {
		mixuploadPages = append(mixuploadPages, prev)
	}

	fills := compressRanges(downloadPages)
	parts := compressByUpload(mixuploadPages)
	parts = splitOversizedParts(parts, maxPartSize)

	return UploadPlan{DownloadFills: fills, Parts: parts}
}

// compressByModified walks pl's pages, already contiguous over [0,
// Size()), and merges adjacent pages sharing the same Modified value
// into one run. The Loaded flag plays no part in this grouping.
func compressByModified(pl *pagecache.PageList) []MixPart {
	var runs []MixPart
	for _, p := range pl.Pages() {
		if p.Bytes == 0 {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].Upload == p.Modified && runs[n-1].End() == p.Offset {
			runs[n-1].Bytes += p.Bytes
			continue
		}
		runs = append(runs, MixPart{Range: Range{Offset: p.Offset, Bytes: p.Bytes}, Upload: p.Modified})
	}
	return runs
}

// compressRanges merges contiguous ranges, dropping any zero-byte entry.
func compressRanges(parts []MixPart) []Range {
	var out []Range
	for _, p := range parts {
		if p.Bytes == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].End() == p.Offset {
			out[n-1].Bytes += p.Bytes
			continue
		}
		out = append(out, p.Range)
	}
	return out
}

// compressByUpload merges contiguous parts sharing the same Upload
// flag, dropping any zero-byte entry.
func compressByUpload(parts []MixPart) []MixPart {
	var out []MixPart
	for _, p := range parts {
		if p.Bytes == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Upload == p.Upload && out[n-1].End() == p.Offset {
			out[n-1].Bytes += p.Bytes
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitOversizedParts cuts any Upload part longer than 2*maxPartSize
// into maxPartSize-sized parts, leaving the remainder (at most
// 2*maxPartSize) as the final chunk so no split leaves a
// sliver under maxPartSize. Copy parts are never split: UploadPartCopy
// has no local-read cost to bound.
func splitOversizedParts(parts []MixPart, maxPartSize int64) []MixPart {
	var out []MixPart
	for _, p := range parts {
		if !p.Upload {
			out = append(out, p)
			continue
		}
		offset := p.Offset
		remaining := p.Bytes
		for remaining > 0 {
			if 2*maxPartSize < remaining {
				out = append(out, MixPart{Range: Range{Offset: offset, Bytes: maxPartSize}, Upload: true})
				offset += maxPartSize
				remaining -= maxPartSize
			} else {
				out = append(out, MixPart{Range: Range{Offset: offset, Bytes: remaining}, Upload: true})
				offset += remaining
				remaining = 0
			}
		}
	}
	return out
}
