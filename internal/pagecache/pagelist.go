package pagecache

import "sort"

// PageList is an ordered, contiguous sequence of Pages covering [0, Size()).
// It is the sparse per-file map of which byte ranges of a cached local file
// are loaded (mirror the remote object) and which are modified (dirty, not
// yet uploaded).
//
// A PageList is not safe for concurrent use; the caller (the open-file
// handle layer) must serialize access to a single instance. Separate
// instances are fully independent.
type PageList struct {
	pages  []Page
	shrunk bool
}

// NewPageList returns an empty PageList (size 0).
func NewPageList() *PageList {
	return &PageList{}
}

// NewPageListFromSize returns a PageList covering [0, size) as a single
// page with the given flags. size<=0 yields an empty list.
func NewPageListFromSize(size int64, loaded, modified bool) *PageList {
	pl := &PageList{}
	pl.Init(size, loaded, modified)
	return pl
}

// Init replaces the contents of pl with a single page [0, size) carrying
// the given flags. size<=0 yields an empty list. Init never fails.
func (pl *PageList) Init(size int64, loaded, modified bool) {
	pl.shrunk = false
	if size <= 0 {
		pl.pages = nil
		return
	}
	pl.pages = []Page{{Offset: 0, Bytes: size, Loaded: loaded, Modified: modified}}
}

// Size returns the end offset of the last page, or 0 if the list is empty.
func (pl *PageList) Size() int64 {
	if len(pl.pages) == 0 {
		return 0
	}
	return pl.pages[len(pl.pages)-1].End()
}

// Pages returns a copy of the underlying page slice, in offset order.
func (pl *PageList) Pages() []Page {
	out := make([]Page, len(pl.pages))
	copy(out, pl.pages)
	return out
}

// Resize grows or shrinks the list to size bytes, then compresses.
//
// Growing appends a page [Size(), size) with the given flags.
//
// Shrinking truncates or drops pages beyond size, splitting the page that
// straddles the new boundary. The shrunk flag is set purely from the
// modified argument the caller passes, independent of whatever flags the
// discarded bytes happened to carry: S3-style object stores have no
// in-place truncate, so a shrink always requires a fresh upload of the
// new, shorter object, and it is the caller's job to say whether that
// makes the file dirty.
func (pl *PageList) Resize(size int64, loaded, modified bool) {
	if size < 0 {
		size = 0
	}
	cur := pl.Size()
	switch {
	case size == cur:
		// nothing to do
	case size > cur:
		pl.pages = append(pl.pages, Page{Offset: cur, Bytes: size - cur, Loaded: loaded, Modified: modified})
	default:
		pl.shrinkTo(size, modified)
	}
	pl.Compress()
}

func (pl *PageList) shrinkTo(size int64, callerModified bool) {
	if size <= 0 {
		pl.pages = nil
	} else {
		kept := make([]Page, 0, len(pl.pages))
		for _, p := range pl.pages {
			switch {
			case p.End() <= size:
				kept = append(kept, p)
			case p.Offset < size:
				kept = append(kept, Page{Offset: p.Offset, Bytes: size - p.Offset, Loaded: p.Loaded, Modified: p.Modified})
			default:
				// dropped entirely
			}
		}
		pl.pages = kept
	}
	if callerModified {
		pl.shrunk = true
	}
}

// Parse splits the page containing pos into two pages at pos, preserving
// flags. It is a no-op success if pos already falls on a page boundary
// (including pos==0 or pos==Size()). It fails (returns false) if pos lies
// strictly beyond Size().
func (pl *PageList) Parse(pos int64) bool {
	size := pl.Size()
	if pos < 0 || pos > size {
		return false
	}
	if pos == size {
		return true
	}
	for i, p := range pl.pages {
		if pos == p.Offset {
			return true
		}
		if pos > p.Offset && pos < p.End() {
			left := Page{Offset: p.Offset, Bytes: pos - p.Offset, Loaded: p.Loaded, Modified: p.Modified}
			right := Page{Offset: pos, Bytes: p.End() - pos, Loaded: p.Loaded, Modified: p.Modified}
			next := make([]Page, 0, len(pl.pages)+1)
			next = append(next, pl.pages[:i]...)
			next = append(next, left, right)
			next = append(next, pl.pages[i+1:]...)
			pl.pages = next
			return true
		}
	}
	return true
}

// Compress coalesces adjacent pages sharing identical (Loaded, Modified)
// flags and bridges any internal gap with a (false, false) filler page.
// It always succeeds and is idempotent.
func (pl *PageList) Compress() {
	if len(pl.pages) == 0 {
		return
	}
	sort.Slice(pl.pages, func(i, j int) bool { return pl.pages[i].Offset < pl.pages[j].Offset })

	out := make([]Page, 0, len(pl.pages))
	var next int64
	for _, p := range pl.pages {
		if p.Bytes <= 0 {
			continue
		}
		if p.Offset > next {
			out = appendMerging(out, Page{Offset: next, Bytes: p.Offset - next})
		}
		out = appendMerging(out, p)
		next = p.End()
	}
	pl.pages = out
}

func appendMerging(pages []Page, p Page) []Page {
	if n := len(pages); n > 0 {
		last := &pages[n-1]
		if last.End() == p.Offset && last.Loaded == p.Loaded && last.Modified == p.Modified {
			last.Bytes += p.Bytes
			return pages
		}
	}
	return append(pages, p)
}

// SetPageLoadedStatus applies status to [start, start+size). If the range
// extends beyond the current size, the list grows: the gap between the
// old Size() and start becomes (false, modified-of-status) — unwritten
// bytes inside a written-past-end hole count as dirty zeros — and the
// target range takes the requested flags. Compress is applied afterward
// if requested.
func (pl *PageList) SetPageLoadedStatus(start, size int64, status PageStatus, compress bool) {
	if size <= 0 || start < 0 {
		return
	}
	loaded, modified := status.flags()
	end := start + size
	cur := pl.Size()

	if start > cur {
		pl.pages = append(pl.pages, Page{Offset: cur, Bytes: start - cur, Loaded: false, Modified: modified})
		cur = start
	}

	if end <= cur {
		pl.Parse(start)
		pl.Parse(end)
		for i := range pl.pages {
			p := &pl.pages[i]
			if p.Offset >= start && p.End() <= end {
				p.Loaded = loaded
				p.Modified = modified
			}
		}
	} else {
		if start < cur {
			pl.Parse(start)
			for i := range pl.pages {
				p := &pl.pages[i]
				if p.Offset >= start && p.Offset < cur {
					p.Loaded = loaded
					p.Modified = modified
				}
			}
		}
		pl.pages = append(pl.pages, Page{Offset: cur, Bytes: end - cur, Loaded: loaded, Modified: modified})
	}

	if compress {
		pl.Compress()
	}
}

// windowEnd resolves a (start, size) query window, where size<=0 means
// "from start to the end of the list".
func (pl *PageList) windowEnd(start, size int64) int64 {
	if size <= 0 {
		return pl.Size()
	}
	return start + size
}

// IsPageLoaded reports whether every page intersecting [start, start+size)
// has Loaded=true. size==0 means "from start to end". A window with no
// intersecting pages is vacuously loaded.
func (pl *PageList) IsPageLoaded(start, size int64) bool {
	end := pl.windowEnd(start, size)
	for _, p := range pl.pages {
		if p.End() <= start || p.Offset >= end {
			continue
		}
		if !p.Loaded {
			return false
		}
	}
	return true
}

// FindUnloadedPage returns the first hole (Loaded=false, Modified=false)
// at or after start, trimmed to start. Modified-but-unloaded pages are
// never returned: a download must not overwrite write-before-read data.
func (pl *PageList) FindUnloadedPage(start int64) (outStart, outSize int64, found bool) {
	for _, p := range pl.pages {
		if p.End() <= start {
			continue
		}
		if p.Loaded || p.Modified {
			continue
		}
		s := p.Offset
		if s < start {
			s = start
		}
		return s, p.End() - s, true
	}
	return 0, 0, false
}

// GetUnloadedPages returns every (false, false) subrange intersecting
// [start, start+size), with adjacent results merged. size<=0 means
// "to the end of the list".
func (pl *PageList) GetUnloadedPages(start, size int64) []Page {
	end := pl.windowEnd(start, size)
	var out []Page
	for _, p := range pl.pages {
		if p.End() <= start || p.Offset >= end {
			continue
		}
		if p.Loaded || p.Modified {
			continue
		}
		s, e := maxI64(p.Offset, start), minI64(p.End(), end)
		if e > s {
			out = appendMerging(out, Page{Offset: s, Bytes: e - s})
		}
	}
	return out
}

// GetTotalUnloadedPageSize sums the bytes of unloaded-and-unmodified
// subranges intersecting [start, start+size). If limit>0, only subranges
// strictly smaller than limit are counted — used to decide whether small
// gaps are worth prefetching to coalesce I/O.
func (pl *PageList) GetTotalUnloadedPageSize(start, size, limit int64) int64 {
	var total int64
	for _, p := range pl.GetUnloadedPages(start, size) {
		if limit > 0 && p.Bytes >= limit {
			continue
		}
		total += p.Bytes
	}
	return total
}

// GetNoDataPageLists returns every non-modified subrange (holes and clean
// cached data alike) intersecting [start, start+size). Used when
// invalidating local state: both categories must be dropped together.
func (pl *PageList) GetNoDataPageLists(start, size int64) []Page {
	end := pl.windowEnd(start, size)
	var out []Page
	for _, p := range pl.pages {
		if p.End() <= start || p.Offset >= end {
			continue
		}
		if p.Modified {
			continue
		}
		s, e := maxI64(p.Offset, start), minI64(p.End(), end)
		if e > s {
			out = appendMerging(out, Page{Offset: s, Bytes: e - s, Loaded: p.Loaded})
		}
	}
	return out
}

// BytesModified sums Bytes over every page with Modified=true.
func (pl *PageList) BytesModified() int64 {
	var total int64
	for _, p := range pl.pages {
		if p.Modified {
			total += p.Bytes
		}
	}
	return total
}

// IsModified reports whether the file is dirty: the shrunk flag is set, or
// any page has Modified=true.
func (pl *PageList) IsModified() bool {
	if pl.shrunk {
		return true
	}
	for _, p := range pl.pages {
		if p.Modified {
			return true
		}
	}
	return false
}

// ClearAllModified clears the shrunk flag and every page's Modified flag,
// then compresses. Called after a successful upload.
func (pl *PageList) ClearAllModified() {
	pl.shrunk = false
	for i := range pl.pages {
		pl.pages[i].Modified = false
	}
	pl.Compress()
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
