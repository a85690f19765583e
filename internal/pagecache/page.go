package pagecache

// Page is a half-open byte range [Offset, Offset+Bytes) with two
// independent flags: Loaded (its bytes mirror the remote object) and
// Modified (its bytes were written locally and have not been uploaded).
type Page struct {
	Offset   int64
	Bytes    int64
	Loaded   bool
	Modified bool
}

// End returns the byte offset immediately after the page.
func (p Page) End() int64 {
	return p.Offset + p.Bytes
}

// PageStatus names one of the four closed (Loaded, Modified) combinations
// accepted by SetPageLoadedStatus. Keeping two booleans in Page mirrors the
// on-disk stat-file format (§4.3); PageStatus is the ergonomic API surface
// callers use instead of poking at the two flags directly.
type PageStatus int

const (
	// NotLoadedModified marks a range as a hole: absent from the cache,
	// not dirty.
	NotLoadedModified PageStatus = iota
	// Loaded marks a range as a clean mirror of the remote object.
	Loaded
	// Modified marks a range as dirty and not present from a prior
	// download (write-before-read).
	Modified
	// LoadModified marks a range as dirty over data that was previously
	// downloaded.
	LoadModified
)

func (s PageStatus) flags() (loaded, modified bool) {
	switch s {
	case Loaded:
		return true, false
	case Modified:
		return false, true
	case LoadModified:
		return true, true
	default:
		return false, false
	}
}

func (s PageStatus) String() string {
	switch s {
	case NotLoadedModified:
		return "NOT_LOAD_MODIFIED"
	case Loaded:
		return "LOADED"
	case Modified:
		return "MODIFIED"
	case LoadModified:
		return "LOAD_MODIFIED"
	default:
		return "UNKNOWN"
	}
}
