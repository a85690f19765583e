package pagecache

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// checkZeroChunkSize is the read buffer size CheckZeroAreaInFile uses
// when scanning a suspect region for all-zero bytes.
const checkZeroChunkSize = 16 * 1024

// CacheFile is the random-access byte store a PageList is checked against
// and persisted alongside: an open local cache file plus the sparse-hole
// query the verifier needs. *os.File satisfies it directly.
type CacheFile interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Fd() uintptr
	Stat() (os.FileInfo, error)
}

// GetSparseFilePages inspects f's real hole/data layout with SEEK_HOLE and
// SEEK_DATA and returns the PageList it implies: Loaded=true for data
// ranges, Loaded=false for holes, Modified left false throughout (the
// verifier has no notion of dirtiness, only of presence).
//
// On platforms or filesystems without SEEK_HOLE/SEEK_DATA support, the
// whole file is reported as a single data range, per spec: treat every
// file as fully-data when the distinction is unavailable.
func GetSparseFilePages(f CacheFile) (*PageList, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("pagecache: stat cache file: %w", err)
	}
	size := info.Size()
	pl := &PageList{}
	if size == 0 {
		return pl, nil
	}

	fd := int(f.Fd())
	var pos int64
	for pos < size {
		dataStart, err := unix.Seek(fd, pos, unix.SEEK_DATA)
		if err != nil {
			if isSeekHoleUnsupported(err) {
				pl.Init(size, true, false)
				return pl, nil
			}
			if err == unix.ENXIO {
				// rest of file is a hole
				pl.pages = appendMerging(pl.pages, Page{Offset: pos, Bytes: size - pos, Loaded: false})
				pos = size
				break
			}
			return nil, fmt.Errorf("pagecache: seek SEEK_DATA at %d: %w", pos, err)
		}
		if dataStart > pos {
			pl.pages = appendMerging(pl.pages, Page{Offset: pos, Bytes: dataStart - pos, Loaded: false})
		}

		holeStart, err := unix.Seek(fd, dataStart, unix.SEEK_HOLE)
		if err != nil {
			return nil, fmt.Errorf("pagecache: seek SEEK_HOLE at %d: %w", dataStart, err)
		}
		if holeStart > dataStart {
			pl.pages = appendMerging(pl.pages, Page{Offset: dataStart, Bytes: holeStart - dataStart, Loaded: true})
		}
		pos = holeStart
	}

	if _, err := unix.Seek(fd, 0, unix.SEEK_SET); err != nil {
		return nil, fmt.Errorf("pagecache: restore file position: %w", err)
	}
	return pl, nil
}

func isSeekHoleUnsupported(err error) bool {
	return err == unix.EINVAL || err == unix.EOPNOTSUPP
}

// CheckZeroAreaInFile confirms that [start, start+bytes) in f reads back
// as all-zero, reading in checkZeroChunkSize pieces rather than
// allocating the whole range at once.
func CheckZeroAreaInFile(f CacheFile, start int64, bytes int64) (bool, error) {
	buf := make([]byte, checkZeroChunkSize)
	for compared := int64(0); compared < bytes; {
		chunk := int64(checkZeroChunkSize)
		if rest := bytes - compared; rest < chunk {
			chunk = rest
		}
		n, err := f.ReadAt(buf[:chunk], start+compared)
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("pagecache: read %d bytes at %d: %w", chunk, start+compared, err)
		}
		for i := 0; i < n; i++ {
			if buf[i] != 0 {
				return false, nil
			}
		}
		if int64(n) < chunk {
			break
		}
		compared += chunk
	}
	return true, nil
}

// CheckAreaInSparseFile checks one page (checkpage, typically loaded
// from a persisted PageList) against sparseList, the real hole/data
// layout of the cache file reported by GetSparseFilePages. sparseList's
// elements lie against checkpage in one of six positional cases:
//
//	File           |<---...--------------------------------------...--->|
//	Check Area              (offset)<-------------------->(offset + bytes - 1)
//	Area case(0)       <------->
//	Area case(1)                                            <------->
//	Area case(2)              <-------->
//	Area case(3)                                 <---------->
//	Area case(4)                      <----------->
//	Area case(5)              <----------------------------->
//
// If checkpage claims to be loaded or modified, any overlapping hole in
// sparseList is a real error (the cache thinks it has data that was
// never actually written). If checkpage claims to be a hole, an
// overlapping data region is only a problem if that data isn't all
// zero; genuinely-zero surplus data is tolerated and never reported.
func CheckAreaInSparseFile(checkpage Page, sparseList []Page, f CacheFile) (errAreas []Page, warnAreas []Page, err error) {
	for _, real := range sparseList {
		var checkStart, checkBytes int64

		switch {
		case real.End() <= checkpage.Offset:
			// case 0: real area ends before checkpage starts.
			continue
		case checkpage.End() <= real.Offset:
			// case 1: real area starts after checkpage ends.
			return errAreas, warnAreas, nil
		case real.Offset < checkpage.Offset && real.End() < checkpage.End():
			// case 2: real area overlaps checkpage's leading edge.
			checkStart = checkpage.Offset
			checkBytes = real.End() - checkpage.Offset
		case checkpage.Offset <= real.Offset && checkpage.End() < real.End():
			// case 3: real area overlaps checkpage's trailing edge.
			checkStart = real.Offset
			checkBytes = checkpage.End() - real.Offset
		case checkpage.Offset <= real.Offset && real.End() <= checkpage.End():
			// case 4: real area lies entirely inside checkpage.
			checkStart = real.Offset
			checkBytes = real.Bytes
		default:
			// case 5: real area entirely covers checkpage.
			checkStart = checkpage.Offset
			checkBytes = checkpage.Bytes
		}

		if checkpage.Loaded || checkpage.Modified {
			// target area must not be a hole.
			if !real.Loaded {
				errAreas = append(errAreas, Page{Offset: checkStart, Bytes: checkBytes})
			}
			continue
		}

		// target area should be a hole; if it's data, it must be zero.
		if real.Loaded {
			zero, zerr := CheckZeroAreaInFile(f, checkStart, checkBytes)
			if zerr != nil {
				return errAreas, warnAreas, zerr
			}
			if !zero {
				warnAreas = append(warnAreas, Page{Offset: checkStart, Bytes: checkBytes, Loaded: true})
			}
		}
	}
	return errAreas, warnAreas, nil
}

// CompareSparseFile reconciles pl against the real sparse layout of f:
// every page of pl claiming to be loaded or modified must be backed by
// real data, and every page pl claims is a hole must either really be a
// hole or be a real, all-zero data region. It returns every offending
// area split into errors (genuinely missing data) and warnings
// (harmless zero-filled surplus allocation), and ok=true only when both
// are empty.
func CompareSparseFile(pl *PageList, f CacheFile) (ok bool, errAreas []Page, warnAreas []Page, err error) {
	sparse, err := GetSparseFilePages(f)
	if err != nil {
		return false, []Page{{Offset: 0, Bytes: pl.Size()}}, nil, err
	}

	if len(sparse.pages) == 0 && len(pl.pages) == 0 {
		// both file and stats are empty: a zero-size cache file.
		return true, nil, nil, nil
	}

	result := true
	for _, page := range pl.pages {
		pageErrs, pageWarns, cerr := CheckAreaInSparseFile(page, sparse.pages, f)
		if cerr != nil {
			return false, errAreas, warnAreas, cerr
		}
		if len(pageErrs) > 0 || len(pageWarns) > 0 {
			result = false
		}
		errAreas = append(errAreas, pageErrs...)
		warnAreas = append(warnAreas, pageWarns...)
	}
	return result, errAreas, warnAreas, nil
}
