package pagecache

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	objectfserrors "github.com/objectfs/objectfs/pkg/errors"
)

// StatFileSuffix is appended to a cache file's path to derive the path of
// its sidecar PageList stat file.
const StatFileSuffix = ".objectfs.pages"

// StatFilePath returns the sidecar stat-file path for a cache file path.
func StatFilePath(cacheFilePath string) string {
	return cacheFilePath + StatFileSuffix
}

// Serialize writes pl to w as one "<inode>:<total_size>" header line
// followed by one "<offset>:<bytes>:<loaded 0|1>:<modified 0|1>" line per
// page. Field separator is ":"; every integer is base-10 signed 64-bit.
func Serialize(w io.Writer, pl *PageList, inode uint64) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d:%d", inode, pl.Size()); err != nil {
		return objectfserrors.NewError(objectfserrors.ErrCodeStorageWrite, "write pagelist header").
			WithComponent("pagecache").WithOperation("Serialize")
	}
	for _, p := range pl.pages {
		if _, err := fmt.Fprintf(bw, "\n%d:%d:%s:%s", p.Offset, p.Bytes, boolDigit(p.Loaded), boolDigit(p.Modified)); err != nil {
			return objectfserrors.NewError(objectfserrors.ErrCodeStorageWrite, "write pagelist entry").
				WithComponent("pagecache").WithOperation("Serialize")
		}
	}
	if err := bw.Flush(); err != nil {
		return objectfserrors.NewError(objectfserrors.ErrCodeStorageWrite, "flush pagelist").
			WithComponent("pagecache").WithOperation("Serialize").WithDetail("cause", err.Error())
	}
	return nil
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Deserialize reads a PageList previously written by Serialize. The
// header line is either the current "<inode>:<total_size>" form or the
// legacy pre-inode "<total_size>" form (accepted on read, never
// written); a legacy header never carries an inode, so the inode check
// below is skipped for it. If the header carries an inode and wantInode
// is nonzero, a mismatch is reported via ok=false rather than an error:
// it means the cache file at that path was replaced since the stat file
// was written, and the caller should treat the cache as cold rather
// than fail the open. Likewise, if the reconstructed PageList's size
// disagrees with the header's declared total_size, the stat file is
// stale or corrupt and ok=false is returned rather than an error.
func Deserialize(r io.Reader, wantInode uint64) (pl *PageList, ok bool, err error) {
	sc := bufio.NewScanner(r)
	pl = NewPageList()

	if !sc.Scan() {
		if serr := sc.Err(); serr != nil {
			return nil, false, objectfserrors.NewError(objectfserrors.ErrCodeStorageRead, "read pagelist header").
				WithComponent("pagecache").WithOperation("Deserialize").WithDetail("cause", serr.Error())
		}
		// empty file: nothing persisted yet.
		return NewPageList(), true, nil
	}

	total, statInode, haveInode, herr := parseHeaderLine(sc.Text())
	if herr != nil {
		return nil, false, herr
	}
	if haveInode && wantInode != 0 && statInode != wantInode {
		return nil, false, nil
	}

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		offset, bytes, status, perr := parsePageLine(line)
		if perr != nil {
			return nil, false, perr
		}
		pl.SetPageLoadedStatus(offset, bytes, status, true)
	}
	if err := sc.Err(); err != nil {
		return nil, false, objectfserrors.NewError(objectfserrors.ErrCodeStorageRead, "read pagelist").
			WithComponent("pagecache").WithOperation("Deserialize").WithDetail("cause", err.Error())
	}

	if total != pl.Size() {
		return nil, false, nil
	}
	return pl, true, nil
}

// parseHeaderLine parses the single header line of a stat file: either
// "<inode>:<total_size>" (current) or "<total_size>" (legacy, no inode).
func parseHeaderLine(line string) (total int64, inode uint64, haveInode bool, err error) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) == 1 {
		total, perr := strconv.ParseInt(parts[0], 10, 64)
		if perr != nil {
			return 0, 0, false, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "malformed pagelist header").
				WithComponent("pagecache").WithOperation("Deserialize")
		}
		return total, 0, false, nil
	}

	statInode, ierr := strconv.ParseUint(parts[0], 10, 64)
	if ierr != nil {
		return 0, 0, false, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "malformed pagelist inode").
			WithComponent("pagecache").WithOperation("Deserialize")
	}
	if statInode == 0 {
		return 0, 0, false, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "wrong inode number in pagelist header").
			WithComponent("pagecache").WithOperation("Deserialize")
	}
	total, terr := strconv.ParseInt(parts[1], 10, 64)
	if terr != nil {
		return 0, 0, false, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "malformed pagelist header").
			WithComponent("pagecache").WithOperation("Deserialize")
	}
	return total, statInode, true, nil
}

func parsePageLine(line string) (offset, bytes int64, status PageStatus, err error) {
	parts := strings.Split(line, ":")
	if len(parts) != 4 {
		return 0, 0, 0, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "malformed pagelist entry").
			WithComponent("pagecache").WithOperation("Deserialize").WithDetail("line", line)
	}
	offset, perr := strconv.ParseInt(parts[0], 10, 64)
	if perr != nil {
		return 0, 0, 0, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "malformed pagelist offset").
			WithComponent("pagecache").WithOperation("Deserialize").WithDetail("line", line)
	}
	bytes, berr := strconv.ParseInt(parts[1], 10, 64)
	if berr != nil {
		return 0, 0, 0, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "malformed pagelist bytes").
			WithComponent("pagecache").WithOperation("Deserialize").WithDetail("line", line)
	}
	loaded, lerr := strconv.ParseInt(parts[2], 10, 64)
	if lerr != nil || (loaded != 0 && loaded != 1) {
		return 0, 0, 0, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "malformed pagelist loaded flag").
			WithComponent("pagecache").WithOperation("Deserialize").WithDetail("line", line)
	}
	modified, merr := strconv.ParseInt(parts[3], 10, 64)
	if merr != nil || (modified != 0 && modified != 1) {
		return 0, 0, 0, objectfserrors.NewError(objectfserrors.ErrCodeValidationFailed, "malformed pagelist modified flag").
			WithComponent("pagecache").WithOperation("Deserialize").WithDetail("line", line)
	}

	switch {
	case loaded == 1 && modified == 1:
		status = LoadModified
	case loaded == 1:
		status = Loaded
	case modified == 1:
		status = Modified
	default:
		status = NotLoadedModified
	}
	return offset, bytes, status, nil
}

// SaveToFile writes pl's stat file for the cache file at cacheFilePath.
func SaveToFile(cacheFilePath string, pl *PageList, inode uint64) error {
	statPath := StatFilePath(cacheFilePath)
	tmp := statPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return objectfserrors.NewError(objectfserrors.ErrCodeStorageWrite, "open pagelist stat file").
			WithComponent("pagecache").WithOperation("SaveToFile").WithDetail("path", tmp)
	}
	if err := Serialize(f, pl, inode); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return objectfserrors.NewError(objectfserrors.ErrCodeStorageWrite, "close pagelist stat file").
			WithComponent("pagecache").WithOperation("SaveToFile")
	}
	if err := os.Rename(tmp, statPath); err != nil {
		return objectfserrors.NewError(objectfserrors.ErrCodeStorageWrite, "commit pagelist stat file").
			WithComponent("pagecache").WithOperation("SaveToFile").WithDetail("path", statPath)
	}
	return nil
}

// LoadFromFile reads the stat file for cacheFilePath. ok=false with a nil
// error means no usable stat file exists (absent, inode mismatch, or a
// size that disagrees with the reconstructed PageList): the caller
// should start the PageList cold rather than treat it as an error.
func LoadFromFile(cacheFilePath string, wantInode uint64) (pl *PageList, ok bool, err error) {
	statPath := StatFilePath(cacheFilePath)
	f, err := os.Open(statPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, objectfserrors.NewError(objectfserrors.ErrCodeStorageRead, "open pagelist stat file").
			WithComponent("pagecache").WithOperation("LoadFromFile").WithDetail("path", statPath)
	}
	defer f.Close()
	return Deserialize(f, wantInode)
}

// RemoveStatFile deletes the sidecar stat file for cacheFilePath, if any.
func RemoveStatFile(cacheFilePath string) error {
	err := os.Remove(StatFilePath(cacheFilePath))
	if err != nil && !os.IsNotExist(err) {
		return objectfserrors.NewError(objectfserrors.ErrCodeStorageWrite, "remove pagelist stat file").
			WithComponent("pagecache").WithOperation("RemoveStatFile").WithDetail("path", filepath.Clean(cacheFilePath))
	}
	return nil
}
