// Package filesystem provides the adapter that makes the existing S3 backend
// implement the common FilesystemInterface. This adapter ensures complete
// backend compatibility while enabling multi-protocol support.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/objectfs/objectfs/internal/storage/s3"
	"github.com/objectfs/objectfs/pkg/types"
)

// S3FilesystemBackend adapts the existing S3 backend to implement FilesystemInterface
// This maintains 100% compatibility with existing S3 backend, cost optimization,
// pricing management, and all enterprise features.
type S3FilesystemBackend struct {
	// Existing S3 backend - COMPLETELY UNCHANGED
	backend *s3.Backend
	
	// File handle management
	handles     map[uint64]*S3FileHandle
	nextHandle  uint64
	
	// Path translation
	rootPrefix  string  // S3 key prefix for this filesystem root
}

// NewS3FilesystemBackend creates a new filesystem adapter around the existing S3 backend
func NewS3FilesystemBackend(backend *s3.Backend, rootPrefix string) *S3FilesystemBackend {
	return &S3FilesystemBackend{
		backend:    backend,
		handles:    make(map[uint64]*S3FileHandle),
		rootPrefix: strings.TrimSuffix(rootPrefix, "/") + "/",
	}
}

// pathToS3Key converts a filesystem path to an S3 key
func (fs *S3FilesystemBackend) pathToS3Key(path string) string {
	// Clean the path and convert to S3 key
	clean := filepath.Clean(path)
	if clean == "." || clean == "/" {
		return fs.rootPrefix
	}
	
	// Remove leading slash and add root prefix
	key := strings.TrimPrefix(clean, "/")
	return fs.rootPrefix + key
}

// s3KeyToPath converts an S3 key back to a filesystem path
func (fs *S3FilesystemBackend) s3KeyToPath(key string) string {
	if !strings.HasPrefix(key, fs.rootPrefix) {
		return ""
	}
	
	path := strings.TrimPrefix(key, fs.rootPrefix)
	if path == "" {
		return "/"
	}
	
	return "/" + path
}

// Open opens a file for reading or writing
func (fs *S3FilesystemBackend) Open(ctx context.Context, path string, flags int) (FileHandle, error) {
	s3Key := fs.pathToS3Key(path)
	
	// Use existing backend methods - ZERO CHANGES to backend
	objectInfo, err := fs.backend.GetObjectInfo(ctx, s3Key)
	if err != nil {
		return nil, &FilesystemError{
			Op:   "open",
			Path: path,
			Err:  err,
		}
	}
	
	// Create file handle
	handleID := atomic.AddUint64(&fs.nextHandle, 1)
	handle := &S3FileHandle{
		id:           handleID,
		path:         path,
		s3Key:        s3Key,
		flags:        flags,
		backend:      fs.backend,
		objectInfo:   objectInfo,
		position:     0,
	}
	
	fs.handles[handleID] = handle
	
	return handle, nil
}

// Create creates a new file
func (fs *S3FilesystemBackend) Create(ctx context.Context, path string, mode os.FileMode) (FileHandle, error) {
	s3Key := fs.pathToS3Key(path)
	
	// Create empty object using existing backend
	err := fs.backend.PutObject(ctx, s3Key, []byte{})
	if err != nil {
		return nil, &FilesystemError{
			Op:   "create",
			Path: path,
			Err:  err,
		}
	}
	
	// Create file handle for the new file
	handleID := atomic.AddUint64(&fs.nextHandle, 1)
	handle := &S3FileHandle{
		id:      handleID,
		path:    path,
		s3Key:   s3Key,
		flags:   os.O_RDWR | os.O_CREATE,
		backend: fs.backend,
		objectInfo: &types.ObjectInfo{
			Key:          s3Key,
			Size:         0,
			LastModified: time.Now(),
			ETag:         "",
		},
		position: 0,
		modified: true,
		buffer:   make([]byte, 0),
	}
	
	fs.handles[handleID] = handle
	
	return handle, nil
}

// Close closes a file handle
func (fs *S3FilesystemBackend) Close(ctx context.Context, fh FileHandle) error {
	handle, ok := fh.(*S3FileHandle)
	if !ok {
		return &FilesystemError{Op: "close", Err: fmt.Errorf("invalid file handle")}
	}
	
	// Flush any pending writes
	if handle.modified && len(handle.buffer) > 0 {
		err := fs.backend.PutObject(ctx, handle.s3Key, handle.buffer)
		if err != nil {
			return &FilesystemError{
				Op:   "close",
				Path: handle.path,
				Err:  err,
			}
		}
	}
	
	// Remove from handle map
	delete(fs.handles, handle.id)
	
	return nil
}

// Read reads data from a file handle
func (fs *S3FilesystemBackend) Read(ctx context.Context, fh FileHandle, buf []byte, offset int64) (int, error) {
	handle, ok := fh.(*S3FileHandle)
	if !ok {
		return 0, &FilesystemError{Op: "read", Err: fmt.Errorf("invalid file handle")}
	}
	
	// Use existing backend GetObjectRange method - UNCHANGED
	data, err := fs.backend.GetObjectRange(ctx, handle.s3Key, offset, int64(len(buf)))
	if err != nil {
		return 0, &FilesystemError{
			Op:   "read",
			Path: handle.path,
			Err:  err,
		}
	}
	
	// Copy data to buffer
	n := copy(buf, data)
	handle.position = offset + int64(n)
	
	return n, nil
}

// Write writes data to a file handle
func (fs *S3FilesystemBackend) Write(ctx context.Context, fh FileHandle, data []byte, offset int64) (int, error) {
	handle, ok := fh.(*S3FileHandle)
	if !ok {
		return 0, &FilesystemError{Op: "write", Err: fmt.Errorf("invalid file handle")}
	}
	
	// For simplicity, we'll buffer writes and flush on close
	// In production, this would use the existing write buffer system
	if handle.buffer == nil {
		handle.buffer = make([]byte, 0, len(data))
	}
	
	// Extend buffer if needed
	requiredSize := offset + int64(len(data))
	if requiredSize > int64(len(handle.buffer)) {
		newBuffer := make([]byte, requiredSize)
		copy(newBuffer, handle.buffer)
		handle.buffer = newBuffer
	}
	
	// Copy data to buffer
	n := copy(handle.buffer[offset:], data)
	handle.modified = true
	handle.position = offset + int64(n)
	
	return n, nil
}

// ReadDir lists directory contents
func (fs *S3FilesystemBackend) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	s3Prefix := fs.pathToS3Key(path)
	
	// Use existing backend ListObjects method - UNCHANGED
	objects, err := fs.backend.ListObjects(ctx, s3Prefix)
	if err != nil {
		return nil, &FilesystemError{
			Op:   "readdir",
			Path: path,
			Err:  err,
		}
	}
	
	// Convert to DirEntry format
	entries := make([]DirEntry, 0, len(objects))
	for _, obj := range objects {
		// Convert S3 object to filesystem path
		entryPath := fs.s3KeyToPath(obj.Key)
		if entryPath == "" {
			continue
		}
		
		// Get just the filename
		name := filepath.Base(entryPath)
		if name == "." || name == "/" {
			continue
		}
		
		entry := DirEntry{
			Name:        name,
			Size:        obj.Size,
			ModTime:     obj.LastModified,
			IsDir:       strings.HasSuffix(obj.Key, "/"),
			S3Key:       obj.Key,
			StorageTier: obj.StorageClass,
			ETag:        obj.ETag,
		}
		
		// Set file type and mode
		if entry.IsDir {
			entry.Type = FileTypeDirectory
			entry.Mode = os.ModeDir | 0755
		} else {
			entry.Type = FileTypeRegular
			entry.Mode = 0644
		}
		
		entries = append(entries, entry)
	}
	
	return entries, nil
}

// Stat gets file/directory metadata
func (fs *S3FilesystemBackend) Stat(ctx context.Context, path string) (FileInfo, error) {
	s3Key := fs.pathToS3Key(path)
	
	// Use existing backend GetObjectInfo - UNCHANGED
	objectInfo, err := fs.backend.GetObjectInfo(ctx, s3Key)
	if err != nil {
		return FileInfo{}, &FilesystemError{
			Op:   "stat",
			Path: path,
			Err:  err,
		}
	}
	
	// Convert to FileInfo
	info := FileInfo{
		Name_:       filepath.Base(path),
		Size_:       objectInfo.Size,
		ModTime_:    objectInfo.LastModified,
		IsDir_:      strings.HasSuffix(objectInfo.Key, "/"),
		S3Key:       objectInfo.Key,
		StorageTier: objectInfo.StorageClass,
		ETag:        objectInfo.ETag,
		ContentType: objectInfo.ContentType,
		Metadata:    objectInfo.Metadata,
		Uid:         os.Getuid(),
		Gid:         os.Getgid(),
	}
	
	// Set file mode
	if info.IsDir_ {
		info.Mode_ = os.ModeDir | 0755
	} else {
		info.Mode_ = 0644
	}
	
	return info, nil
}

// GetCostOptimization returns cost analysis using existing cost optimizer - UNCHANGED
func (fs *S3FilesystemBackend) GetCostOptimization(ctx context.Context, path string) (*CostAnalysis, error) {
	s3Key := fs.pathToS3Key(path)
	
	// Use existing cost optimizer - ZERO CHANGES
	if fs.backend.GetCostOptimizer() != nil {
		// Get optimization report from existing system
		report := fs.backend.GetCostOptimizer().GetOptimizationReport(ctx)
		
		// Find analysis for this specific object
		for _, item := range report.Items {
			if item.Key == s3Key {
				return &CostAnalysis{
					CurrentTier:         item.CurrentTier,
					MonthlyStorageCost: item.MonthlyCost,
					RecommendedTier:    item.RecommendedTier,
					PotentialSavings:   item.PotentialSavings,
					OptimizationReason: item.Reason,
					AccessFrequency:    item.AccessFrequency,
					ConfidenceScore:    item.Confidence,
				}, nil
			}
		}
	}
	
	return nil, &FilesystemError{Op: "cost-analysis", Path: path, Err: fmt.Errorf("not available")}
}

// GetStorageTier returns the current storage tier
func (fs *S3FilesystemBackend) GetStorageTier(ctx context.Context, path string) (string, error) {
	info, err := fs.Stat(ctx, path)
	if err != nil {
		return "", err
	}
	
	return info.StorageTier, nil
}

// SetStorageTier changes the storage tier using existing backend methods
func (fs *S3FilesystemBackend) SetStorageTier(ctx context.Context, path string, tier string) error {
	s3Key := fs.pathToS3Key(path)
	
	// Use existing backend methods for tier management - UNCHANGED
	return fs.backend.SetObjectStorageClass(ctx, s3Key, tier)
}

// Implement remaining interface methods...
// (Mkdir, Remove, Rename, etc. - all using existing backend methods)

// S3FileHandle implements the FileHandle interface for S3 objects
type S3FileHandle struct {
	id         uint64
	path       string
	s3Key      string
	flags      int
	backend    *s3.Backend
	objectInfo *types.ObjectInfo
	position   int64
	modified   bool
	buffer     []byte
}

func (fh *S3FileHandle) Read(p []byte) (n int, error) {
	// Implement io.Reader interface
	if fh.position >= fh.objectInfo.Size {
		return 0, io.EOF
	}
	
	// Use backend GetObjectRange
	data, err := fh.backend.GetObjectRange(context.Background(), fh.s3Key, fh.position, int64(len(p)))
	if err != nil {
		return 0, err
	}
	
	n = copy(p, data)
	fh.position += int64(n)
	
	if n == 0 {
		return 0, io.EOF
	}
	
	return n, nil
}

func (fh *S3FileHandle) Write(p []byte) (n int, error) {
	// Buffer writes
	if fh.buffer == nil {
		fh.buffer = make([]byte, 0, len(p))
	}
	
	fh.buffer = append(fh.buffer, p...)
	fh.modified = true
	fh.position += int64(len(p))
	
	return len(p), nil
}

func (fh *S3FileHandle) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		fh.position = offset
	case io.SeekCurrent:
		fh.position += offset
	case io.SeekEnd:
		fh.position = fh.objectInfo.Size + offset
	default:
		return 0, fmt.Errorf("invalid whence")
	}
	
	return fh.position, nil
}

func (fh *S3FileHandle) Close() error {
	// Flush buffer if modified
	if fh.modified && len(fh.buffer) > 0 {
		return fh.backend.PutObject(context.Background(), fh.s3Key, fh.buffer)
	}
	
	return nil
}

func (fh *S3FileHandle) ID() uint64           { return fh.id }
func (fh *S3FileHandle) Path() string         { return fh.path }
func (fh *S3FileHandle) Flags() int           { return fh.flags }
func (fh *S3FileHandle) S3Key() string        { return fh.s3Key }
func (fh *S3FileHandle) StorageTier() string  { return fh.objectInfo.StorageClass }
func (fh *S3FileHandle) Size() int64          { return fh.objectInfo.Size }
func (fh *S3FileHandle) LastModified() time.Time { return fh.objectInfo.LastModified }

// Additional methods for remaining FilesystemInterface operations would be implemented here,
// all using the existing S3 backend methods with zero modifications to the backend itself.