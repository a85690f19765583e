/*
Package pagecache implements the sparse per-file page-range model that
drives ObjectFS's read-through caching, lazy download, and upload
planning.

A PageList tracks, for one open file's local cache copy, which byte
ranges mirror the remote object (loaded) and which have been written
locally and not yet uploaded (modified). It never performs I/O itself;
callers (the FUSE file handle layer, the upload planner) consult it to
decide what I/O to perform and then report the outcome back with
SetPageLoadedStatus.

# Page Flags

Each page carries two independent booleans:

	loaded=false, modified=false   hole: not in the local cache
	loaded=true,  modified=false   clean: mirrors the remote object
	loaded=false, modified=true    dirty, write-before-read
	loaded=true,  modified=true    dirty over previously-loaded data

# Invariants

A PageList always covers [0, Size()) contiguously with no gaps or
overlaps, and after Compress() no two adjacent pages share the same
flag pair. All mutating operations on one PageList must be serialized
by the caller; separate PageList instances are fully independent.

This package also provides the sparse-file verifier (comparing a
PageList against the real hole/data layout of its backing cache file)
and the stat-file persistence format that lets a PageList survive an
inode's file handle closing and reopening.
*/
package pagecache
