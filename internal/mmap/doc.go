// Package mmap maps serialized n-gram maps into memory read-only.
//
// Saved maps are loaded by decoding straight out of the mapping instead of
// streaming the file through a buffered reader:
//
//	m, err := mmap.Open("model.ngs")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2) and madvise(2). Windows uses CreateFileMapping and
// MapViewOfFile, where Advise is a no-op.
//
// A Mapping is safe for concurrent readers. Close is idempotent; callers must
// not touch the slice returned by Bytes after Close returns.
package mmap
