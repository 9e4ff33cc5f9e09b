// Package pagefile is the fixed-block page file provider that the buffer
// pool drives all disk traffic through. It knows nothing about slotted
// pages, records, or schemas — only fixed PageSize blocks at a PageID
// offset, grounded on original_source/buffer_mgr.c's
// openPageFile/ensureCapacity/closePageFile contract.
package pagefile

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

// PageSize is the fixed width of every page, in bytes.
const PageSize = 4096

// PageID identifies a page within a file. Page 0 is reserved by callers
// for table-catalog metadata; this package imposes no such meaning.
type PageID uint32

// ErrFileNotFound is returned when a named page file does not exist.
var ErrFileNotFound = errors.New("pagefile: file not found")

// Create creates a new page file containing exactly one zeroed page.
func Create(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer closeQuiet(f)

	if _, err := f.Write(make([]byte, PageSize)); err != nil {
		return err
	}
	return nil
}

// Destroy removes a page file from disk.
func Destroy(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return err
	}
	return nil
}

// File is one table's heap file, kept open for the lifetime of the
// handle rather than reopened on every read or write.
type File struct {
	f *os.File
}

// Open opens an existing page file, or creates one if it does not exist.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &File{f: f}, nil
}

// Close closes the underlying OS file handle.
func (pf *File) Close() error {
	return pf.f.Close()
}

// TotalNumPages returns the current page count, derived from file size.
func (pf *File) TotalNumPages() (PageID, error) {
	stat, err := pf.f.Stat()
	if err != nil {
		return 0, err
	}
	return PageID(stat.Size() / PageSize), nil
}

// EnsureCapacity extends the file with zeroed pages so that
// TotalNumPages() >= numPages.
func (pf *File) EnsureCapacity(numPages PageID) error {
	total, err := pf.TotalNumPages()
	if err != nil {
		return err
	}
	if total >= numPages {
		return nil
	}

	if _, err := pf.f.Seek(int64(total)*PageSize, io.SeekStart); err != nil {
		return err
	}
	zero := make([]byte, PageSize)
	for p := total; p < numPages; p++ {
		if _, err := pf.f.Write(zero); err != nil {
			return err
		}
	}
	return nil
}

// ReadPage reads exactly PageSize bytes at pageID*PageSize into dst. A
// short read (the page lies past the current end of file) is zero-padded
// rather than treated as an error.
func (pf *File) ReadPage(id PageID, dst []byte) error {
	if len(dst) != PageSize {
		return errIO("ReadPage: dst must be exactly PageSize bytes")
	}
	n, err := pf.f.ReadAt(dst, int64(id)*PageSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	for i := n; i < PageSize; i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes exactly PageSize bytes from src at pageID*PageSize.
func (pf *File) WritePage(id PageID, src []byte) error {
	if len(src) != PageSize {
		return errIO("WritePage: src must be exactly PageSize bytes")
	}
	n, err := pf.f.WriteAt(src, int64(id)*PageSize)
	if err != nil {
		return err
	}
	if n != PageSize {
		return io.ErrShortWrite
	}
	return nil
}

// Sync flushes the file to stable storage.
func (pf *File) Sync() error {
	return pf.f.Sync()
}

func errIO(msg string) error {
	return errors.New("pagefile: " + msg)
}

func closeQuiet(f *os.File) {
	if err := f.Close(); err != nil {
		slog.Warn("pagefile: close failed", "err", err)
	}
}
