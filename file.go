package retdec

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// FileUpload is a file sent to the service, such as a decompilation input.
// Set Path to upload a file from disk, or Reader (with Filename) to upload
// in-memory content. The name decides the decompilation mode when none is
// given explicitly.
type FileUpload struct {
	Path string

	// Reader is read to the end but never closed; the caller keeps
	// ownership of it.
	Reader   io.Reader
	Filename string

	// MimeType is sniffed from the content when empty.
	MimeType string

	// MaxBytes rejects files on disk larger than this many bytes when > 0.
	MaxBytes int64
}

func (f FileUpload) filename() string {
	switch {
	case f.Filename != "":
		return f.Filename
	case f.Path != "":
		return filepath.Base(f.Path)
	default:
		return "upload"
	}
}

// mimeType is the declared type, else the type registered for the file
// extension, else application/octet-stream.
func (f FileUpload) mimeType() string {
	if f.MimeType != "" {
		return f.MimeType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(f.filename())); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

func (f FileUpload) validate() error {
	if f.Reader == nil && f.Path == "" {
		return errors.New("file upload requires Path or Reader")
	}
	return nil
}

// open returns the content to upload. Reader takes precedence over Path.
func (f FileUpload) open() (io.ReadCloser, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if f.Reader != nil {
		return io.NopCloser(f.Reader), nil
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", f.Path, err)
	}
	if err := f.checkOpened(file); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// checkOpened inspects the opened handle rather than the path, so the checks
// apply to the file that is actually sent.
func (f FileUpload) checkOpened(file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file %s: %w", f.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("file upload requires a file, got directory: %s", f.Path)
	}
	if f.MaxBytes > 0 && info.Size() > f.MaxBytes {
		return fmt.Errorf("file %s exceeds max size of %d bytes", f.Path, f.MaxBytes)
	}
	return nil
}

var errFileClosed = errors.New("retdec: read from closed file")

// File is a file downloaded from the API. Its content is streamed from the
// open HTTP response: the response body is released once the content has
// been read to the end or Close is called, whichever happens first.
type File struct {
	name    string
	body    io.ReadCloser
	closed  bool
	drained bool
}

func newFile(name string, body io.ReadCloser) *File {
	return &File{name: name, body: body}
}

// Name returns the file name announced by the server. It is empty when the
// response carried no usable Content-Disposition header.
func (f *File) Name() string {
	return f.name
}

func (f *File) Read(p []byte) (int, error) {
	if f.drained {
		return 0, io.EOF
	}
	if f.closed {
		return 0, errFileClosed
	}
	n, err := f.body.Read(p)
	if errors.Is(err, io.EOF) {
		f.drained = true
		if cerr := f.Close(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

// ReadAll returns the remaining content and releases the stream.
func (f *File) ReadAll() ([]byte, error) {
	defer f.Close()
	return io.ReadAll(f)
}

// WriteTo copies the remaining content to w and releases the stream.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	if f.drained {
		return 0, nil
	}
	if f.closed {
		return 0, errFileClosed
	}
	defer f.Close()
	n, err := io.Copy(w, f.body)
	if err == nil {
		f.drained = true
	}
	return n, err
}

// Close releases the underlying stream. It is safe to call more than once.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.body.Close()
}
