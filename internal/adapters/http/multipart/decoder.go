// Package multipart decodes multipart/form-data request bodies against a
// schema shape.
//
// Parts whose declared kind is binary are streamed into scratch files; every
// other declared part is read as text. Scratch files belong to the returned
// Form and are removed by Form.Close.
package multipart

import (
	"errors"
	"fmt"
	"io"
	mime "mime/multipart"
	"net/http"
	"os"
	"sync"

	"github.com/okian/userapi/internal/domain/model"
	"github.com/okian/userapi/internal/schema"
	"github.com/okian/userapi/pkg/metrics"
)

// DefaultMaxBytes bounds a request body when no limit is configured.
const DefaultMaxBytes int64 = 2 << 20

const scratchPattern = "upload-*"

// Option configures a Decoder.
type Option func(*Decoder)

// WithScratchDir sets the directory for scratch files. Empty means the
// system temporary directory.
func WithScratchDir(dir string) Option {
	return func(d *Decoder) {
		d.scratchDir = dir
	}
}

// WithMaxBytes bounds the whole request body. Non-positive values are ignored.
func WithMaxBytes(n int64) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxBytes = n
		}
	}
}

// WithRequireFileName rejects binary parts that carry no file name.
func WithRequireFileName(require bool) Option {
	return func(d *Decoder) {
		d.requireFileName = require
	}
}

// Decoder reads multipart bodies shaped like one schema.Shape. It is safe
// for concurrent use.
type Decoder struct {
	shape           schema.Shape
	scratchDir      string
	maxBytes        int64
	requireFileName bool
}

// NewDecoder returns a decoder for shape.
func NewDecoder(shape schema.Shape, opts ...Option) *Decoder {
	d := &Decoder{
		shape:    shape,
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Shape returns the shape the decoder enforces.
func (d *Decoder) Shape() schema.Shape {
	return d.shape
}

// Form is a decoded multipart body.
type Form struct {
	values map[string]string
	files  map[string]model.UploadedFile
	once   sync.Once
}

func newForm() *Form {
	return &Form{
		values: make(map[string]string),
		files:  make(map[string]model.UploadedFile),
	}
}

// Value returns the text part called name.
func (f *Form) Value(name string) string {
	return f.values[name]
}

// File returns the binary part called name.
func (f *Form) File(name string) (model.UploadedFile, bool) {
	file, ok := f.files[name]
	return file, ok
}

func (f *Form) has(name string) bool {
	if _, ok := f.values[name]; ok {
		return true
	}
	_, ok := f.files[name]
	return ok
}

// Close removes every scratch file. It is idempotent.
func (f *Form) Close() error {
	var errs []error
	f.once.Do(func() {
		for name, file := range f.files {
			errs = append(errs, removeScratch(file.Path))
			delete(f.files, name)
		}
	})
	return errors.Join(errs...)
}

// Decode reads the body of r. w receives the connection-close signal when
// the body exceeds the limit. On error no scratch file is left behind.
func (d *Decoder) Decode(w http.ResponseWriter, r *http.Request) (*Form, error) {
	body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, d.maxBytes), limit: d.maxBytes}
	r.Body = body

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMultipart, err)
	}

	form := newForm()
	if err := d.readParts(mr, body, form); err != nil {
		_ = form.Close()
		return nil, err
	}

	if err := schema.CheckFields(d.shape, form.has); err != nil {
		_ = form.Close()
		return nil, fmt.Errorf("%w: %w", ErrMissingPart, err)
	}
	return form, nil
}

func (d *Decoder) readParts(mr *mime.Reader, body *limitedBody, form *Form) error {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return body.classify(err)
		}

		field, declared := d.shape.Field(part.FormName())
		if !declared {
			_ = part.Close()
			continue
		}

		if field.Kind == schema.KindBinary {
			err = d.readFile(part, body, field, form)
		} else {
			err = readText(part, body, field, form)
		}
		_ = part.Close()
		if err != nil {
			return err
		}
	}
}

func (d *Decoder) readFile(part *mime.Part, body *limitedBody, field schema.Field, form *Form) error {
	name := part.FileName()
	if d.requireFileName && name == "" {
		return fmt.Errorf("%w: %s", ErrMissingFileName, field.Name)
	}

	tmp, err := os.CreateTemp(d.scratchDir, scratchPattern)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScratch, err)
	}
	metrics.AddUploadScratchFiles(1)

	size, copyErr := io.Copy(tmp, part)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = removeScratch(tmp.Name())
		if copyErr != nil {
			return body.classify(copyErr)
		}
		return fmt.Errorf("%w: %w", ErrScratch, closeErr)
	}

	// Last part wins; the replaced scratch file goes now.
	if prev, ok := form.files[field.Name]; ok {
		_ = removeScratch(prev.Path)
	}
	form.files[field.Name] = model.UploadedFile{
		FileName:    name,
		ContentType: part.Header.Get("Content-Type"),
		Size:        size,
		Path:        tmp.Name(),
	}
	return nil
}

func readText(part *mime.Part, body *limitedBody, field schema.Field, form *Form) error {
	b, err := io.ReadAll(part)
	if err != nil {
		return body.classify(err)
	}
	form.values[field.Name] = string(b)
	return nil
}

// removeScratch deletes a scratch file the form no longer owns. The gauge
// drops even when the removal fails.
func removeScratch(path string) error {
	metrics.AddUploadScratchFiles(-1)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrScratch, err)
	}
	return nil
}

// limitedBody remembers that the body limit was hit. Once it has been, the
// multipart reader may surface the failure as a malformed header or part
// rather than as *http.MaxBytesError.
type limitedBody struct {
	io.ReadCloser
	limit    int64
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if err != nil && errors.As(err, &tooLarge) {
		b.exceeded = true
	}
	return n, err
}

func (b *limitedBody) classify(err error) error {
	var tooLarge *http.MaxBytesError
	if b.exceeded || errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit %d bytes", ErrTooLarge, b.limit)
	}
	return fmt.Errorf("%w: %w", ErrMalformed, err)
}
