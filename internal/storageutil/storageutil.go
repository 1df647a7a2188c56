package storageutil

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/pierrec/lz4/v4"
)

// ErrObjectNotFound indicates an object was not found.
var ErrObjectNotFound = errors.New("object not found")

// lz4FrameMagic is the little-endian magic number opening an lz4 frame.
var lz4FrameMagic = []byte{0x04, 0x22, 0x4d, 0x18}

// maxLineSize bounds a single folded line. Deep stacks with long
// symbol names routinely blow past bufio's 64k default.
const maxLineSize = 4 * 1024 * 1024

type ReadSizeCloser interface {
	io.Reader
	io.Closer
	Size() int64
}

// ObjectHandler provides common interface for multiple storage providers.
type ObjectHandler interface {
	// Put writes a file to the storage provider with name being the path.
	Put(ctx context.Context, name string) (io.WriteCloser, error)
	// Get reads a file from the storage provider with name being the path.
	// If a key was not found, it will return ErrObjectNotFound.
	Get(ctx context.Context, name string) (ReadSizeCloser, error)
}

// CompressedWrite lz4-compresses d as JSON and writes it to the storage provider.
func CompressedWrite(ctx context.Context, b ObjectHandler, objectName string, d interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ow, err := b.Put(ctx, objectName)
	if err != nil {
		return err
	}
	zw := lz4.NewWriter(ow)
	_ = zw.Apply(lz4.CompressionLevelOption(lz4.Level9))
	jw := gojson.NewEncoder(zw)
	err = jw.Encode(d)
	if err != nil {
		_ = zw.Close()
		_ = ow.Close()
		return err
	}
	err = zw.Close()
	if err != nil {
		_ = ow.Close()
		return err
	}
	return ow.Close()
}

// UnmarshalCompressed reads lz4-compressed JSON data from the storage provider and unmarshals it.
func UnmarshalCompressed(ctx context.Context, b ObjectHandler, objectName string, d interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	or, err := b.Get(ctx, objectName)
	if err != nil {
		return err
	}
	defer or.Close()
	zr := lz4.NewReader(or)
	err = gojson.NewDecoder(zr).Decode(d)
	if err != nil {
		return err
	}
	return nil
}

// ReadLines fetches a folded-format text object and splits it into
// lines. Objects beginning with the lz4 frame magic are decompressed
// transparently, so compressed and plain uploads are interchangeable.
func ReadLines(ctx context.Context, b ObjectHandler, objectName string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	or, err := b.Get(ctx, objectName)
	if err != nil {
		return nil, err
	}
	defer or.Close()
	return ScanLines(or)
}

// ScanLines reads r to the end, decompressing lz4 frames when the
// magic number is present, and returns the individual lines.
func ScanLines(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(lz4FrameMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}

	var src io.Reader = br
	if bytes.Equal(head, lz4FrameMagic) {
		src = lz4.NewReader(br)
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
