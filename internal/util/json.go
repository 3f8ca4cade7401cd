package util

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type JSONDecoder interface {
	Decode(v any) error
	// More returns true if there are more items in the stream
	More() bool
	// Count returns the number of records read
	Count() int
	// Close a stream
	Close() error
}

type ndjsonReader struct {
	in    io.Closer
	gr    *gzip.Reader
	dec   *json.Decoder
	count int
}

var _ JSONDecoder = (*ndjsonReader)(nil)

func (n *ndjsonReader) Count() int {
	return n.count
}

func (n *ndjsonReader) Close() error {
	if n.gr != nil {
		n.gr.Close()
		n.gr = nil
	}
	if n.in != nil {
		n.in.Close()
		n.in = nil
	}
	return nil
}

func (n *ndjsonReader) More() bool {
	return n.dec.More()
}

func (n *ndjsonReader) Decode(v any) error {
	if err := n.dec.Decode(v); err != nil {
		return fmt.Errorf("line %d: %w", n.count+1, err)
	}
	n.count++
	return nil
}

// NewNDJSONDecoder returns a decoder which can be used to read JSON new line delimited files, gzipped when the name ends in .gz
func NewNDJSONDecoder(fn string) (JSONDecoder, error) {
	in, err := os.Open(fn)
	if err != nil {
		return nil, fmt.Errorf("error opening: %s. %w", fn, err)
	}
	var i io.Reader = in
	var gr *gzip.Reader
	if filepath.Ext(fn) == ".gz" {
		var err error
		gr, err = gzip.NewReader(in)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("gzip: error opening: %s. %w", fn, err)
		}
		i = gr
	}
	dec := json.NewDecoder(i)
	dec.UseNumber()
	return &ndjsonReader{
		in:  in,
		gr:  gr,
		dec: dec,
	}, nil
}

type JSONEncoder interface {
	Encode(v any) error
	// Count returns the number of records written
	Count() int
	// Close flushes and closes the stream
	Close() error
}

type ndjsonWriter struct {
	out   *os.File
	gw    *gzip.Writer
	enc   *json.Encoder
	count int
}

var _ JSONEncoder = (*ndjsonWriter)(nil)

func (n *ndjsonWriter) Count() int {
	return n.count
}

func (n *ndjsonWriter) Encode(v any) error {
	if err := n.enc.Encode(v); err != nil {
		return err
	}
	n.count++
	return nil
}

func (n *ndjsonWriter) Close() error {
	if n.gw != nil {
		if err := n.gw.Close(); err != nil {
			n.out.Close()
			return fmt.Errorf("gzip: %w", err)
		}
		n.gw = nil
	}
	if n.out != nil {
		err := n.out.Close()
		n.out = nil
		return err
	}
	return nil
}

// NewNDJSONEncoder returns an encoder which writes JSON new line delimited files, gzipped when the name ends in .gz
func NewNDJSONEncoder(fn string) (JSONEncoder, error) {
	out, err := os.Create(fn)
	if err != nil {
		return nil, fmt.Errorf("error creating: %s. %w", fn, err)
	}
	var w io.Writer = out
	var gw *gzip.Writer
	if filepath.Ext(fn) == ".gz" {
		gw = gzip.NewWriter(out)
		w = gw
	}
	return &ndjsonWriter{out: out, gw: gw, enc: json.NewEncoder(w)}, nil
}
