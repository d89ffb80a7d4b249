// Package snapshot persists spectral accumulator snapshots as artifact files
// and recombines them: codec, pattern-based writer, channel identity
// resolution and the merge engine.
package snapshot

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// Extension is the artifact file extension.
const Extension = ".npz"

// Codec serializes snapshots to artifact files.
type Codec interface {
	// Encode writes the snapshot to the writer.
	Encode(w io.Writer, snap *spectral.Snapshot) error

	// Decode reads a snapshot from the reader.
	Decode(r io.Reader) (*spectral.Snapshot, error)
}

// LZ4Codec implements Codec using gob encoding behind LZ4 stream compression.
type LZ4Codec struct{}

// NewLZ4Codec creates the default artifact codec.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{}
}

// Encode implements Codec.Encode.
func (c *LZ4Codec) Encode(w io.Writer, snap *spectral.Snapshot) error {
	zw := lz4.NewWriter(w)

	err := gob.NewEncoder(zw).Encode(snap)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 flush: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode.
func (c *LZ4Codec) Decode(r io.Reader) (*spectral.Snapshot, error) {
	zr := lz4.NewReader(r)

	var snap spectral.Snapshot

	err := gob.NewDecoder(zr).Decode(&snap)
	if err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}

	return &snap, nil
}

// Save writes one snapshot to an artifact file.
func Save(path string, codec Codec, snap *spectral.Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer file.Close()

	err = codec.Encode(file, snap)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", path, err)
	}

	return nil
}

// Load reads one snapshot from an artifact file.
func Load(path string, codec Codec) (*spectral.Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	snap, err := codec.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}

	return snap, nil
}
