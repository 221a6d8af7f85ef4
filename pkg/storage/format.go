package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// Magic bytes to identify our file format
	MagicBytes = "GOFS"
	// Current version
	FormatVersion = 1
	// File extension for database snapshots
	FileExtension = ".db"

	// FlagCompressed marks an lz4 compressed payload
	FlagCompressed uint8 = 1 << 0
)

// FileHeader represents the header of a snapshot
type FileHeader struct {
	Magic    [4]byte // "GOFS"
	Version  uint8   // Format version
	Flags    uint8   // FlagCompressed
	Reserved [2]byte // Reserved for future use
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8) error {
	header := FileHeader{
		Magic:    [4]byte{'G', 'O', 'F', 'S'},
		Version:  FormatVersion,
		Flags:    flags,
		Reserved: [2]byte{0, 0},
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// StorageData is the persisted form of one database namespace
type StorageData struct {
	Name        string                    `msgpack:"name"`
	Collections map[string]CollectionData `msgpack:"collections"`
	Metadata    map[string]interface{}    `msgpack:"metadata,omitempty"`
}

// CollectionData is the persisted form of one collection
type CollectionData struct {
	Seq       uint64           `msgpack:"seq"`
	Documents []StoredDocument `msgpack:"documents"`
	Indexes   []string         `msgpack:"indexes,omitempty"`
}

// StoredDocument keeps a document with its insertion sequence
type StoredDocument struct {
	Seq uint64                 `msgpack:"seq"`
	Doc map[string]interface{} `msgpack:"doc"`
}

// NewStorageData creates a new empty storage data structure
func NewStorageData(name string) *StorageData {
	return &StorageData{
		Name:        name,
		Collections: make(map[string]CollectionData),
		Metadata:    make(map[string]interface{}),
	}
}

// EncodeSnapshot writes the header followed by the msgpack payload, lz4 compressed
// when compress is set.
func EncodeSnapshot(w io.Writer, data *StorageData, compress bool) error {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	var flags uint8
	if compress {
		flags |= FlagCompressed
	}
	if err := WriteHeader(w, flags); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if !compress {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("failed to write data: %w", err)
		}
		return nil
	}

	zw := lz4.NewWriter(w)
	if _, err := zw.Write(payload); err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush compressed data: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot
func DecodeSnapshot(r io.Reader) (*StorageData, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid file header: %w", err)
	}

	if header.Flags&FlagCompressed != 0 {
		r = lz4.NewReader(r)
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	var data StorageData
	if err := msgpack.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	if data.Collections == nil {
		data.Collections = make(map[string]CollectionData)
	}
	return &data, nil
}

// MarshalSnapshot encodes a snapshot into memory
func MarshalSnapshot(data *StorageData, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, data, compress); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot decodes a snapshot held in memory
func UnmarshalSnapshot(b []byte) (*StorageData, error) {
	return DecodeSnapshot(bytes.NewReader(b))
}
