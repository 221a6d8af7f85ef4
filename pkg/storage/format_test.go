package storage

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeader_WriteAndRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, FlagCompressed))

	// 4 bytes magic + 1 byte version + 1 byte flags + 2 bytes reserved
	assert.Len(t, buf.Bytes(), 8)

	header, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, MagicBytes, string(header.Magic[:]))
	assert.EqualValues(t, FormatVersion, header.Version)
	assert.Equal(t, FlagCompressed, header.Flags)
}

func TestFileHeader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		header  FileHeader
		wantErr string
	}{
		{
			name:    "invalid magic",
			header:  FileHeader{Magic: [4]byte{'I', 'N', 'V', 'L'}, Version: FormatVersion},
			wantErr: "invalid file format",
		},
		{
			name:    "invalid version",
			header:  FileHeader{Magic: [4]byte{'G', 'O', 'F', 'S'}, Version: 99},
			wantErr: "unsupported file version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, tt.header))

			_, err := ReadHeader(&buf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFileHeader_Truncated(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte("GO")))
	assert.Error(t, err)
}

func sampleData() *StorageData {
	data := NewStorageData("content")
	data.Collections["users"] = CollectionData{
		Seq: 3,
		Documents: []StoredDocument{
			{Seq: 1, Doc: map[string]interface{}{"_id": "a", "name": "Ernie", "age": 32}},
			{Seq: 3, Doc: map[string]interface{}{"_id": "b", "name": "Oscar", "tags": []interface{}{"grouch"}}},
		},
		Indexes: []string{"name"},
	}
	return data
}

func TestSnapshot_RoundTrip(t *testing.T) {
	for _, compress := range []bool{true, false} {
		t.Run(map[bool]string{true: "compressed", false: "plain"}[compress], func(t *testing.T) {
			encoded, err := MarshalSnapshot(sampleData(), compress)
			require.NoError(t, err)

			decoded, err := UnmarshalSnapshot(encoded)
			require.NoError(t, err)

			assert.Equal(t, "content", decoded.Name)
			users := decoded.Collections["users"]
			assert.Equal(t, uint64(3), users.Seq)
			assert.Equal(t, []string{"name"}, users.Indexes)
			require.Len(t, users.Documents, 2)
			assert.Equal(t, "Ernie", users.Documents[0].Doc["name"])
			assert.EqualValues(t, 32, users.Documents[0].Doc["age"])
			assert.Equal(t, []interface{}{"grouch"}, users.Documents[1].Doc["tags"])
		})
	}
}

func TestSnapshot_Corrupt(t *testing.T) {
	encoded, err := MarshalSnapshot(sampleData(), false)
	require.NoError(t, err)

	_, err = UnmarshalSnapshot(encoded[:len(encoded)/2])
	assert.Error(t, err)

	_, err = UnmarshalSnapshot([]byte("not a snapshot at all"))
	assert.Error(t, err)
}
