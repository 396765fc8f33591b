package vectorindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"math"
	"math/bits"
	"os"
	"path/filepath"

	"document-qa/internal/models"
)

// On-disk layout, little endian:
//
//	magic   [8]byte  "DQAFLAT\x00"
//	version uint32
//	dim     uint32
//	count   uint64
//	data    count*dim float32
//	crc     uint32   IEEE CRC-32 of everything above
const (
	formatVersion = 1
	headerSize    = 8 + 4 + 4 + 8
	trailerSize   = 4
)

var magic = [8]byte{'D', 'Q', 'A', 'F', 'L', 'A', 'T', 0}

// Marshal encodes the index in its binary file format.
func (idx *Index) Marshal() []byte {
	buf := make([]byte, headerSize, headerSize+len(idx.vectors)*idx.dim*4+trailerSize)
	copy(buf[0:8], magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], formatVersion)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(idx.dim))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(idx.vectors)))
	for _, v := range idx.vectors {
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
}

// WriteTo writes the index to w in its file format.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(idx.Marshal())
	return int64(n), err
}

// Unmarshal decodes an index produced by Marshal. Any structural problem is reported
// as models.ErrCorruptIndex.
func Unmarshal(data []byte) (*Index, error) {
	if len(data) < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", models.ErrCorruptIndex, len(data))
	}
	if !bytes.Equal(data[0:8], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic", models.ErrCorruptIndex)
	}
	if v := binary.LittleEndian.Uint32(data[8:12]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", models.ErrCorruptIndex, v)
	}
	body, trailer := data[:len(data)-trailerSize], data[len(data)-trailerSize:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", models.ErrCorruptIndex)
	}

	dim := int(binary.LittleEndian.Uint32(data[12:16]))
	count := binary.LittleEndian.Uint64(data[16:24])
	payload := body[headerSize:]
	hi, values := bits.Mul64(count, uint64(dim))
	if (dim == 0) != (count == 0) || hi != 0 || values > uint64(len(payload))/4 || values*4 != uint64(len(payload)) {
		return nil, fmt.Errorf("%w: payload of %d bytes does not hold %d vectors of dimension %d", models.ErrCorruptIndex, len(payload), count, dim)
	}

	idx := &Index{dim: dim, vectors: make([][]float32, count)}
	for i := range idx.vectors {
		v := make([]float32, dim)
		for j := range v {
			off := (i*dim + j) * 4
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off : off+4]))
		}
		idx.vectors[i] = v
	}
	return idx, nil
}

// Save writes the index to path atomically: the bytes go to a temporary file in the
// same directory which is then renamed over path.
func Save(idx *Index, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := idx.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename index: %w", err)
	}
	return nil
}

// Load reads an index file. A missing file is models.ErrNotFound.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: index %s", models.ErrNotFound, filepath.Base(path))
		}
		return nil, err
	}
	return Unmarshal(data)
}
