package vectorindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
)

// File names inside the index directory.
const (
	IndexFile    = "index.bin"
	MetadataFile = "metadata.json"
)

var magic = [4]byte{'R', 'R', 'V', 'I'}

const formatVersion uint32 = 1

// metadataFile is the on-disk metadata layout.
type metadataFile struct {
	Order  []string          `json:"order"`
	Chunks map[string]record `json:"chunks"`
}

// persist rewrites both files, vectors first. Rows are only ever appended, so
// a failed metadata write leaves extra trailing vectors that load drops.
// Caller holds the write lock.
func (ix *Index) persist() error {
	if err := os.MkdirAll(ix.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	meta, err := json.MarshalIndent(metadataFile{Order: ix.order, Chunks: ix.chunks}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(ix.dir, IndexFile), ix.encodeVectors()); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(ix.dir, MetadataFile), meta); err != nil {
		return err
	}
	return nil
}

func (ix *Index) encodeVectors() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 16+len(ix.vectors)*4))
	buf.Write(magic[:])
	header := [3]uint32{formatVersion, uint32(ix.dim), uint32(len(ix.order))}
	_ = binary.Write(buf, binary.LittleEndian, header)

	row := make([]byte, 4)
	for _, f := range ix.vectors {
		binary.LittleEndian.PutUint32(row, math.Float32bits(f))
		buf.Write(row)
	}
	return buf.Bytes()
}

// load reads both files if present. Missing files mean an empty index.
// Legacy flat metadata without a vector file (it sat next to a FAISS index)
// is kept as unembedded rows for the caller to re-embed.
func (ix *Index) load() error {
	metaPath := filepath.Join(ix.dir, MetadataFile)
	vecPath := filepath.Join(ix.dir, IndexFile)

	metaData, metaErr := os.ReadFile(filepath.Clean(metaPath))
	vecData, vecErr := os.ReadFile(filepath.Clean(vecPath))
	switch {
	case errors.Is(metaErr, fs.ErrNotExist):
		// Vectors without metadata come from a first append that never finished.
		return nil
	case metaErr != nil:
		return fmt.Errorf("read metadata: %w", metaErr)
	}

	order, chunks, legacy, err := decodeMetadata(metaData)
	if err != nil {
		return err
	}
	if vecErr != nil {
		if legacy && errors.Is(vecErr, fs.ErrNotExist) {
			ix.unembedded = make([]chunk.Chunk, 0, len(order))
			for _, id := range order {
				rec := chunks[id]
				ix.unembedded = append(ix.unembedded, chunk.Reconstruct(id, rec.DocID, rec.Text, rec.Metadata))
			}
			return nil
		}
		return fmt.Errorf("read vectors: %w", vecErr)
	}

	dim, count, vectors, err := decodeVectors(vecData)
	if err != nil {
		return err
	}
	for _, id := range order {
		if _, ok := chunks[id]; !ok {
			return fmt.Errorf("chunk %q listed in order but missing from metadata", id)
		}
	}

	// An interrupted append leaves the two files at different lengths; keep
	// the common prefix.
	if n := min(count, len(order)); n != count || n != len(order) {
		for _, id := range order[n:] {
			delete(chunks, id)
		}
		order = order[:n]
		vectors = vectors[:n*dim]
		if n == 0 {
			dim = 0
		}
	}

	ix.dim, ix.vectors, ix.order, ix.chunks = dim, vectors, order, chunks
	return nil
}

func decodeVectors(data []byte) (int, int, []float32, error) {
	r := bytes.NewReader(data)
	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil || m != magic {
		return 0, 0, nil, fmt.Errorf("index file: bad magic")
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return 0, 0, nil, fmt.Errorf("index file header: %w", err)
	}
	if header[0] != formatVersion {
		return 0, 0, nil, fmt.Errorf("index file: unsupported version %d", header[0])
	}
	dim, count := int(header[1]), int(header[2])
	if r.Len() != dim*count*4 {
		return 0, 0, nil, fmt.Errorf("index file: expected %d vector bytes, got %d", dim*count*4, r.Len())
	}

	vectors := make([]float32, dim*count)
	rest := data[len(data)-r.Len():]
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(rest[i*4:]))
	}
	return dim, count, vectors, nil
}

// decodeMetadata accepts the ordered layout and the legacy flat {id: record}
// layout, whose keys are taken in file order. legacy reports the latter.
func decodeMetadata(data []byte) (order []string, chunks map[string]record, legacy bool, err error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, false, fmt.Errorf("parse metadata: %w", err)
	}
	if _, ok := probe["order"]; ok {
		var mf metadataFile
		if err := json.Unmarshal(data, &mf); err != nil {
			return nil, nil, false, fmt.Errorf("parse metadata: %w", err)
		}
		if mf.Chunks == nil {
			mf.Chunks = make(map[string]record)
		}
		return mf.Order, mf.Chunks, false, nil
	}
	order, chunks, err = decodeLegacyMetadata(data)
	return order, chunks, true, err
}

func decodeLegacyMetadata(data []byte) ([]string, map[string]record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("parse legacy metadata: %w", err)
	}

	var order []string
	chunks := make(map[string]record)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("parse legacy metadata key: %w", err)
		}
		id, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("parse legacy metadata: unexpected token %v", tok)
		}
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return nil, nil, fmt.Errorf("parse legacy metadata %q: %w", id, err)
		}
		order = append(order, id)
		chunks[id] = rec
	}
	return order, chunks, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
