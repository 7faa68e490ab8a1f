package vectorindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"factorymind-backend/models"
	"factorymind-backend/storage"

	"github.com/google/uuid"
)

const (
	// ManifestFileName names the committed generation. Replacing it is the
	// commit point of every save.
	ManifestFileName = "index.manifest.json"

	generationPrefix = "index-"
	vectorSuffix     = ".vec"
	metadataSuffix   = ".meta.json"

	// Vector file header:
	//   0..7   magic "FMVEC001"
	//   8..15  dim (uint64)
	//   16..23 count (uint64)
	//   24..39 generation (uuid)
	headerSize = 40
)

var fileMagic = [8]byte{'F', 'M', 'V', 'E', 'C', '0', '0', '1'}

type manifest struct {
	Generation string `json:"generation"`
	Dimension  int    `json:"dimension"`
	Count      int    `json:"count"`
}

// metadata is the JSON sidecar stored next to the vector file
type metadata struct {
	Generation string         `json:"generation"`
	Dimension  int            `json:"dimension"`
	Count      int            `json:"count"`
	Chunks     []models.Chunk `json:"chunks"`
}

// fileStore persists the index as generation-named vector and metadata files.
// A save writes a new pair, then atomically swaps the manifest to point at it,
// so a crash at any step leaves the last committed pair loadable.
type fileStore struct {
	dir string
}

func (s *fileStore) manifestPath() string { return filepath.Join(s.dir, ManifestFileName) }

func (s *fileStore) vectorPath(gen string) string {
	return filepath.Join(s.dir, generationPrefix+gen+vectorSuffix)
}

func (s *fileStore) metaPath(gen string) string {
	return filepath.Join(s.dir, generationPrefix+gen+metadataSuffix)
}

func (s *fileStore) exists() bool {
	_, err := os.Stat(s.manifestPath())
	return err == nil
}

func (s *fileStore) save(entries []models.IndexedVector, dim int) error {
	gen := uuid.New()
	genID := gen.String()

	var buf bytes.Buffer
	buf.Grow(headerSize + len(entries)*dim*4)
	var header [headerSize]byte
	copy(header[:8], fileMagic[:])
	binary.LittleEndian.PutUint64(header[8:16], uint64(dim))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(entries)))
	copy(header[24:40], gen[:])
	buf.Write(header[:])

	var word [4]byte
	for _, e := range entries {
		for _, v := range e.Vector {
			binary.LittleEndian.PutUint32(word[:], math.Float32bits(v))
			buf.Write(word[:])
		}
	}

	meta := metadata{
		Generation: genID,
		Dimension:  dim,
		Count:      len(entries),
		Chunks:     make([]models.Chunk, len(entries)),
	}
	for i, e := range entries {
		meta.Chunks[i] = e.Chunk
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	manifestBytes, err := json.Marshal(manifest{Generation: genID, Dimension: dim, Count: len(entries)})
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := storage.WriteFileAtomic(s.vectorPath(genID), buf.Bytes()); err != nil {
		s.discard(genID)
		return fmt.Errorf("failed to write vector file: %w", err)
	}
	if err := storage.WriteFileAtomic(s.metaPath(genID), metaBytes); err != nil {
		s.discard(genID)
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := storage.WriteFileAtomic(s.manifestPath(), manifestBytes); err != nil {
		s.discard(genID)
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	s.prune(genID)
	return nil
}

func (s *fileStore) load() ([]models.IndexedVector, int, error) {
	manifestBytes, err := os.ReadFile(s.manifestPath())
	if err != nil {
		return nil, 0, err
	}
	var m manifest
	if err := json.Unmarshal(manifestBytes, &m); err != nil {
		return nil, 0, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if _, err := uuid.Parse(m.Generation); err != nil {
		return nil, 0, fmt.Errorf("invalid manifest generation %q", m.Generation)
	}

	raw, err := os.ReadFile(s.vectorPath(m.Generation))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read vector file: %w", err)
	}
	if len(raw) < headerSize {
		return nil, 0, fmt.Errorf("vector file too small for header: %d < %d", len(raw), headerSize)
	}
	var magic [8]byte
	copy(magic[:], raw[:8])
	if magic != fileMagic {
		return nil, 0, errors.New("invalid vector file header (magic mismatch)")
	}
	dim := int(binary.LittleEndian.Uint64(raw[8:16]))
	count := int(binary.LittleEndian.Uint64(raw[16:24]))
	gen, err := uuid.FromBytes(raw[24:40])
	if err != nil {
		return nil, 0, fmt.Errorf("invalid generation: %w", err)
	}
	if dim <= 0 && count > 0 {
		return nil, 0, fmt.Errorf("invalid vector dimension %d", dim)
	}
	if want := headerSize + count*dim*4; len(raw) != want {
		return nil, 0, fmt.Errorf("vector file size %d does not match header (want %d)", len(raw), want)
	}

	metaBytes, err := os.ReadFile(s.metaPath(m.Generation))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, 0, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if gen.String() != m.Generation || meta.Generation != m.Generation ||
		meta.Count != count || len(meta.Chunks) != count || meta.Dimension != dim || m.Count != count {
		return nil, 0, errors.New("vector file and metadata are out of sync")
	}

	entries := make([]models.IndexedVector, count)
	off := headerSize
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
			off += 4
		}
		entries[i] = models.IndexedVector{Vector: vec, Chunk: meta.Chunks[i]}
	}
	return entries, dim, nil
}

// remove drops the manifest first so a partial cleanup still reads as empty
func (s *fileStore) remove() error {
	if err := os.Remove(s.manifestPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.prune("")
	return nil
}

// discard removes the files of an uncommitted generation
func (s *fileStore) discard(gen string) {
	_ = os.Remove(s.vectorPath(gen))
	_ = os.Remove(s.metaPath(gen))
}

// prune removes every generation file except those of keep. Failures leave
// stale files that the next save retries.
func (s *fileStore) prune(keep string) {
	for _, p := range s.generationFiles() {
		name := filepath.Base(p)
		if keep != "" && strings.HasPrefix(name, generationPrefix+keep+".") {
			continue
		}
		_ = os.Remove(p)
	}
}

func (s *fileStore) generationFiles() []string {
	var out []string
	for _, suffix := range []string{vectorSuffix, metadataSuffix} {
		matches, err := filepath.Glob(filepath.Join(s.dir, generationPrefix+"*"+suffix))
		if err != nil {
			continue
		}
		out = append(out, matches...)
	}
	return out
}
