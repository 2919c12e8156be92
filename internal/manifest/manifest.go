// Package manifest computes and diffs content-addressed file
// manifests for incremental backups (spec §4.8). Hashing uses
// github.com/zeebo/blake3, grounded in antgroup-hugescm and
// buildbarn-bb-storage, both of which use it for exactly this kind of
// content addressing.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"sort"

	"github.com/zeebo/blake3"
)

// FileRecord is one entry in a Manifest: a logical path mapped to its
// size, modification time (seconds+nanoseconds, spec §3) and content
// hash. Directories and symlinks are recorded without a hash but with
// their target/path (spec §4.8: "directories and symlinks are
// recorded without hashes but with their target/path").
type FileRecord struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	ModSec    int64  `json:"mod_sec"`
	ModNsec   int64  `json:"mod_nsec"`
	Hash      string `json:"hash,omitempty"` // hex blake3, empty for dirs/symlinks
	Kind      string `json:"kind"`
	LinkTarget string `json:"link_target,omitempty"`
}

// Manifest is the sorted, deterministic description of a tree at a
// point in time (spec §3: "ordered deterministically by path for
// stable diffs").
type Manifest struct {
	Files []FileRecord `json:"files"`
}

// HashFile computes the blake3 digest of r's contents, hex-encoded.
func HashFile(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sort orders Files by Path, establishing the canonical serialisation
// order the spec requires for stable diffs.
func (m *Manifest) Sort() {
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
}

// Lookup returns the record for path, if present.
func (m *Manifest) Lookup(path string) (FileRecord, bool) {
	for _, f := range m.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileRecord{}, false
}

// index builds a path->record map for efficient diffing.
func (m *Manifest) index() map[string]FileRecord {
	idx := make(map[string]FileRecord, len(m.Files))
	for _, f := range m.Files {
		idx[f.Path] = f
	}
	return idx
}

// Diff implements spec §4.8's four-way classification between a prior
// manifest (the receiver of Manifest.Diff) and a current one.
type Diff struct {
	Added     []string
	Modified  []string
	Deleted   []string
	Unchanged []string
}

func (prior *Manifest) Diff(current *Manifest) Diff {
	priorIdx := prior.index()
	currentIdx := current.index()

	var d Diff
	for path, cur := range currentIdx {
		if prev, ok := priorIdx[path]; !ok {
			d.Added = append(d.Added, path)
		} else if prev.Hash != cur.Hash || prev.Size != cur.Size {
			d.Modified = append(d.Modified, path)
		} else {
			d.Unchanged = append(d.Unchanged, path)
		}
	}
	for path := range priorIdx {
		if _, ok := currentIdx[path]; !ok {
			d.Deleted = append(d.Deleted, path)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Modified)
	sort.Strings(d.Deleted)
	sort.Strings(d.Unchanged)
	return d
}

// Marshal serialises m to its canonical JSON form plus a blake3
// trailer hash of that JSON, per spec §6: "containing the sorted
// entry table and its own blake3 hash as trailer."
func Marshal(m *Manifest) ([]byte, error) {
	m.Sort()
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	h := blake3.New()
	h.Write(body)
	trailer := hex.EncodeToString(h.Sum(nil))

	envelope := struct {
		Manifest json.RawMessage `json:"manifest"`
		Trailer  string          `json:"blake3"`
	}{Manifest: body, Trailer: trailer}

	return json.Marshal(envelope)
}

// Unmarshal parses data produced by Marshal, verifying the trailer
// hash matches the embedded manifest body.
func Unmarshal(data []byte) (*Manifest, error) {
	var envelope struct {
		Manifest json.RawMessage `json:"manifest"`
		Trailer  string          `json:"blake3"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	h := blake3.New()
	h.Write(envelope.Manifest)
	if hex.EncodeToString(h.Sum(nil)) != envelope.Trailer {
		return nil, ErrTrailerMismatch
	}

	var m Manifest
	if err := json.Unmarshal(envelope.Manifest, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
