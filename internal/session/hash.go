package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// contentHash returns a stable hex-encoded SHA-256 digest of content.
func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashArtifacts computes the output-hash used for convergence detection:
// the hash of the concatenation of the named files' contents, in a stable
// (sorted) order so the result is independent of map/slice iteration order.
func HashArtifacts(files map[string][]byte) string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(files[name])
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
