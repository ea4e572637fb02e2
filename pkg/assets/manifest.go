package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ManifestName is the filename the build step writes into the build dir.
const ManifestName = "manifest.json"

// Manifest maps logical asset names to their fingerprinted filenames.
type Manifest struct {
	Entries map[string]string `json:"entries"`
}

// IsFingerprinted checks if a file path appears to be fingerprinted.
// Fingerprinted files have a hash in their name, e.g. "app.a1b2c3d4.css".
func IsFingerprinted(filePath string) bool {
	base := path.Base(filePath)

	// Split by dots: ["app", "a1b2c3d4", "css"]
	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return false
	}

	// The part before the extension must look like a hash:
	// 8+ hex characters.
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// Fingerprint returns the fingerprinted name for a file's content:
// "app.js" with content hash a1b2c3d4 becomes "app.a1b2c3d4.js".
func Fingerprint(name string, content []byte) string {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])[:8]

	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "." + hash + ext
}

// BuildManifest walks a directory of built assets, writes fingerprinted
// copies alongside the originals, and returns the manifest. Already
// fingerprinted files are indexed as-is.
func BuildManifest(dir string) (*Manifest, error) {
	m := &Manifest{Entries: make(map[string]string)}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == ManifestName {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if IsFingerprinted(rel) {
			m.Entries[rel] = rel
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading asset %s: %w", rel, err)
		}

		printed := Fingerprint(rel, content)
		target := filepath.Join(dir, filepath.FromSlash(printed))
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return fmt.Errorf("writing fingerprinted asset %s: %w", printed, err)
		}

		m.Entries[rel] = printed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Write persists the manifest into the build dir.
func (m *Manifest) Write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644)
}

// LoadManifest reads a manifest from the build dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestName, err)
	}
	if m.Entries == nil {
		m.Entries = make(map[string]string)
	}
	return &m, nil
}

// Resolve returns the fingerprinted name for a logical asset, or the input
// unchanged when it is not in the manifest.
func (m *Manifest) Resolve(name string) string {
	if printed, ok := m.Entries[name]; ok {
		return printed
	}
	return name
}

// Names returns the logical asset names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Entries))
	for name := range m.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
