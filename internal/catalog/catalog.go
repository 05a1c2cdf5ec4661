// Package catalog holds the in-memory, read-only registry snapshot: package
// id to package entry, version to version document. A Catalog is built once
// per scan by a Builder and then never mutated; concurrent HTTP handlers
// only ever read a published snapshot.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/deepdreamgames/pachka/internal/ojson"
	"github.com/deepdreamgames/pachka/internal/semver"
)

// VersionEntry is one version document plus the bookkeeping the catalog
// needs but that isn't part of the wire-format document itself.
type VersionEntry struct {
	Version string // original-case version string, as written in package.json
	Doc     *ojson.Object
	ModTime time.Time
}

// PackageEntry is one distinct package id and all of its known versions.
type PackageEntry struct {
	Name     string
	Latest   string
	versions map[string]*VersionEntry // keyed by strings.ToLower(version)
	order    []string                 // lower-cased version keys, insertion order
}

func newPackageEntry(name string) *PackageEntry {
	return &PackageEntry{Name: name, versions: make(map[string]*VersionEntry)}
}

// addVersion inserts version, rejecting a case-insensitive duplicate.
func (p *PackageEntry) addVersion(version string, doc *ojson.Object, modTime time.Time) error {
	key := strings.ToLower(version)
	if _, exists := p.versions[key]; exists {
		return fmt.Errorf("catalog: duplicate version %q for package %q", version, p.Name)
	}
	p.versions[key] = &VersionEntry{Version: version, Doc: doc, ModTime: modTime}
	p.order = append(p.order, key)
	return nil
}

// GetVersion looks up version case-insensitively.
func (p *PackageEntry) GetVersion(version string) (*VersionEntry, bool) {
	v, ok := p.versions[strings.ToLower(version)]
	return v, ok
}

// LatestEntry returns the version entry Latest refers to.
func (p *PackageEntry) LatestEntry() (*VersionEntry, bool) {
	return p.GetVersion(p.Latest)
}

// Versions returns every version entry in the order they were ingested.
func (p *PackageEntry) Versions() []*VersionEntry {
	out := make([]*VersionEntry, 0, len(p.order))
	for _, k := range p.order {
		out = append(out, p.versions[k])
	}
	return out
}

// Len reports the number of versions this package currently has.
func (p *PackageEntry) Len() int {
	return len(p.versions)
}

// selectLatest picks the version with the highest SemVer precedence.
// Invalid versions must already have been dropped by the Builder before
// this runs, so every candidate here parses.
func (p *PackageEntry) selectLatest() {
	var best string
	var bestVer semver.Version
	first := true
	for _, k := range p.order {
		entry := p.versions[k]
		v, ok := semver.TryParse(entry.Version)
		if !ok {
			continue
		}
		if first || semver.Compare(v, bestVer) > 0 {
			best = entry.Version
			bestVer = v
			first = false
		}
	}
	p.Latest = best
}

// Catalog is a complete, immutable registry snapshot.
type Catalog struct {
	packages map[string]*PackageEntry // keyed by strings.ToLower(name)
	names    []string                 // lower-cased names, sorted, for stable search order
}

// Lookup finds a package by id, case-insensitively.
func (c *Catalog) Lookup(name string) (*PackageEntry, bool) {
	p, ok := c.packages[strings.ToLower(name)]
	return p, ok
}

// Len reports the number of packages in the snapshot.
func (c *Catalog) Len() int {
	return len(c.packages)
}

// Names returns every package id (lower-cased, sorted) in the snapshot, for
// callers that want to walk the whole catalog rather than search it.
func (c *Catalog) Names() []string {
	return c.names
}

// SearchResult is the stable projection search results are built from.
type SearchResult struct {
	Name        string
	Version     string
	Description string
	Keywords    []string
}

// Search performs a case-insensitive substring match of text against every
// package id, then returns the "ring buffer over the first from+size
// matches" window the wire protocol specifies: among the first (from+size)
// matches in sorted-name order, the last size of them.
func (c *Catalog) Search(text string, from, size int) (results []SearchResult, total int) {
	if from < 0 {
		from = 0
	}
	if size < 0 {
		size = 0
	}
	if size > 250 {
		size = 250
	}

	needle := strings.ToLower(text)
	var matches []SearchResult
	for _, key := range c.names {
		if !strings.Contains(key, needle) {
			continue
		}
		pkg := c.packages[key]
		entry, ok := pkg.LatestEntry()
		if !ok {
			continue
		}
		matches = append(matches, projectSearchResult(pkg.Name, entry.Doc))
	}

	total = len(matches)
	if size == 0 {
		return []SearchResult{}, total
	}

	limit := from + size
	if limit > total {
		limit = total
	}
	start := limit - size
	if start < 0 {
		start = 0
	}
	return matches[start:limit], total
}

func projectSearchResult(name string, doc *ojson.Object) SearchResult {
	r := SearchResult{Name: name}
	if v, ok := doc.GetString("version"); ok {
		r.Version = v
	}
	if v, ok := doc.GetString("description"); ok {
		r.Description = v
	}
	if kwRaw, ok := doc.Get("keywords"); ok {
		if arr, ok := kwRaw.([]any); ok {
			for _, k := range arr {
				if s, ok := k.(string); ok {
					r.Keywords = append(r.Keywords, s)
				}
			}
		}
	}
	return r
}

// Builder accumulates version documents produced by the ingester over the
// course of one scan, then finalizes them into an immutable Catalog. The
// zero value is not usable; construct with NewBuilder.
type Builder struct {
	packages map[string]*PackageEntry // keyed by strings.ToLower(name)
	order    []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{packages: make(map[string]*PackageEntry)}
}

// Add inserts one ingested version document. It is not safe for concurrent
// use; callers running a bounded worker pool over candidate files share one
// Builder and must serialize their calls to Add themselves.
//
// Add rejects a document whose version collides (case-insensitively) with
// one already recorded for the same package id; the caller is expected to
// log and skip on error, per the ingestion-errors-are-non-fatal rule.
func (b *Builder) Add(name, version string, doc *ojson.Object, modTime time.Time) error {
	key := strings.ToLower(name)
	pkg, ok := b.packages[key]
	if !ok {
		pkg = newPackageEntry(name)
		b.packages[key] = pkg
		b.order = append(b.order, key)
	}
	return pkg.addVersion(version, doc, modTime)
}

// Build finalizes the accumulated packages into a Catalog: versions that
// fail SemVer validation are dropped, packages left with zero versions are
// dropped, and each surviving package's Latest is selected.
func (b *Builder) Build() *Catalog {
	c := &Catalog{packages: make(map[string]*PackageEntry)}
	for _, key := range b.order {
		pkg := b.packages[key]
		pruneInvalidVersions(pkg)
		if pkg.Len() == 0 {
			continue
		}
		pkg.selectLatest()
		c.packages[key] = pkg
		c.names = append(c.names, key)
	}
	sort.Strings(c.names)
	return c
}

func pruneInvalidVersions(pkg *PackageEntry) {
	var kept []string
	for _, k := range pkg.order {
		if _, ok := semver.TryParse(pkg.versions[k].Version); ok {
			kept = append(kept, k)
			continue
		}
		delete(pkg.versions, k)
	}
	pkg.order = kept
}
