package httpapi

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/deepdreamgames/pachka/internal/apperr"
	"github.com/deepdreamgames/pachka/internal/catalog"
	"github.com/deepdreamgames/pachka/internal/ojson"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	body := ojson.NewObject()
	body.Set("db_name", "registry")
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")
	from := parseNonNegativeInt(q.Get("from"), 0)
	size := parseNonNegativeInt(q.Get("size"), 20)

	results, total := s.Catalog().Search(text, from, size)

	objects := make([]any, 0, len(results))
	for _, res := range results {
		obj := ojson.NewObject()
		obj.Set("name", res.Name)
		obj.Set("version", res.Version)
		obj.Set("description", res.Description)
		kws := make([]any, 0, len(res.Keywords))
		for _, k := range res.Keywords {
			kws = append(kws, k)
		}
		obj.Set("keywords", kws)
		objects = append(objects, obj)
	}

	body := ojson.NewObject()
	body.Set("objects", objects)
	body.Set("total", int64(total))
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	pkgID := mustUnescapeSegment(chi.URLParam(r, "pkg"))
	pkg, ok := s.Catalog().Lookup(pkgID)
	if !ok {
		writeAppErr(w, apperr.New(apperr.CodeNotFound, "package not found"))
		return
	}

	latest, ok := pkg.LatestEntry()
	if !ok {
		writeAppErr(w, apperr.New(apperr.CodeNotFound, "package has no valid versions"))
		return
	}

	body := ojson.NewObject()
	distTags := ojson.NewObject()
	distTags.Set("latest", pkg.Latest)
	body.Set("dist-tags", distTags)
	body.Set("name", pkg.Name)
	if desc, ok := latest.Doc.GetString("description"); ok {
		body.Set("description", desc)
	}

	versions := ojson.NewObject()
	times := ojson.NewObject()
	for _, v := range pkg.Versions() {
		versions.Set(v.Version, withAbsoluteTarball(v.Doc, r, pkg.Name))
		times.Set(v.Version, v.ModTime.UTC().Format("2006-01-02T15:04:05Z"))
	}
	body.Set("versions", versions)
	body.Set("time", times)

	if readme, ok := latest.Doc.GetString("readme"); ok {
		body.Set("readme", readme)
	}

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	pkgID := mustUnescapeSegment(chi.URLParam(r, "pkg"))
	pkg, ok := s.Catalog().Lookup(pkgID)
	if !ok {
		writeAppErr(w, apperr.New(apperr.CodeNotFound, "package not found"))
		return
	}

	version := chi.URLParam(r, "version")
	var entry *catalog.VersionEntry
	if version == "" || strings.EqualFold(version, "latest") {
		entry, ok = pkg.LatestEntry()
	} else {
		entry, ok = pkg.GetVersion(mustUnescapeSegment(version))
	}
	if !ok {
		writeAppErr(w, apperr.New(apperr.CodeNotFound, "version not found"))
		return
	}

	writeJSON(w, http.StatusOK, withAbsoluteTarball(entry.Doc, r, pkg.Name))
}

// handleTarball serves the raw tarball bytes. The {pkg} segment only
// selects the route; the packages directory is flat, so the file is
// resolved by name alone.
func (s *Server) handleTarball(w http.ResponseWriter, r *http.Request) {
	fileName := mustUnescapeSegment(chi.URLParam(r, "file"))

	resolved := filepath.Join(s.PackagesDir, fileName)
	if !pathWithinDir(resolved, s.PackagesDir) {
		writeAppErr(w, apperr.New(apperr.CodeInternal, "resolved path escapes packages directory"))
		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		writeAppErr(w, apperr.Wrap(err, apperr.CodeInternal, "tarball no longer available"))
		return
	}

	f, err := os.Open(resolved)
	if err != nil {
		writeAppErr(w, apperr.Wrap(err, apperr.CodeInternal, "tarball no longer available"))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition", `attachment; filename=`+filepath.Base(resolved))
	w.Header().Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	n, _ := io.Copy(w, f)
	s.Metrics.AddTarballBytes(n)
}

// withAbsoluteTarball returns a shallow copy of doc with dist.tarball
// rewritten to an absolute URL derived from the incoming request; the
// stored document itself (base file name only) is never mutated so
// concurrent requests against the same catalog snapshot never race.
func withAbsoluteTarball(doc *ojson.Object, r *http.Request, pkgName string) *ojson.Object {
	out := ojson.NewObject()
	for _, k := range doc.Keys() {
		v, _ := doc.Get(k)
		if k == "dist" {
			if dist, ok := v.(*ojson.Object); ok {
				out.Set(k, rewriteDist(dist, r, pkgName))
				continue
			}
		}
		out.Set(k, v)
	}
	return out
}

func rewriteDist(dist *ojson.Object, r *http.Request, pkgName string) *ojson.Object {
	rewritten := ojson.NewObject()
	for _, k := range dist.Keys() {
		v, _ := dist.Get(k)
		if k == "tarball" {
			if baseName, ok := v.(string); ok {
				rewritten.Set(k, tarballURL(r, pkgName, baseName))
				continue
			}
		}
		rewritten.Set(k, v)
	}
	return rewritten
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	ojson.Write(w, v)
}

func parseNonNegativeInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// mustUnescapeSegment percent-decodes a single path segment once; an
// undecodable segment is passed through verbatim rather than rejected,
// since chi already split it out of a well-formed request path.
func mustUnescapeSegment(seg string) string {
	if decoded, err := url.PathUnescape(seg); err == nil {
		return decoded
	}
	return seg
}

// pathWithinDir reports whether resolved lies inside dir, comparing
// case-insensitively per the wire protocol's path-safety rule. Both sides
// are resolved to absolute paths first: a "."-relative packages directory
// otherwise cleans away to a bare file name that shares no path prefix with
// "." at all.
func pathWithinDir(resolved, dir string) bool {
	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	prefix := absDir + string(filepath.Separator)
	return strings.HasPrefix(strings.ToLower(absResolved)+string(filepath.Separator), strings.ToLower(prefix))
}
