// Package ingest turns one candidate tarball file into a version document:
// digest the raw bytes, stream-decompress and walk the tar entries inside,
// and assemble the package.json contents plus the registry's synthesized
// fields into an ordered document.
package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/deepdreamgames/pachka/internal/apperr"
	"github.com/deepdreamgames/pachka/internal/ojson"
	"github.com/deepdreamgames/pachka/internal/tarstream"
)

const (
	entryPackageJSON = "package/package.json"
	entryReadme      = "package/readme.md" // compared lower-cased
)

// Result is one successfully ingested tarball: its version document plus
// the bookkeeping the catalog needs to place it.
type Result struct {
	Name    string
	Version string
	Doc     *ojson.Object
	ModTime time.Time
	// FileName is the tarball's base name on disk, matching what dist.tarball
	// carries before the HTTP layer rewrites it to an absolute URL.
	FileName string
}

// File reads path, computes the SHA-1 of its raw compressed bytes, then
// decompresses and walks its tar entries for package/package.json and
// package/README.md. It never returns a partially-usable Result: any
// failure comes back as an *apperr.Error tagged CodeBadRequest.
func File(path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBadRequest, "stat tarball")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBadRequest, "open tarball")
	}
	defer f.Close()

	shasum, err := digest(f)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBadRequest, "digest tarball")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBadRequest, "rewind tarball")
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeBadRequest, "open gzip stream")
	}
	defer gz.Close()

	packageJSON, readme, err := walkEntries(gz)
	if err != nil {
		return nil, err
	}
	if packageJSON == nil {
		return nil, apperr.New(apperr.CodeBadRequest, "tarball missing package/package.json")
	}

	name, _ := packageJSON.GetString("name")
	version, _ := packageJSON.GetString("version")
	if name == "" || version == "" {
		return nil, apperr.New(apperr.CodeBadRequest, "package.json missing name or version")
	}

	fileName := filepath.Base(path)
	doc := assembleDocument(packageJSON, name, version, shasum, fileName, readme)

	return &Result{
		Name:     name,
		Version:  version,
		Doc:      doc,
		ModTime:  info.ModTime().UTC(),
		FileName: fileName,
	}, nil
}

func digest(r io.Reader) (string, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// walkEntries drains the tar stream, returning the parsed package.json (nil
// if never found) and the README text (empty if never found). Non-target
// entries are skipped by simply not reading their payload before the next
// tarstream.Reader.Next call, which drains it.
func walkEntries(r io.Reader) (*ojson.Object, string, error) {
	tr := tarstream.NewReader(r)
	var packageJSON *ojson.Object
	var readme string

	for {
		hdr, payload, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", apperr.Wrap(err, apperr.CodeBadRequest, "reading tar stream")
		}
		if hdr.Typeflag != tarstream.TypeRegular && hdr.Typeflag != tarstream.TypeRegularOld {
			continue
		}

		switch strings.ToLower(hdr.Name) {
		case entryPackageJSON:
			raw, err := io.ReadAll(payload)
			if err != nil {
				return nil, "", apperr.Wrap(err, apperr.CodeBadRequest, "reading package.json")
			}
			v, err := ojson.Parse(raw)
			if err != nil {
				return nil, "", apperr.Wrap(err, apperr.CodeBadRequest, "parsing package.json")
			}
			obj, ok := v.(*ojson.Object)
			if !ok {
				return nil, "", apperr.New(apperr.CodeBadRequest, "package.json is not a JSON object")
			}
			packageJSON = obj
		case entryReadme:
			raw, err := io.ReadAll(payload)
			if err != nil {
				return nil, "", apperr.Wrap(err, apperr.CodeBadRequest, "reading README.md")
			}
			readme = string(raw)
		}
	}
	return packageJSON, readme, nil
}

// assembleDocument builds the final ordered version document: the
// synthesized fields first, in the fixed order the wire protocol expects,
// followed by every other package.json field in its original order.
func assembleDocument(pkgJSON *ojson.Object, name, version, shasum, fileName, readme string) *ojson.Object {
	doc := ojson.NewObject()
	doc.Set("name", name)
	doc.Set("version", version)
	doc.Set("category", "")
	doc.Set("readmeFilename", "README.md")
	doc.Set("_id", fmt.Sprintf("%s@%s", name, version))

	dist := ojson.NewObject()
	dist.Set("shasum", shasum)
	dist.Set("tarball", fileName)
	doc.Set("dist", dist)

	if readme != "" {
		doc.Set("readme", readme)
	}

	reserved := map[string]bool{
		"name": true, "version": true, "category": true,
		"readmeFilename": true, "_id": true, "dist": true, "readme": true,
	}
	for _, k := range pkgJSON.Keys() {
		if reserved[k] {
			continue
		}
		v, _ := pkgJSON.Get(k)
		doc.Set(k, v)
	}
	return doc
}
