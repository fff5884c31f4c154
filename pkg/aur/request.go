package aur

import (
	"fmt"
	"net/url"
	"strings"
)

// The AUR rejects overlong request URIs, so multi-name info queries are
// split into several wire requests. The limit matches the server's cap.
const maxURILength = 8000

// HTTPRequest describes a fetch against the AUR. Build expands the request
// into the ordered list of concrete wire-request URLs; it is deterministic
// and side-effect-free, so calling it twice yields identical output.
type HTTPRequest interface {
	Build(baseURL string) []string
}

// SearchBy selects the field an RPC search matches against.
type SearchBy string

// Search-by kinds accepted by the RPC interface.
const (
	SearchByName         SearchBy = "name"
	SearchByNameDesc     SearchBy = "name-desc"
	SearchByMaintainer   SearchBy = "maintainer"
	SearchByDepends      SearchBy = "depends"
	SearchByMakeDepends  SearchBy = "makedepends"
	SearchByOptDepends   SearchBy = "optdepends"
	SearchByCheckDepends SearchBy = "checkdepends"
)

// ParseSearchBy converts a user-supplied string to a SearchBy kind.
func ParseSearchBy(s string) (SearchBy, error) {
	switch by := SearchBy(s); by {
	case SearchByName, SearchByNameDesc, SearchByMaintainer, SearchByDepends,
		SearchByMakeDepends, SearchByOptDepends, SearchByCheckDepends:
		return by, nil
	}
	return "", fmt.Errorf("invalid search-by kind %q", s)
}

// SearchRequest is an RPC search query for a single term.
type SearchRequest struct {
	by  SearchBy
	arg string
}

// NewSearchRequest creates a search query matching arg against the given field.
func NewSearchRequest(by SearchBy, arg string) *SearchRequest {
	return &SearchRequest{by: by, arg: arg}
}

// Build returns the single search URL for this request.
func (r *SearchRequest) Build(baseURL string) []string {
	return []string{fmt.Sprintf("%s/rpc?v=5&type=search&by=%s&arg=%s",
		baseURL, r.by, url.QueryEscape(r.arg))}
}

// InfoRequest is an RPC metadata query for one or more package names.
//
// A query naming many packages expands into several wire requests when the
// combined URL would exceed the server's URI length limit. Each generated
// wire request produces its own callback invocation.
type InfoRequest struct {
	args []string
}

// NewInfoRequest creates an info query for the given package names.
func NewInfoRequest(args ...string) *InfoRequest {
	r := &InfoRequest{}
	for _, arg := range args {
		r.AddArg(arg)
	}
	return r
}

// AddArg appends a package name to the query.
func (r *InfoRequest) AddArg(arg string) {
	r.args = append(r.args, arg)
}

// Empty reports whether the query names no packages.
func (r *InfoRequest) Empty() bool { return len(r.args) == 0 }

// Build returns the wire-request URLs, splitting the argument list so no
// single URL exceeds the URI length limit.
func (r *InfoRequest) Build(baseURL string) []string {
	prefix := baseURL + "/rpc?v=5&type=info"

	var urls []string
	var b strings.Builder
	b.WriteString(prefix)

	for _, arg := range r.args {
		param := "&arg[]=" + url.QueryEscape(arg)
		if b.Len()+len(param) > maxURILength && b.Len() > len(prefix) {
			urls = append(urls, b.String())
			b.Reset()
			b.WriteString(prefix)
		}
		b.WriteString(param)
	}
	if b.Len() > len(prefix) {
		urls = append(urls, b.String())
	}
	return urls
}

// RawRequest fetches a raw path below the AUR base URL, such as a source
// file or a snapshot tarball.
type RawRequest struct {
	urlpath string
}

// NewRawRequest creates a fetch for the given path relative to the base URL.
func NewRawRequest(urlpath string) *RawRequest {
	return &RawRequest{urlpath: urlpath}
}

// RawRequestForTarball fetches the snapshot tarball of pkg, using the
// URLPath the RPC interface reported for it.
func RawRequestForTarball(pkg *Package) *RawRequest {
	return &RawRequest{urlpath: pkg.URLPath}
}

// RawRequestForSourceFile fetches a single file from the package's git
// repository at its current head.
func RawRequestForSourceFile(pkg *Package, filename string) *RawRequest {
	return &RawRequest{urlpath: fmt.Sprintf("/cgit/aur.git/plain/%s?h=%s",
		url.PathEscape(filename), url.QueryEscape(pkg.PackageBase))}
}

// Build returns the single URL for this request.
func (r *RawRequest) Build(baseURL string) []string {
	return []string{baseURL + r.urlpath}
}

// CloneRequest names a package git repository to clone or update.
type CloneRequest struct {
	reponame string
}

// NewCloneRequest creates a clone/update request for the given repository.
func NewCloneRequest(reponame string) *CloneRequest {
	return &CloneRequest{reponame: reponame}
}

// Reponame returns the repository (package base) name.
func (r *CloneRequest) Reponame() string { return r.reponame }

// Build returns the single repository URL.
func (r *CloneRequest) Build(baseURL string) []string {
	return []string{baseURL + "/" + r.reponame + ".git"}
}
