// Package auracle implements the auracle commands on top of the aur
// dispatcher: metadata queries, searches, recursive clones, dependency
// ordering and update checks against the local pacman database.
package auracle

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	charmlog "github.com/charmbracelet/log"

	"github.com/jkl1337/auracle/internal/format"
	"github.com/jkl1337/auracle/internal/pacman"
	"github.com/jkl1337/auracle/pkg/aur"
	"github.com/jkl1337/auracle/pkg/errors"
)

// LocalDB answers queries about installed packages and sync repos. It is
// satisfied by [pacman.Pacman].
type LocalDB interface {
	GetLocalPackage(name string) *pacman.LocalPackage
	LocalPackages() []pacman.LocalPackage
	HasPackage(name string) bool
	DependencyIsSatisfied(depstring string) bool
	ShouldIgnorePackage(name string) bool
}

// Options configures an Auracle instance.
type Options struct {
	AUR    *aur.Client
	Pacman LocalDB
	Out    io.Writer
	Logger *charmlog.Logger
}

// CommandOptions carries the per-command flags shared across operations.
type CommandOptions struct {
	SearchBy   aur.SearchBy
	Format     string
	Sorter     Sorter
	Quiet      bool
	Recurse    bool
	AllowRegex bool
	Directory  string
	ShowFile   string
}

// Auracle executes the user-facing commands. Each method queues requests on
// the dispatcher and drives them to completion with Wait.
type Auracle struct {
	aur    *aur.Client
	pacman LocalDB
	out    io.Writer
	log    *charmlog.Logger
}

// New creates an Auracle from the given collaborators.
func New(opts Options) *Auracle {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = charmlog.Default()
	}
	return &Auracle{aur: opts.AUR, pacman: opts.Pacman, out: out, log: logger}
}

// wait drains the dispatcher, tagging an interrupted cycle with its error
// code so the CLI can classify it.
func (a *Auracle) wait() error {
	err := a.aur.Wait()
	if stderrors.Is(err, aur.ErrCancelled) {
		return errors.Wrap(errors.ErrCodeCancelled, err, "dispatch interrupted")
	}
	return err
}

func errNotEnoughArgs() error {
	return errors.New(errors.ErrCodeInvalidInput, "not enough arguments")
}

// rpcError collapses the three failure channels of an RPC response into one
// message: transport errors first, then unexpected HTTP statuses, then the
// server-side error field.
func rpcError(resp aur.ResponseWrapper[aur.RpcResponse]) string {
	if resp.Error() != "" {
		return resp.Error()
	}
	if resp.Status() != 200 {
		return fmt.Sprintf("unexpected HTTP status code %d", resp.Status())
	}
	return resp.Value().Error
}

// rpcFailure returns a fatal error for a failed RPC response, or nil.
func rpcFailure(resp aur.ResponseWrapper[aur.RpcResponse]) error {
	if msg := rpcError(resp); msg != "" {
		return errors.New(errors.ErrCodeNetwork, "%s", msg)
	}
	return nil
}

// PackageIterator carries the state of a recursive package walk: the
// deduplicating cache plus an optional callback fired once per newly
// discovered package.
type PackageIterator struct {
	recurse  bool
	callback func(*aur.Package)

	// Cache holds every package discovered during the walk.
	Cache *PackageCache
}

// NewPackageIterator creates iteration state. callback may be nil.
func NewPackageIterator(recurse bool, callback func(*aur.Package)) *PackageIterator {
	return &PackageIterator{recurse: recurse, callback: callback, Cache: NewPackageCache()}
}

// iteratePackages queues an info request for the not-yet-cached names in
// args and, on completion, feeds new packages into the iterator, recursing
// over their dependencies when requested. Recursive levels are queued from
// inside the completion callback; the surrounding Wait keeps driving them.
func (a *Auracle) iteratePackages(args []string, state *PackageIterator) {
	req := aur.NewInfoRequest()
	for _, arg := range args {
		if state.Cache.LookupByPkgname(arg) == nil {
			req.AddArg(arg)
		}
	}
	if req.Empty() {
		return
	}

	a.aur.QueueRpcRequest(req, func(resp aur.ResponseWrapper[aur.RpcResponse]) error {
		if err := rpcFailure(resp); err != nil {
			return err
		}

		results := resp.Value().Results

		for _, name := range notFoundPackages(args, results, state.Cache) {
			if !a.pacman.HasPackage(name) {
				a.log.Errorf("no results found for %s", name)
			}
		}

		for _, result := range results {
			havePkgbase := state.Cache.LookupByPkgbase(result.PackageBase) != nil

			// Add regardless: the package may be another member of an
			// already-seen pkgbase.
			pkg, added := state.Cache.AddPackage(result)
			if !added || havePkgbase {
				continue
			}

			if state.callback != nil {
				state.callback(pkg)
			}

			if state.recurse {
				var alldeps []string
				for _, deplist := range [][]aur.Dependency{pkg.Depends, pkg.MakeDepends, pkg.CheckDepends} {
					for _, dep := range deplist {
						alldeps = append(alldeps, dep.Name)
					}
				}
				a.iteratePackages(alldeps, state)
			}
		}
		return nil
	})
}

// notFoundPackages returns the wanted names that neither the response nor
// the cache account for.
func notFoundPackages(want []string, got []aur.Package, cache *PackageCache) []string {
	var missing []string
	for _, name := range want {
		if cache.LookupByPkgname(name) != nil {
			continue
		}
		if slices.ContainsFunc(got, func(p aur.Package) bool { return p.Name == name }) {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// Info fetches metadata for the named packages and prints them.
func (a *Auracle) Info(args []string, opts CommandOptions) error {
	if len(args) == 0 {
		return errNotEnoughArgs()
	}

	var packages []aur.Package
	a.aur.QueueRpcRequest(aur.NewInfoRequest(args...), func(resp aur.ResponseWrapper[aur.RpcResponse]) error {
		if err := rpcFailure(resp); err != nil {
			return err
		}
		packages = append(packages, resp.Value().Results...)
		return nil
	})

	if err := a.wait(); err != nil {
		return err
	}
	if len(packages) == 0 {
		return errors.New(errors.ErrCodeNotFound, "no packages found")
	}

	// Results may not be unique when the query was split into multiple
	// wire requests.
	packages = sortUnique(packages, opts.Sorter)

	for i := range packages {
		pkg := &packages[i]
		if opts.Format != "" {
			if err := format.Custom(a.out, opts.Format, pkg); err != nil {
				return err
			}
			continue
		}
		format.Long(a.out, pkg, a.pacman.GetLocalPackage(pkg.Name))
	}
	return nil
}

// regexChars are treated as metacharacters when extracting a literal
// search fragment from a regular expression argument.
const regexChars = `^.+*?$[](){}|\`

// searchFragment extracts a literal substring of at least two characters
// usable as the server-side search term for a regex argument. It returns
// the empty string when no such fragment exists.
func searchFragment(arg string) string {
	span := 0
	i := 0
	for ; i < len(arg); i++ {
		rest := arg[i:]
		span = len(rest)
		if idx := strings.IndexAny(rest, regexChars); idx >= 0 {
			span = idx
		}

		// Given 'cow?', we can't include w in the search.
		if span < len(rest) && (rest[span] == '?' || rest[span] == '*') {
			span--
		}

		// A string inside [] or {} cannot be a valid span.
		if rest[0] == '[' || rest[0] == '{' {
			off := strings.IndexAny(rest[span:], "]}")
			if off < 0 {
				return ""
			}
			i += span + off
			continue
		}

		if span >= 2 {
			break
		}
	}

	if i >= len(arg) || span < 2 {
		return ""
	}
	return arg[i : i+span]
}

// Search performs one server-side search per argument and filters the
// merged results client-side when regex arguments are allowed.
func (a *Auracle) Search(args []string, opts CommandOptions) error {
	if len(args) == 0 {
		return errNotEnoughArgs()
	}

	packages, err := a.searchPackages(args, opts)
	if err != nil {
		return err
	}

	packages = sortUnique(packages, opts.Sorter)

	for i := range packages {
		pkg := &packages[i]
		switch {
		case opts.Format != "":
			if err := format.Custom(a.out, opts.Format, pkg); err != nil {
				return err
			}
		case opts.Quiet:
			format.NameOnly(a.out, pkg)
		default:
			format.Short(a.out, pkg, a.pacman.GetLocalPackage(pkg.Name))
		}
	}
	return nil
}

// searchPackages runs the wire searches for Search and the interactive
// picker, returning the filtered but unsorted result set.
func (a *Auracle) searchPackages(args []string, opts CommandOptions) ([]aur.Package, error) {
	var patterns []*regexp.Regexp
	for _, arg := range args {
		re, err := regexp.Compile("(?i)" + arg)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid regex: %s", arg)
		}
		patterns = append(patterns, re)
	}

	matches := func(p *aur.Package) bool {
		for _, re := range patterns {
			switch opts.SearchBy {
			case aur.SearchByName:
				if !re.MatchString(p.Name) {
					return false
				}
			case aur.SearchByNameDesc:
				if !re.MatchString(p.Name) && !re.MatchString(p.Description) {
					return false
				}
			default:
				// The AUR matches maintainer and *depends fields exactly,
				// so there is nothing further to filter on.
			}
		}
		return true
	}

	var packages []aur.Package
	for _, arg := range args {
		frag := arg
		if opts.AllowRegex {
			frag = searchFragment(arg)
			if frag == "" {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"search string %q insufficient for searching by regular expression", arg)
			}
		}

		a.aur.QueueRpcRequest(aur.NewSearchRequest(opts.SearchBy, frag),
			func(resp aur.ResponseWrapper[aur.RpcResponse]) error {
				if err := rpcFailure(resp); err != nil {
					return err
				}
				for _, result := range resp.Value().Results {
					if matches(&result) {
						packages = append(packages, result)
					}
				}
				return nil
			})
	}

	if err := a.wait(); err != nil {
		return nil, err
	}
	return packages, nil
}

// SearchPackages exposes the filtered search result set for callers that
// present results themselves, such as the interactive picker.
func (a *Auracle) SearchPackages(args []string, opts CommandOptions) ([]aur.Package, error) {
	if len(args) == 0 {
		return nil, errNotEnoughArgs()
	}
	packages, err := a.searchPackages(args, opts)
	if err != nil {
		return nil, err
	}
	return sortUnique(packages, opts.Sorter), nil
}

func chdirIfNeeded(target string) error {
	if target == "" {
		return nil
	}
	if err := os.Chdir(target); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to change directory to %s", target)
	}
	return nil
}

// Clone clones or updates the named packages, recursing over dependencies
// when requested. Individual clone failures are reported but do not abort
// the remaining clones.
func (a *Auracle) Clone(args []string, opts CommandOptions) error {
	if len(args) == 0 {
		return errNotEnoughArgs()
	}
	if err := chdirIfNeeded(opts.Directory); err != nil {
		return err
	}

	var ret error
	iter := NewPackageIterator(opts.Recurse, func(pkg *aur.Package) {
		a.queueClone(pkg.PackageBase, &ret)
	})

	a.iteratePackages(args, iter)

	if err := a.wait(); err != nil {
		return err
	}
	if iter.Cache.Empty() {
		return errors.New(errors.ErrCodeNotFound, "no packages found")
	}
	return ret
}

func (a *Auracle) queueClone(pkgbase string, ret *error) {
	a.aur.QueueCloneRequest(aur.NewCloneRequest(pkgbase),
		func(resp aur.ResponseWrapper[aur.CloneResponse]) error {
			if !resp.Ok() {
				a.log.Errorf("clone failed for %s: %s", pkgbase, resp.Error())
				*ret = errors.New(errors.ErrCodeSubprocess, "clone failed for %s: %s", pkgbase, resp.Error())
				return nil
			}
			wd, _ := os.Getwd()
			fmt.Fprintf(a.out, "%s complete: %s\n", resp.Value().Operation, filepath.Join(wd, pkgbase))
			return nil
		})
}

// ClonePackages queues clone requests for already-fetched packages and
// waits for them. Used by the interactive picker after selection.
func (a *Auracle) ClonePackages(packages []aur.Package, opts CommandOptions) error {
	if err := chdirIfNeeded(opts.Directory); err != nil {
		return err
	}

	var ret error
	seen := make(map[string]struct{})
	for i := range packages {
		pkgbase := packages[i].PackageBase
		if _, ok := seen[pkgbase]; ok {
			continue
		}
		seen[pkgbase] = struct{}{}
		a.queueClone(pkgbase, &ret)
	}

	if err := a.wait(); err != nil {
		return err
	}
	return ret
}

// Download fetches the snapshot tarballs of the named packages, recursing
// over dependencies when requested. Each tarball is written next to the
// working directory under its snapshot file name.
func (a *Auracle) Download(args []string, opts CommandOptions) error {
	if len(args) == 0 {
		return errNotEnoughArgs()
	}
	if err := chdirIfNeeded(opts.Directory); err != nil {
		return err
	}

	iter := NewPackageIterator(opts.Recurse, func(pkg *aur.Package) {
		filename := filepath.Base(pkg.URLPath)
		a.aur.QueueTarballRequest(aur.RawRequestForTarball(pkg),
			func(resp aur.ResponseWrapper[aur.RawResponse]) error {
				if !resp.Ok() {
					return errors.New(errors.ErrCodeNetwork, "request failed: %s", resp.Error())
				}
				if resp.Status() != 200 {
					return errors.New(errors.ErrCodeNetwork, "unexpected HTTP status code %d", resp.Status())
				}
				if err := os.WriteFile(filename, resp.Value().Bytes, 0o644); err != nil {
					return errors.Wrap(errors.ErrCodeInternal, err, "write %s", filename)
				}
				wd, _ := os.Getwd()
				fmt.Fprintf(a.out, "download complete: %s\n", filepath.Join(wd, filename))
				return nil
			})
	})

	a.iteratePackages(args, iter)

	if err := a.wait(); err != nil {
		return err
	}
	if iter.Cache.Empty() {
		return errors.New(errors.ErrCodeNotFound, "no packages found")
	}
	return nil
}

// Show fetches and prints a source file (PKGBUILD by default) for each of
// the named packages.
func (a *Auracle) Show(args []string, opts CommandOptions) error {
	if len(args) == 0 {
		return errNotEnoughArgs()
	}

	resultcount := 0
	a.aur.QueueRpcRequest(aur.NewInfoRequest(args...), func(resp aur.ResponseWrapper[aur.RpcResponse]) error {
		if err := rpcFailure(resp); err != nil {
			return err
		}

		resultcount = resp.Value().ResultCount
		printHeader := resultcount > 1

		for _, pkg := range resp.Value().Results {
			pkgbase := pkg.PackageBase
			a.aur.QueueRawRequest(aur.RawRequestForSourceFile(&pkg, opts.ShowFile),
				func(resp aur.ResponseWrapper[aur.RawResponse]) error {
					if !resp.Ok() {
						return errors.New(errors.ErrCodeNetwork, "request failed: %s", resp.Error())
					}
					switch resp.Status() {
					case 200:
					case 404:
						return errors.New(errors.ErrCodeNotFound, "file %q not found for package %q",
							opts.ShowFile, pkgbase)
					default:
						return errors.New(errors.ErrCodeNetwork, "unexpected HTTP response %d", resp.Status())
					}

					if printHeader {
						fmt.Fprintf(a.out, "### BEGIN %s/%s\n", pkgbase, opts.ShowFile)
					}
					fmt.Fprintf(a.out, "%s\n", resp.Value().Bytes)
					return nil
				})
		}
		return nil
	})

	if err := a.wait(); err != nil {
		return err
	}
	if resultcount == 0 {
		return errors.New(errors.ErrCodeNotFound, "no packages found")
	}
	return nil
}

// BuildOrder prints the named packages and their transitive dependencies in
// dependency order, classifying where each one can be obtained from.
func (a *Auracle) BuildOrder(args []string, _ CommandOptions) error {
	if len(args) == 0 {
		return errNotEnoughArgs()
	}

	iter := NewPackageIterator(true, nil)
	a.iteratePackages(args, iter)

	if err := a.wait(); err != nil {
		return err
	}
	if iter.Cache.Empty() {
		return errors.New(errors.ErrCodeNotFound, "no packages found")
	}

	type orderedPkg struct {
		name string
		pkg  *aur.Package
	}
	var ordering []orderedPkg
	seen := make(map[string]struct{})
	for _, arg := range args {
		iter.Cache.WalkDependencies(arg, func(name string, pkg *aur.Package) {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				ordering = append(ordering, orderedPkg{name, pkg})
			}
		})
	}

	for _, entry := range ordering {
		satisfied := a.pacman.DependencyIsSatisfied(entry.name)
		fromAUR := entry.pkg != nil
		inRepo := a.pacman.HasPackage(entry.name)
		isTarget := slices.Contains(args, entry.name)

		var b strings.Builder
		if !fromAUR && !inRepo {
			b.WriteString("UNKNOWN")
		} else {
			if isTarget {
				b.WriteString("TARGET")
			} else if satisfied {
				b.WriteString("SATISFIED")
			}
			if fromAUR {
				b.WriteString("AUR")
			}
			if inRepo {
				b.WriteString("REPOS")
			}
		}

		b.WriteByte(' ')
		b.WriteString(entry.name)
		if fromAUR {
			b.WriteByte(' ')
			b.WriteString(entry.pkg.PackageBase)
		}
		fmt.Fprintln(a.out, b.String())
	}
	return nil
}

// getOutdatedPackages queries the AUR for every installed package (or the
// named subset) and keeps those with a newer AUR version.
func (a *Auracle) getOutdatedPackages(args []string) ([]aur.Package, error) {
	req := aur.NewInfoRequest()
	for _, local := range a.pacman.LocalPackages() {
		if len(args) == 0 || slices.Contains(args, local.Pkgname) {
			req.AddArg(local.Pkgname)
		}
	}

	var packages []aur.Package
	a.aur.QueueRpcRequest(req, func(resp aur.ResponseWrapper[aur.RpcResponse]) error {
		if err := rpcFailure(resp); err != nil {
			return err
		}
		for _, pkg := range resp.Value().Results {
			local := a.pacman.GetLocalPackage(pkg.Name)
			if local != nil && pacman.Vercmp(pkg.Version, local.Pkgver) > 0 {
				packages = append(packages, pkg)
			}
		}
		return nil
	})

	if err := a.wait(); err != nil {
		return nil, err
	}
	return packages, nil
}

// Update clones or refreshes the repositories of outdated packages.
func (a *Auracle) Update(args []string, opts CommandOptions) error {
	if err := chdirIfNeeded(opts.Directory); err != nil {
		return err
	}

	packages, err := a.getOutdatedPackages(args)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		return errors.New(errors.ErrCodeNotFound, "no packages found")
	}

	var ret error
	iter := NewPackageIterator(opts.Recurse, func(pkg *aur.Package) {
		a.queueClone(pkg.PackageBase, &ret)
	})

	outdated := make([]string, 0, len(packages))
	for i := range packages {
		outdated = append(outdated, packages[i].Name)
	}
	a.iteratePackages(outdated, iter)

	if err := a.wait(); err != nil {
		return err
	}
	return ret
}

// Outdated prints installed packages with a newer version in the AUR.
func (a *Auracle) Outdated(args []string, opts CommandOptions) error {
	packages, err := a.getOutdatedPackages(args)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		return errors.New(errors.ErrCodeNotFound, "no packages found")
	}

	// Not strictly needed, but keeps output order stable.
	sorter, _ := MakePackageSorter("name", OrderAsc)
	packages = sortUnique(packages, sorter)

	for i := range packages {
		pkg := &packages[i]
		if opts.Quiet {
			format.NameOnly(a.out, pkg)
		} else {
			format.Update(a.out, a.pacman.GetLocalPackage(pkg.Name), pkg)
		}
	}
	return nil
}

// rawDump prints a raw response body followed by a newline.
func (a *Auracle) rawDump(resp aur.ResponseWrapper[aur.RawResponse]) error {
	if !resp.Ok() {
		return errors.New(errors.ErrCodeNetwork, "request failed: %s", resp.Error())
	}
	fmt.Fprintf(a.out, "%s\n", resp.Value().Bytes)
	return nil
}

// RawSearch performs a search per argument and dumps the undecoded
// responses.
func (a *Auracle) RawSearch(args []string, opts CommandOptions) error {
	for _, arg := range args {
		a.aur.QueueRawRequest(aur.NewSearchRequest(opts.SearchBy, arg), a.rawDump)
	}
	return a.wait()
}

// RawInfo performs an info query and dumps the undecoded responses.
func (a *Auracle) RawInfo(args []string, _ CommandOptions) error {
	a.aur.QueueRawRequest(aur.NewInfoRequest(args...), a.rawDump)
	return a.wait()
}
