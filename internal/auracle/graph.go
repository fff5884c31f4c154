package auracle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/jkl1337/auracle/pkg/aur"
	"github.com/jkl1337/auracle/pkg/errors"
)

// GraphOptions controls dependency graph output.
type GraphOptions struct {
	// Output is the destination path. Empty writes DOT to standard output;
	// a path ending in .svg renders with Graphviz instead.
	Output string
}

// Graph fetches the named packages and their transitive dependencies and
// emits the dependency graph in DOT or rendered SVG form.
func (a *Auracle) Graph(ctx context.Context, args []string, opts GraphOptions) error {
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

	dot := a.depGraphDOT(args, iter.Cache)

	if strings.HasSuffix(opts.Output, ".svg") {
		svg, err := renderSVG(ctx, dot)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Output, svg, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write %s", opts.Output)
		}
		return nil
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(dot), 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write %s", opts.Output)
		}
		return nil
	}
	fmt.Fprint(a.out, dot)
	return nil
}

// depGraphDOT serializes the dependency graph reachable from args. AUR
// packages are boxes, repo packages ellipses, unknown names get a grey
// fill. Make and check dependencies use dashed and dotted edges.
func (a *Auracle) depGraphDOT(args []string, cache *PackageCache) string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n\n")

	emitted := make(map[string]struct{})
	emitNode := func(name string) {
		if _, ok := emitted[name]; ok {
			return
		}
		emitted[name] = struct{}{}

		var attrs []string
		switch {
		case cache.LookupByPkgname(name) != nil:
			if slices.Contains(args, name) {
				attrs = append(attrs, "penwidth=2")
			}
		case a.pacman.HasPackage(name):
			attrs = append(attrs, "shape=ellipse")
		default:
			attrs = append(attrs, "fillcolor=lightgrey")
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q [%s];\n", name, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q;\n", name)
		}
	}

	type edge struct {
		from, to string
		style    string
	}
	var edges []edge
	for _, arg := range args {
		cache.WalkDependencies(arg, func(name string, pkg *aur.Package) {
			emitNode(name)
			if pkg == nil {
				return
			}
			for _, dep := range pkg.Depends {
				edges = append(edges, edge{name, dep.Name, ""})
			}
			for _, dep := range pkg.MakeDepends {
				edges = append(edges, edge{name, dep.Name, "dashed"})
			}
			for _, dep := range pkg.CheckDepends {
				edges = append(edges, edge{name, dep.Name, "dotted"})
			}
		})
	}

	buf.WriteString("\n")
	for _, e := range edges {
		if e.style != "" {
			fmt.Fprintf(&buf, "  %q -> %q [style=%s];\n", e.from, e.to, e.style)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.from, e.to)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render graph")
	}
	return buf.Bytes(), nil
}
