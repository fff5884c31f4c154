// Package format renders AUR packages for terminal output in the short,
// long, name-only, update and user-supplied custom layouts.
package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jkl1337/auracle/internal/pacman"
	"github.com/jkl1337/auracle/pkg/aur"
	"github.com/jkl1337/auracle/pkg/errors"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorRed    = lipgloss.Color("167")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
	colorYellow = lipgloss.Color("220")
)

type styleSet struct {
	Repo      lipgloss.Style
	Name      lipgloss.Style
	Version   lipgloss.Style
	OldVer    lipgloss.Style
	Field     lipgloss.Style
	Installed lipgloss.Style
	OutOfDate lipgloss.Style
	Dim       lipgloss.Style
}

var styles = colorStyles()

func colorStyles() styleSet {
	return styleSet{
		Repo:      lipgloss.NewStyle().Bold(true).Foreground(colorCyan),
		Name:      lipgloss.NewStyle().Bold(true).Foreground(colorWhite),
		Version:   lipgloss.NewStyle().Foreground(colorGreen),
		OldVer:    lipgloss.NewStyle().Foreground(colorRed),
		Field:     lipgloss.NewStyle().Bold(true),
		Installed: lipgloss.NewStyle().Foreground(colorCyan),
		OutOfDate: lipgloss.NewStyle().Foreground(colorYellow),
		Dim:       lipgloss.NewStyle().Foreground(colorDim),
	}
}

// EnableColor switches styled output on or off. Plain output renders every
// style as a no-op.
func EnableColor(enabled bool) {
	if enabled {
		styles = colorStyles()
		return
	}
	styles = styleSet{}
}

const timeLayout = "Mon Jan _2 15:04:05 2006"

// NameOnly prints just the package name.
func NameOnly(w io.Writer, pkg *aur.Package) {
	fmt.Fprintln(w, styles.Name.Render(pkg.Name))
}

// Update prints a version transition for an outdated installed package.
func Update(w io.Writer, local *pacman.LocalPackage, pkg *aur.Package) {
	fmt.Fprintf(w, "%s %s -> %s\n",
		styles.Name.Render(local.Pkgname),
		styles.OldVer.Render(local.Pkgver),
		styles.Version.Render(pkg.Version))
}

// Short prints the two-line search result layout.
func Short(w io.Writer, pkg *aur.Package, local *pacman.LocalPackage) {
	line := fmt.Sprintf("%s%s %s (%d, %.2f)",
		styles.Repo.Render("aur/"),
		styles.Name.Render(pkg.Name),
		styles.Version.Render(pkg.Version),
		pkg.Votes, pkg.Popularity)

	if !pkg.OutOfDate.IsZero() {
		line += " " + styles.OutOfDate.Render(
			fmt.Sprintf("(Out-of-date: %s)", pkg.OutOfDate.Format("2006-01-02")))
	}
	if pkg.Maintainer == "" {
		line += " " + styles.OutOfDate.Render("(Orphaned)")
	}
	if local != nil {
		installed := "[installed]"
		if local.Pkgver != pkg.Version {
			installed = fmt.Sprintf("[installed: %s]", local.Pkgver)
		}
		line += " " + styles.Installed.Render(installed)
	}

	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "    %s\n", pkg.Description)
}

// fieldWidth aligns the long-format field column.
const fieldWidth = 17

func printField(w io.Writer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s : %s\n", styles.Field.Render(fmt.Sprintf("%-*s", fieldWidth, name)), value)
}

func joinDeps(deps []aur.Dependency) string {
	parts := make([]string, 0, len(deps))
	for _, d := range deps {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "  ")
}

// Long prints the full field table for one package.
func Long(w io.Writer, pkg *aur.Package, local *pacman.LocalPackage) {
	printField(w, "Repository", styles.Repo.Render("aur"))
	name := pkg.Name
	if local != nil {
		if local.Pkgver == pkg.Version {
			name += " " + styles.Installed.Render("[installed]")
		} else {
			name += " " + styles.Installed.Render(fmt.Sprintf("[installed: %s]", local.Pkgver))
		}
	}
	printField(w, "Name", name)
	printField(w, "Version", styles.Version.Render(pkg.Version))
	printField(w, "Description", pkg.Description)
	printField(w, "URL", pkg.URL)
	printField(w, "AUR Page", "https://aur.archlinux.org/packages/"+pkg.Name)
	printField(w, "Keywords", strings.Join(pkg.Keywords, "  "))
	printField(w, "Groups", strings.Join(pkg.Groups, "  "))
	printField(w, "Depends On", joinDeps(pkg.Depends))
	printField(w, "Makedepends", joinDeps(pkg.MakeDepends))
	printField(w, "Checkdepends", joinDeps(pkg.CheckDepends))
	printField(w, "Provides", joinDeps(pkg.Provides))
	printField(w, "Conflicts With", joinDeps(pkg.Conflicts))
	printField(w, "Replaces", joinDeps(pkg.Replaces))
	printField(w, "Optional Deps", joinDeps(pkg.OptDepends))
	printField(w, "Licenses", strings.Join(pkg.Licenses, "  "))
	printField(w, "Votes", strconv.Itoa(pkg.Votes))
	printField(w, "Popularity", fmt.Sprintf("%.6f", pkg.Popularity))
	maintainer := pkg.Maintainer
	if maintainer == "" {
		maintainer = styles.OutOfDate.Render("(Orphaned)")
	}
	printField(w, "Maintainer", maintainer)
	printField(w, "First Submitted", pkg.FirstSubmitted.Format(timeLayout))
	printField(w, "Last Modified", pkg.LastModified.Format(timeLayout))
	if !pkg.OutOfDate.IsZero() {
		printField(w, "Out Of Date", styles.OutOfDate.Render(pkg.OutOfDate.Format(timeLayout)))
	}
	fmt.Fprintln(w)
}

// Custom expands a user-supplied template where {field} references expand
// to package fields, e.g. "{name} {version}". Unknown fields are an error.
func Custom(w io.Writer, tmpl string, pkg *aur.Package) error {
	var b strings.Builder
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		rest = rest[open+1:]

		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "unterminated field reference in format %q", tmpl)
		}
		field := rest[:closing]
		rest = rest[closing+1:]

		value, err := fieldValue(pkg, field)
		if err != nil {
			return err
		}
		b.WriteString(value)
	}
	fmt.Fprintln(w, b.String())
	return nil
}

func fieldValue(pkg *aur.Package, field string) (string, error) {
	switch field {
	case "name":
		return pkg.Name, nil
	case "pkgbase":
		return pkg.PackageBase, nil
	case "version":
		return pkg.Version, nil
	case "description":
		return pkg.Description, nil
	case "url":
		return pkg.URL, nil
	case "urlpath":
		return pkg.URLPath, nil
	case "maintainer":
		return pkg.Maintainer, nil
	case "votes":
		return strconv.Itoa(pkg.Votes), nil
	case "popularity":
		return fmt.Sprintf("%.6f", pkg.Popularity), nil
	case "firstsubmitted":
		return pkg.FirstSubmitted.Format(timeLayout), nil
	case "lastmodified":
		return pkg.LastModified.Format(timeLayout), nil
	case "outofdate":
		return formatMaybeTime(pkg.OutOfDate), nil
	case "depends":
		return joinDeps(pkg.Depends), nil
	case "makedepends":
		return joinDeps(pkg.MakeDepends), nil
	case "checkdepends":
		return joinDeps(pkg.CheckDepends), nil
	case "optdepends":
		return joinDeps(pkg.OptDepends), nil
	case "conflicts":
		return joinDeps(pkg.Conflicts), nil
	case "provides":
		return joinDeps(pkg.Provides), nil
	case "replaces":
		return joinDeps(pkg.Replaces), nil
	case "groups":
		return strings.Join(pkg.Groups, "  "), nil
	case "licenses":
		return strings.Join(pkg.Licenses, "  "), nil
	case "keywords":
		return strings.Join(pkg.Keywords, "  "), nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown field %q in format string", field)
}

func formatMaybeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
