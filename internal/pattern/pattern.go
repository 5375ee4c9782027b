// Package pattern compiles and evaluates the expression sets that decide which
// crawled paths are reported (filters) and which directories are not descended
// into (stops).
//
// Expressions are Go regular expressions matched anywhere within the candidate
// path, never anchored implicitly. A Set is immutable once compiled and safe for
// concurrent use by any number of workers.
package pattern

import (
	"fmt"
	"regexp"
)

// Kind names the role a pattern set plays in a crawl.
type Kind string

const (
	// KindFilter marks inclusion patterns. A path is reported when it matches one.
	KindFilter Kind = "filter"
	// KindStop marks pruning patterns. A matching directory is not descended into.
	KindStop Kind = "stop"
)

// Presets applied by --only-trunk-dirs: report trunk directories below the root
// and never descend into trunk, branches or tags.
var (
	TrunkFilters = []string{".*/trunk/"}
	TrunkStops   = []string{"trunk/$", "branches/$", "tags/$"}
)

// CompileError reports an expression that failed to compile.
type CompileError struct {
	Set  Kind
	Expr string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Set, e.Expr, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Set is an ordered collection of compiled expressions.
type Set struct {
	kind  Kind
	exprs []*regexp.Regexp
}

// Compile builds a Set from the given expressions. The first invalid expression
// aborts compilation with a *CompileError.
func Compile(kind Kind, exprs []string) (Set, error) {
	set := Set{kind: kind, exprs: make([]*regexp.Regexp, 0, len(exprs))}
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return Set{}, &CompileError{Set: kind, Expr: expr, Err: err}
		}
		set.exprs = append(set.exprs, re)
	}
	return set, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level presets.
func MustCompile(kind Kind, exprs ...string) Set {
	set, err := Compile(kind, exprs)
	if err != nil {
		panic(err)
	}
	return set
}

// Kind returns the role this set was compiled for.
func (s Set) Kind() Kind {
	return s.kind
}

// Len returns the number of expressions in the set.
func (s Set) Len() int {
	return len(s.exprs)
}

// Strings returns the source expressions in their original order.
func (s Set) Strings() []string {
	out := make([]string, len(s.exprs))
	for i, re := range s.exprs {
		out[i] = re.String()
	}
	return out
}

// MatchesAny reports whether the set is non-empty and at least one expression
// matches somewhere within text.
func MatchesAny(patterns Set, text string) bool {
	for _, re := range patterns.exprs {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// PassesFilter reports whether text should be published. An empty filter set
// accepts everything.
func PassesFilter(filters Set, text string) bool {
	return filters.Len() == 0 || MatchesAny(filters, text)
}

// IsPruned reports whether a directory at text must not be descended into. An
// empty stop set prunes nothing.
func IsPruned(stops Set, text string) bool {
	return MatchesAny(stops, text)
}
