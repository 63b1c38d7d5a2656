package language

import (
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// FragmentSpreads returns the names of named fragment spreads in source, in
// order of first appearance. Operations and fragment definitions are both
// walked.
func FragmentSpreads(source string) ([]string, error) {
	doc, err := ParseQuery(source)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	var walk func(SelectionSet)
	walk = func(set SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *Field:
				walk(s.SelectionSet)
			case *InlineFragment:
				walk(s.SelectionSet)
			case *FragmentSpread:
				if !seen[s.Name] {
					seen[s.Name] = true
					names = append(names, s.Name)
				}
			}
		}
	}
	for _, op := range doc.Operations {
		walk(op.SelectionSet)
	}
	for _, frag := range doc.Fragments {
		walk(frag.SelectionSet)
	}
	return names, nil
}

// Check parses a standalone document and verifies that every spread has
// exactly one matching fragment definition and that every definition is used.
func Check(source string) error {
	doc, err := ParseQuery(source)
	if err != nil {
		return err
	}
	defined := make(map[string]int, len(doc.Fragments))
	for _, frag := range doc.Fragments {
		defined[frag.Name]++
	}
	for name, n := range defined {
		if n > 1 {
			return fmt.Errorf("fragment %q defined %d times", name, n)
		}
	}
	used, err := FragmentSpreads(source)
	if err != nil {
		return err
	}
	var missing []string
	for _, name := range used {
		if defined[name] == 0 {
			missing = append(missing, name)
		}
		delete(defined, name)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("undefined fragments: %v", missing)
	}
	if len(defined) > 0 {
		unused := make([]string, 0, len(defined))
		for name := range defined {
			unused = append(unused, name)
		}
		sort.Strings(unused)
		return fmt.Errorf("unused fragments: %v", unused)
	}
	return nil
}
