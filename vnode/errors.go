package vnode

import "fmt"

// InvalidPropsError reports a structural violation caught before
// reconciliation ever runs: an unknown kind reaching Validate, or two
// sibling nodes sharing a reconciliation key. It is one of the fatal
// structural errors the frame pipeline can fail with.
type InvalidPropsError struct {
	Path   string
	Reason string
}

func (e *InvalidPropsError) Error() string {
	return fmt.Sprintf("invalid vnode at %s: %s", e.Path, e.Reason)
}

// Validate walks n depth-first and fails fast on the unconditional
// structural invariants: every kind is a member of the closed set, and
// no two siblings under the same parent share a non-empty key.
//
// Validate does not reject unknown kinds encountered mid-tree with a
// panic; unknown kinds simply fail to match during
// reconciliation. Validate exists so a caller can choose to fail a frame
// up front with a structured error instead of silently re-mounting
// everything under an unrecognized kind.
func Validate(root Node) error {
	return validate(root, "root")
}

func validate(n Node, path string) error {
	if !validKinds[n.Kind] {
		return &InvalidPropsError{Path: path, Reason: fmt.Sprintf("unknown kind %q", n.Kind)}
	}

	seen := make(map[string]int, len(n.Children))
	for i, child := range n.Children {
		if child.HasKey() {
			if prev, dup := seen[child.Key]; dup {
				return &InvalidPropsError{
					Path:   path,
					Reason: fmt.Sprintf("duplicate key %q shared by children %d and %d", child.Key, prev, i),
				}
			}
			seen[child.Key] = i
		}
		childPath := fmt.Sprintf("%s/%s[%d]", path, child.Kind, i)
		if err := validate(child, childPath); err != nil {
			return err
		}
	}
	return nil
}
