package salt

import (
	"fmt"
	"strings"
)

// CycleError reports that a node's requirement lineage revisits a node that
// is already on the active traversal path. The graph is structurally invalid
// and no digest can be computed for any node on the path.
type CycleError struct {
	// Path is the requirement chain that closed the cycle, ending with the
	// repeated node ID.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic requirement graph: %s", strings.Join(e.Path, " -> "))
}

// UnstableIdentityError reports that a node has no reproducible identity:
// its logic fingerprint is empty, or a parameter value has no canonical
// textual form.
type UnstableIdentityError struct {
	NodeID string
	Reason string
}

func (e *UnstableIdentityError) Error() string {
	return fmt.Sprintf("node '%s' has no stable identity: %s", e.NodeID, e.Reason)
}

// TemplateError reports that a target naming pattern references a
// placeholder that does not resolve against the node.
type TemplateError struct {
	Pattern     string
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("unresolvable placeholder '{%s}' in pattern '%s'", e.Placeholder, e.Pattern)
}

// OptionsError reports invalid salting options on a node.
type OptionsError struct {
	Reason string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid salt options: %s", e.Reason)
}
