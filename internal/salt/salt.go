// Package salt implements content-derived versioning for task graph nodes.
//
// A node's version digest is a sha256 over the digests of its upstream
// requirements (in declaration order), its logic fingerprint, and its
// significant parameters sorted by name. The digest changes whenever the
// node's logic, any significant parameter, or anything in its upstream
// lineage changes, which gives salted output paths free cache invalidation
// and provenance tracking.
//
// The message hashed for a node is the plain concatenation
//
//	digest(req_1) ... digest(req_n) fingerprint name_1=value_1 ... name_m=value_m
//
// with no join characters, where values are rendered as canonical JSON
// (strings keep their quotes, so the string "1" and the number 1 never
// collide). This format is load-bearing: interoperating implementations
// must reproduce it byte for byte.
package salt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/aaroncwhite/salted/internal/task"
)

// HexLength is the length of a full version digest in hex characters.
const HexLength = sha256.Size * 2

// Digest computes the version digest of a node and its entire upstream
// lineage. It is a pure function of the node: no I/O, no side effects, safe
// to call concurrently, and idempotent for an unchanged graph.
func Digest(node task.Node) (string, error) {
	return NewHasher().Digest(node)
}

// Hasher computes version digests with a per-instance cache keyed by node
// ID, so fan-in graphs digest each distinct task identity once. A Hasher
// must not outlive the logical graph definition it was created for: if a
// node's logic or parameters change, use a fresh Hasher.
type Hasher struct {
	memo map[string]string
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{memo: make(map[string]string)}
}

// Digest computes (or returns the cached) version digest for the node.
func (h *Hasher) Digest(node task.Node) (string, error) {
	return h.digest(node, nil)
}

// digest walks the requirement lineage depth-first. path carries the IDs on
// the active recursion stack for explicit cycle detection.
func (h *Hasher) digest(node task.Node, path []string) (string, error) {
	id := node.ID()
	if d, ok := h.memo[id]; ok {
		return d, nil
	}
	for _, seen := range path {
		if seen == id {
			return "", &CycleError{Path: append(append([]string{}, path...), id)}
		}
	}
	path = append(path, id)

	var msg strings.Builder

	// Salt with lineage. Requirement declaration order is load-bearing and
	// must be deterministic across calls.
	for _, req := range node.Requires() {
		d, err := h.digest(req, path)
		if err != nil {
			return "", err
		}
		msg.WriteString(d)
	}

	// Uniquely specify this node: logic fingerprint, then significant
	// parameters sorted by name.
	fp := node.Fingerprint()
	if fp == "" {
		return "", &UnstableIdentityError{NodeID: id, Reason: "empty logic fingerprint"}
	}
	msg.WriteString(fp)

	sig := task.SignificantParams(node)
	sort.SliceStable(sig, func(i, j int) bool { return sig[i].Name < sig[j].Name })
	for _, p := range sig {
		v, err := CanonicalValue(p.Value)
		if err != nil {
			return "", &UnstableIdentityError{
				NodeID: id,
				Reason: fmt.Sprintf("parameter '%s' has no canonical form: %v", p.Name, err),
			}
		}
		msg.WriteString(p.Name)
		msg.WriteString("=")
		msg.WriteString(v)
	}

	sum := sha256.Sum256([]byte(msg.String()))
	d := hex.EncodeToString(sum[:])
	h.memo[id] = d
	return d, nil
}

// CanonicalValue renders a parameter value as canonical JSON. The rendering
// is deterministic (cty iterates object and map elements in sorted key
// order) and unambiguous across types.
func CanonicalValue(v cty.Value) (string, error) {
	if v == cty.NilVal {
		return "", fmt.Errorf("value is nil")
	}
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("value is not known")
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", fmt.Errorf("failed to render value: %w", err)
	}
	return string(b), nil
}
