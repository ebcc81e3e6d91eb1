package salt

// DefaultLength is the number of leading hex characters of the version
// digest used in target names when no explicit length is configured. Six
// characters keep paths readable; deployments with very large numbers of
// distinct task identities should raise this to keep the birthday-bound
// collision probability acceptable.
const DefaultLength = 6

// Options configure how a node's outputs are salted. Options are attached
// at the node level and propagated, not passed per call.
type Options struct {
	// Enabled toggles salting for the node. When false, the {salt}
	// placeholder resolves to the node's ID instead of a digest prefix.
	Enabled bool

	// Parameters additionally folds the node's significant parameters into
	// the visible path. This is purely cosmetic naming; it never affects
	// digest computation.
	Parameters bool

	// Length is the number of leading hex characters of the digest used as
	// the salt. Zero means DefaultLength; values above HexLength truncate
	// to the full digest; negative values are rejected.
	Length int
}

// DefaultOptions returns the options used when a pipeline declares none:
// salting enabled, digest-only naming, DefaultLength characters.
func DefaultOptions() Options {
	return Options{Enabled: true, Length: DefaultLength}
}

// normalize resolves defaulting and bounds for Length.
func (o Options) normalize() (Options, error) {
	if o.Length < 0 {
		return o, &OptionsError{Reason: "salt length must not be negative"}
	}
	if o.Length == 0 {
		o.Length = DefaultLength
	}
	if o.Length > HexLength {
		o.Length = HexLength
	}
	return o, nil
}
