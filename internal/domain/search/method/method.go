package method

// Method is the vector distance function.
type Method string

// Distance methods.
const (
	// Cosine is the default.
	Cosine     Method = "cosine"
	Dot        Method = "dot"
	L2Squared  Method = "l2-squared"
	Hamming    Method = "hamming"
	Manhattan  Method = "manhattan"
	defaultVal        = Cosine
)

// Default returns the method used when none is configured.
func Default() Method { return defaultVal }

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	switch m {
	case Cosine, Dot, L2Squared, Hamming, Manhattan:
		return true
	}
	return false
}
