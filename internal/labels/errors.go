package labels

import "errors"

// ErrTooManySamples reports a model whose tip count exceeds what a
// TipID bitmask can represent.
var ErrTooManySamples = errors.New("too many samples for pattern width")
