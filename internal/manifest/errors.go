package manifest

import "errors"

// ErrTrailerMismatch is returned by Unmarshal when the persisted
// blake3 trailer does not match the manifest body, indicating the
// sibling manifest file was corrupted or truncated.
var ErrTrailerMismatch = errors.New("manifest: blake3 trailer mismatch")
