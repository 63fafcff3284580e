package services

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Signature recognizes one kind of corrupted value.
type Signature struct {
	Name  string
	Match func(value string) bool
}

var (
	bareUUIDPattern  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	keyPrefixPattern = regexp.MustCompile(`(?i)^([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}|[0-9a-f]{32}):`)

	decryptionMarkers = []string{
		"[DECODING_FAILED]",
		"[RECOVERED_DATA]:",
		"[DECRYPTION_ERROR:",
		"[ENCRYPTION_ERROR:",
		"[PROTECTED_DATA]",
		"[NOT_ENCRYPTED_OR_INVALID]",
		"[EMPTY_DATA]",
		"[MALFORMED_ENCRYPTED_DATA]",
		"[MISSING_IV_OR_CIPHERTEXT]",
		"[EMPTY_CIPHERTEXT]",
		"[INVALID_IV_FORMAT]",
		"[EMPTY_DECRYPTION_RESULT]",
		"[AES_DECRYPTION_FAILED]",
		"[EMPTY_UTF8_DATA]",
		"[GENERAL_DECRYPTION_ERROR]",
		"[PREVIOUS_DECRYPTION_ERROR]",
	}
)

// BlankSignature matches empty values and the literals "undefined" and "null".
func BlankSignature() Signature {
	return Signature{Name: "blank", Match: func(v string) bool {
		return v == "" || v == "undefined" || v == "null"
	}}
}

// BareUUIDSignature matches a value that is only a UUID.
func BareUUIDSignature() Signature {
	return Signature{Name: "bare-uuid", Match: bareUUIDPattern.MatchString}
}

// KeyPrefixSignature matches an encryption key or IV leaked in front of a
// ciphertext: a UUID or 32 hex characters followed by a colon.
func KeyPrefixSignature() Signature {
	return Signature{Name: "key-prefixed", Match: keyPrefixPattern.MatchString}
}

// DecryptionMarkerSignature matches the error markers the display layer used
// to write in place of values it could not decrypt.
func DecryptionMarkerSignature() Signature {
	return Signature{Name: "decryption-marker", Match: func(v string) bool {
		for _, m := range decryptionMarkers {
			if strings.Contains(v, m) {
				return true
			}
		}
		return false
	}}
}

// Detector classifies field values as INVALID when any signature matches.
// It is a heuristic: unknown corruption patterns pass as valid text.
type Detector struct {
	signatures []Signature
}

// NewDetector returns the blank, bare UUID and key-prefixed signatures plus extra.
func NewDetector(extra ...Signature) *Detector {
	sigs := []Signature{BlankSignature(), BareUUIDSignature(), KeyPrefixSignature()}
	return &Detector{signatures: append(sigs, extra...)}
}

// With returns a copy of the detector with more signatures.
func (d *Detector) With(extra ...Signature) *Detector {
	sigs := make([]Signature, 0, len(d.signatures)+len(extra))
	sigs = append(sigs, d.signatures...)
	return &Detector{signatures: append(sigs, extra...)}
}

// Classify returns the name of the first matching signature.
func (d *Detector) Classify(value string) (string, bool) {
	v := strings.TrimSpace(value)
	for _, sig := range d.signatures {
		if sig.Match(v) {
			return sig.Name, true
		}
	}
	return "", false
}

func (d *Detector) IsInvalid(value string) bool {
	_, invalid := d.Classify(value)
	return invalid
}

// IsInvalidValue applies the predicate to a raw document value. Lists are
// invalid only when empty.
func (d *Detector) IsInvalidValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return d.IsInvalid(val)
	case []string:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	case bson.A:
		return len(val) == 0
	}
	return false
}
