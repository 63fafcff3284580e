package compliance

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"PracticeHub360/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryptor is the at-rest encryption collaborator. Services hand it whole
// documents; it only touches the sensitive fields of the collection.
type Encryptor interface {
	DecryptForDisplay(ctx context.Context, doc bson.M, collection, callerID string) (bson.M, error)
	EncryptForStorage(ctx context.Context, doc bson.M, collection, callerID string) (bson.M, error)
}

var sensitiveFields = map[string][]string{
	store.PatientCollection: {
		"phone", "email", "consultationReason", "currentTreatment", "medicalAntecedents",
		"medicalHistory", "osteopathicTreatment", "notes",
	},
	store.ConsultationCollection: {
		"patientPhone", "patientEmail", "consultationReason", "currentTreatment",
		"medicalAntecedents", "medicalHistory", "osteopathicTreatment", "notes", "treatment",
	},
}

// SensitiveFields lists the encrypted properties of a collection.
func SensitiveFields(collection string) []string {
	return sensitiveFields[collection]
}

// Plaintext stores values unchanged. Used when no key is configured.
type Plaintext struct{}

func (Plaintext) DecryptForDisplay(_ context.Context, doc bson.M, _, _ string) (bson.M, error) {
	return doc, nil
}

func (Plaintext) EncryptForStorage(_ context.Context, doc bson.M, _, _ string) (bson.M, error) {
	return doc, nil
}

// FieldCipher encrypts string fields with XChaCha20-Poly1305. Stored values
// look like "<keyID>:<base64(nonce|ciphertext)>".
type FieldCipher struct {
	keyID  string
	aead   cipher.AEAD
	logger *zap.Logger
}

func NewFieldCipher(keyID string, key []byte, logger *zap.Logger) (*FieldCipher, error) {
	if keyID == "" {
		return nil, fmt.Errorf("field cipher: key id is required")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	return &FieldCipher{keyID: keyID, aead: aead, logger: logger}, nil
}

func (f *FieldCipher) EncryptValue(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, f.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("field cipher: nonce: %w", err)
	}
	sealed := f.aead.Seal(nonce, nonce, []byte(plain), []byte(f.keyID))
	return f.keyID + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptValue returns values that are not sealed with this key unchanged.
func (f *FieldCipher) DecryptValue(raw string) (string, error) {
	prefix := f.keyID + ":"
	if !strings.HasPrefix(raw, prefix) {
		return raw, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, prefix))
	if err != nil {
		return raw, fmt.Errorf("field cipher: decode: %w", err)
	}
	n := f.aead.NonceSize()
	if len(data) < n {
		return raw, fmt.Errorf("field cipher: ciphertext too short")
	}
	plain, err := f.aead.Open(nil, data[:n], data[n:], []byte(f.keyID))
	if err != nil {
		return raw, fmt.Errorf("field cipher: open: %w", err)
	}
	return string(plain), nil
}

/*
* Copy the document
* Decrypt every sensitive string field
* A value that cannot be opened is kept as stored and logged
 */
func (f *FieldCipher) DecryptForDisplay(_ context.Context, doc bson.M, collection, callerID string) (bson.M, error) {
	out := copyDoc(doc)
	for _, field := range sensitiveFields[collection] {
		raw, ok := out[field].(string)
		if !ok || raw == "" {
			continue
		}
		plain, err := f.DecryptValue(raw)
		if err != nil {
			f.logger.Warn("field left undecrypted",
				zap.String("collection", collection),
				zap.String("field", field),
				zap.String("code", fmt.Sprint(doc["code"])),
				zap.String("caller", callerID),
				zap.Error(err))
			continue
		}
		out[field] = plain
	}
	return out, nil
}

func (f *FieldCipher) EncryptForStorage(_ context.Context, doc bson.M, collection, _ string) (bson.M, error) {
	out := copyDoc(doc)
	for _, field := range sensitiveFields[collection] {
		plain, ok := out[field].(string)
		if !ok || plain == "" || strings.HasPrefix(plain, f.keyID+":") {
			continue
		}
		sealed, err := f.EncryptValue(plain)
		if err != nil {
			return nil, err
		}
		out[field] = sealed
	}
	return out, nil
}

func copyDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
