package domain

import (
	"encoding/json"
	"fmt"
)

// EncryptedRecord is the stored form of an encrypted credential.
//
// Version identifies which keyring entry produced the ciphertext so
// decryption knows which key to try first. The nonce is generated fresh on
// every encryption, even for identical plaintext; two encryptions of the
// same value must never produce the same record.
//
// The JSON wire shape is {"version": <int>, "data": <base64>, "iv": <base64>}
// and is what gets persisted as the key-value store entry.
type EncryptedRecord struct {
	Version    int    `json:"version"`
	Ciphertext []byte `json:"data"`
	Nonce      []byte `json:"iv"`
}

// Marshal serializes the record to its JSON wire shape.
func (r *EncryptedRecord) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal encrypted record: %w", err)
	}
	return data, nil
}

// UnmarshalEncryptedRecord parses a stored JSON value into an EncryptedRecord.
func UnmarshalEncryptedRecord(data []byte) (*EncryptedRecord, error) {
	var record EncryptedRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal encrypted record: %w", err)
	}
	return &record, nil
}
