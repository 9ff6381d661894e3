package fhevm

import "fmt"

// Adapter error kinds. Codes are stable; append new kinds, never reuse one.
// Code 7 is retired.
var (
	// ErrKeyMaterialUnavailable: the key metadata or one of the key blobs
	// could not be obtained.
	ErrKeyMaterialUnavailable = Error{Code: 1, Err: fmt.Errorf("key material unavailable")}
	// ErrInvalidPlaintextValue: a value does not fit in 32 bits, or there is
	// nothing to encrypt.
	ErrInvalidPlaintextValue = Error{Code: 2, Err: fmt.Errorf("invalid plaintext value")}
	// ErrEncryptionFailed: the library or the input verifier failed to
	// produce handles and proof.
	ErrEncryptionFailed = Error{Code: 3, Err: fmt.Errorf("encryption failed")}
	// ErrUserRejectedSignature: the wallet did not sign the decryption
	// request. This is a user decision, not a system failure.
	ErrUserRejectedSignature = Error{Code: 4, Err: fmt.Errorf("user rejected signature")}
	// ErrDecryptionServiceError: the user decryption call failed.
	ErrDecryptionServiceError = Error{Code: 5, Err: fmt.Errorf("decryption service error")}
	// ErrMissingResult: a strict projection found a handle without value.
	ErrMissingResult = Error{Code: 6, Err: fmt.Errorf("missing decryption result")}
)
