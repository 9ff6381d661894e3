//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403 or 404, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 4010, 4011 and 4013 exist, 4012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound      = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody         = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature      = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedHex          = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed hex value")}
	ErrInvalidChainID        = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("chain not served by this relayer")}
	ErrMalformedCiphertext   = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed ciphertext list")}
	ErrInputBindingMismatch  = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("input is bound to another contract, user or chain")}
	ErrPlaintextOutOfRange   = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("encrypted value out of range")}
	ErrInvalidValidityWindow = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid request validity")}
	ErrRequestExpired        = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("request validity window does not include the current time")}
	ErrContractNotAllowed    = Error{Code: 40015, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("contract not allowed for this handle")}
	ErrHandleNotFound        = Error{Code: 40016, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("handle not found")}
	ErrKeyNotFound           = Error{Code: 40017, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("key not found")}
	ErrNoHandles             = Error{Code: 40018, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no handles provided")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrKeyMaterialUnavailable     = Error{Code: 50003, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("key material unavailable")}
	ErrDecryptionFailed           = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("decryption failed")}
)
