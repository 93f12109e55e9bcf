package ipc

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Request discriminator values, matching the "type" field on the wire.
const (
	TypeAccountList = "AccountList"
	TypeCode        = "Code"
)

// Request is the inbound message. Account carries the search term for Code
// requests and is empty for AccountList.
type Request struct {
	Type    string
	Account string
}

type requestEnvelope struct {
	Type    string  `json:"type"`
	Account *string `json:"account"`
}

// DecodeRequest parses exactly one JSON request from payload. Unknown extra
// fields are tolerated; malformed JSON, non-UTF-8 input, wrong field types,
// a missing account on Code, an unknown discriminator, and leading or
// trailing bytes all map to ErrRead without further distinction.
func DecodeRequest(payload []byte) (Request, error) {
	if !utf8.Valid(payload) {
		return Request{}, fmt.Errorf("%w: request is not valid utf-8", ErrRead)
	}
	// json.Unmarshal rejects any non-whitespace bytes outside the single
	// JSON value, which json.Decoder's More() does not.
	var env requestEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Request{}, fmt.Errorf("%w: decode request: %v", ErrRead, err)
	}
	switch env.Type {
	case TypeAccountList:
		return Request{Type: TypeAccountList}, nil
	case TypeCode:
		if env.Account == nil {
			return Request{}, fmt.Errorf("%w: account required for Code request", ErrRead)
		}
		return Request{Type: TypeCode, Account: *env.Account}, nil
	default:
		return Request{}, fmt.Errorf("%w: unknown request type %q", ErrRead, env.Type)
	}
}

// Response is the outbound message. There is no discriminator on the wire;
// each variant marshals to its own field shape.
type Response interface {
	isResponse()
}

// CodeResponse answers a Code request with a rendered OTP.
type CodeResponse struct {
	Account string `json:"account"`
	Code    string `json:"code"`
}

// AccountListResponse answers an AccountList request. Accounts keeps the
// store's enumeration order; no dedup or sort happens here.
type AccountListResponse struct {
	Accounts []string `json:"accounts"`
}

// ErrorResponse reports a failed dispatch. The text is a debug rendering of
// the underlying failure, not a stable machine-readable code.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (CodeResponse) isResponse()        {}
func (AccountListResponse) isResponse() {}
func (ErrorResponse) isResponse()       {}

// EncodeResponse renders resp as compact JSON. A nil account slice encodes
// as an empty array, never null.
func EncodeResponse(resp Response) ([]byte, error) {
	if list, ok := resp.(AccountListResponse); ok && list.Accounts == nil {
		list.Accounts = []string{}
		resp = list
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: encode response: %v", ErrWrite, err)
	}
	return payload, nil
}
