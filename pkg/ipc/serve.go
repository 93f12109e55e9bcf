package ipc

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Store is an opened handle to a credential source. The dispatcher treats
// it as opaque and only guarantees acquire-use-release within one dispatch.
type Store interface {
	io.Closer
}

// StoreOpener initializes the credential source for a single dispatch.
type StoreOpener interface {
	Open(ctx context.Context) (Store, error)
}

// Engine resolves accounts and codes against an opened store.
type Engine interface {
	// ListAccounts enumerates credential account names in store order.
	ListAccounts(ctx context.Context, store Store) ([]string, error)
	// CalculateFuzzy computes the numeric code for the credential matching
	// term at the given Unix timestamp. Tie-break policy is the engine's.
	CalculateFuzzy(ctx context.Context, store Store, term string, timestamp int64) (uint32, error)
}

// Clock supplies the timestamp used for code computation.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Handler dispatches one decoded request against the credential
// collaborators. It holds no state between invocations.
type Handler struct {
	Opener StoreOpener
	Engine Engine
	Clock  Clock
	Logger zerolog.Logger
}

// Serve handles exactly one framed request from r and writes exactly one
// framed response to w. Frame and decode failures are returned to the
// caller before any response exists; collaborator failures are absorbed
// into an error response body, so once a request decodes the peer always
// receives a frame unless the write itself fails.
func (h *Handler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	payload, err := ReadFrame(r)
	if err != nil {
		return err
	}
	req, err := DecodeRequest(payload)
	if err != nil {
		return err
	}
	out, err := EncodeResponse(h.Handle(ctx, req))
	if err != nil {
		return err
	}
	return WriteFrame(w, out)
}

// Handle maps a request to its response. It never fails: every collaborator
// error becomes an ErrorResponse.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	switch req.Type {
	case TypeCode:
		return h.readCode(ctx, req.Account)
	case TypeAccountList:
		return h.readAccountList(ctx)
	default:
		// DecodeRequest only produces known types.
		return ErrorResponse{Error: fmt.Sprintf("unknown request type %q", req.Type)}
	}
}

func (h *Handler) readAccountList(ctx context.Context) Response {
	store, err := h.Opener.Open(ctx)
	if err != nil {
		h.Logger.Error().Err(err).Msg("store initialization failed")
		return ErrorResponse{Error: err.Error()}
	}
	defer store.Close()
	accounts, err := h.Engine.ListAccounts(ctx, store)
	if err != nil {
		h.Logger.Error().Err(err).Msg("account listing failed")
		return ErrorResponse{Error: err.Error()}
	}
	h.Logger.Debug().Int("accounts", len(accounts)).Msg("account list resolved")
	return AccountListResponse{Accounts: accounts}
}

func (h *Handler) readCode(ctx context.Context, term string) Response {
	timestamp := h.Clock.Now().Unix()
	store, err := h.Opener.Open(ctx)
	if err != nil {
		h.Logger.Error().Err(err).Msg("store initialization failed")
		return ErrorResponse{Error: err.Error()}
	}
	defer store.Close()
	code, err := h.Engine.CalculateFuzzy(ctx, store, term, timestamp)
	if err != nil {
		h.Logger.Error().Err(err).Str("term", term).Msg("code computation failed")
		return ErrorResponse{Error: err.Error()}
	}
	return CodeResponse{Account: term, Code: fmt.Sprintf("%06d", code)}
}
