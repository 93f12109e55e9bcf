package oath

import (
	"context"
	"fmt"

	"github.com/rexliu/otpbridge/pkg/ipc"
)

// CredentialSource is what the engine needs from an opened store: the
// stored credentials in enumeration order, and persistence for HOTP counter
// advances.
type CredentialSource interface {
	List(ctx context.Context) ([]Credential, error)
	SetCounter(ctx context.Context, id string, counter uint64) error
}

// Engine implements the bridge's credential engine over any store exposing
// CredentialSource.
type Engine struct{}

// ListAccounts enumerates account names in store order.
func (Engine) ListAccounts(ctx context.Context, store ipc.Store) ([]string, error) {
	src, err := source(store)
	if err != nil {
		return nil, err
	}
	creds, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(creds))
	for i, cred := range creds {
		names[i] = cred.Name
	}
	return names, nil
}

// CalculateFuzzy computes the code for the single credential matching term.
// HOTP credentials advance their counter on success, so a served code is
// never reissued.
func (Engine) CalculateFuzzy(ctx context.Context, store ipc.Store, term string, timestamp int64) (uint32, error) {
	src, err := source(store)
	if err != nil {
		return 0, err
	}
	creds, err := src.List(ctx)
	if err != nil {
		return 0, err
	}
	cred, err := Match(creds, term)
	if err != nil {
		return 0, err
	}
	code, err := cred.CodeAt(timestamp)
	if err != nil {
		return 0, err
	}
	if cred.Type == TypeHOTP {
		if err := src.SetCounter(ctx, cred.ID, cred.Counter+1); err != nil {
			return 0, fmt.Errorf("advance counter for %q: %w", cred.Name, err)
		}
	}
	return code, nil
}

func source(store ipc.Store) (CredentialSource, error) {
	src, ok := store.(CredentialSource)
	if !ok {
		return nil, fmt.Errorf("store %T does not expose credentials", store)
	}
	return src, nil
}
