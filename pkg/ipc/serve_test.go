package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	closed int
}

func (s *fakeStore) Close() error {
	s.closed++
	return nil
}

type fakeOpener struct {
	store *fakeStore
	err   error
	opens int
}

func (o *fakeOpener) Open(ctx context.Context) (Store, error) {
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	return o.store, nil
}

type fakeEngine struct {
	accounts []string
	code     uint32
	err      error
	gotTerm  string
	gotTime  int64
}

func (e *fakeEngine) ListAccounts(ctx context.Context, store Store) ([]string, error) {
	return e.accounts, e.err
}

func (e *fakeEngine) CalculateFuzzy(ctx context.Context, store Store, term string, timestamp int64) (uint32, error) {
	e.gotTerm = term
	e.gotTime = timestamp
	return e.code, e.err
}

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

func newHandler(opener *fakeOpener, engine *fakeEngine) *Handler {
	return &Handler{
		Opener: opener,
		Engine: engine,
		Clock:  fixedClock{at: time.Unix(1111111109, 0)},
		Logger: zerolog.Nop(),
	}
}

func serveOnce(t *testing.T, h *Handler, request string) (*bytes.Buffer, error) {
	t.Helper()
	var in, out bytes.Buffer
	if err := WriteFrame(&in, []byte(request)); err != nil {
		t.Fatalf("frame request: %v", err)
	}
	err := h.Serve(context.Background(), &in, &out)
	return &out, err
}

func TestServeAccountList(t *testing.T) {
	opener := &fakeOpener{store: &fakeStore{}}
	engine := &fakeEngine{accounts: []string{"a@x.com", "b@y.com"}}
	out, err := serveOnce(t, newHandler(opener, engine), `{"type":"AccountList"}`)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	payload, err := ReadFrame(out)
	if err != nil {
		t.Fatalf("read response frame: %v", err)
	}
	if string(payload) != `{"accounts":["a@x.com","b@y.com"]}` {
		t.Fatalf("unexpected response %s", payload)
	}
	if opener.store.closed != 1 {
		t.Fatalf("store closed %d times", opener.store.closed)
	}
}

func TestServeCode(t *testing.T) {
	opener := &fakeOpener{store: &fakeStore{}}
	engine := &fakeEngine{code: 6}
	out, err := serveOnce(t, newHandler(opener, engine), `{"type":"Code","account":"rust-lang.org"}`)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	payload, err := ReadFrame(out)
	if err != nil {
		t.Fatalf("read response frame: %v", err)
	}
	if string(payload) != `{"account":"rust-lang.org","code":"000006"}` {
		t.Fatalf("unexpected response %s", payload)
	}
	if engine.gotTerm != "rust-lang.org" {
		t.Fatalf("engine saw term %q", engine.gotTerm)
	}
	if engine.gotTime != 1111111109 {
		t.Fatalf("engine saw timestamp %d", engine.gotTime)
	}
	if opener.store.closed != 1 {
		t.Fatalf("store closed %d times", opener.store.closed)
	}
}

func TestServeStoreFailureBecomesErrorResponse(t *testing.T) {
	for _, request := range []string{
		`{"type":"AccountList"}`,
		`{"type":"Code","account":"x"}`,
	} {
		opener := &fakeOpener{err: errors.New("device absent")}
		out, err := serveOnce(t, newHandler(opener, &fakeEngine{}), request)
		if err != nil {
			t.Fatalf("serve %s: %v", request, err)
		}
		payload, err := ReadFrame(out)
		if err != nil {
			t.Fatalf("read response frame: %v", err)
		}
		var body map[string]json.RawMessage
		if err := json.Unmarshal(payload, &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if _, ok := body["error"]; !ok {
			t.Fatalf("response %s missing error field", payload)
		}
		if len(body) != 1 {
			t.Fatalf("error response carries extra fields: %s", payload)
		}
	}
}

func TestServeEngineFailureClosesStore(t *testing.T) {
	opener := &fakeOpener{store: &fakeStore{}}
	engine := &fakeEngine{err: errors.New("no matching credential")}
	out, err := serveOnce(t, newHandler(opener, engine), `{"type":"Code","account":"nope"}`)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	payload, err := ReadFrame(out)
	if err != nil {
		t.Fatalf("read response frame: %v", err)
	}
	if string(payload) != `{"error":"no matching credential"}` {
		t.Fatalf("unexpected response %s", payload)
	}
	if opener.store.closed != 1 {
		t.Fatalf("store closed %d times", opener.store.closed)
	}
}

func TestServeTruncatedFrameProducesNoOutput(t *testing.T) {
	opener := &fakeOpener{store: &fakeStore{}}
	h := newHandler(opener, &fakeEngine{})
	// prefix declares 27 bytes, only 10 follow
	in := bytes.NewBuffer(append([]byte{0x1B, 0x00, 0x00, 0x00}, []byte("0123456789")...))
	var out bytes.Buffer
	err := h.Serve(context.Background(), in, &out)
	if !errors.Is(err, ErrRead) {
		t.Fatalf("expected ErrRead, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("output frame produced on protocol fault: %x", out.Bytes())
	}
	if opener.opens != 0 {
		t.Fatal("store opened before a valid request existed")
	}
}

func TestServeUndecodableRequestProducesNoOutput(t *testing.T) {
	opener := &fakeOpener{store: &fakeStore{}}
	h := newHandler(opener, &fakeEngine{})
	out, err := serveOnce(t, h, `{"type":"Reboot"}`)
	if !errors.Is(err, ErrRead) {
		t.Fatalf("expected ErrRead, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("output frame produced on decode fault: %x", out.Bytes())
	}
	if opener.opens != 0 {
		t.Fatal("store opened before a valid request existed")
	}
}
