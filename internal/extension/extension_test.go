package extension

import (
	"context"
	"net"
	"net/rpc"
	"testing"

	"github.com/outfitforge/bundleengine/internal/model"
)

func TestHandshakeConfig(t *testing.T) {
	if Handshake.MagicCookieKey != "BUNDLEENGINE_EXTENSION" {
		t.Errorf("MagicCookieKey = %q, want BUNDLEENGINE_EXTENSION", Handshake.MagicCookieKey)
	}
	if Handshake.MagicCookieValue == "" {
		t.Error("MagicCookieValue is empty, want a non-empty magic cookie")
	}
}

func TestNewHostStartsEmpty(t *testing.T) {
	h := NewHost()
	if len(h.clients) != 0 {
		t.Fatalf("len(h.clients) = %d, want 0 for a freshly created host", len(h.clients))
	}
	h.Close() // must not panic with nothing registered
}

// fakeExtension is an in-process ScoringExtension used to drive the RPC
// server/client pair over net.Pipe, without spawning a real subprocess.
type fakeExtension struct{}

func (fakeExtension) Name() string { return "fake" }

func (fakeExtension) Score(_ context.Context, req Request) (Response, error) {
	return Response{
		Score:       0.75,
		Confidence:  1,
		Explanation: "fake extension scored " + string(rune(len(req.Items))+'0') + " item(s)",
	}, nil
}

func TestRPCPluginRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	plugin := &RPCPlugin{Impl: fakeExtension{}}
	handler, err := plugin.Server(nil)
	if err != nil {
		t.Fatalf("Server() error = %v", err)
	}

	srv := rpc.NewServer()
	if err := srv.RegisterName("Plugin", handler); err != nil {
		t.Fatalf("RegisterName() error = %v", err)
	}
	go srv.ServeConn(serverConn)

	client := rpc.NewClient(clientConn)
	defer client.Close()
	rc := &rpcClient{client: client}

	resp, err := rc.Score(context.Background(), Request{
		Items: []model.Item{{ItemID: "a"}, {ItemID: "b"}},
	})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if resp.Score != 0.75 {
		t.Errorf("Score = %v, want 0.75", resp.Score)
	}
	if rc.Name() != "remote" {
		t.Errorf("Name() = %q, want remote", rc.Name())
	}
}
