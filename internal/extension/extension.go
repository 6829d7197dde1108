// Package extension provides an optional out-of-process scoring extension
// mechanism, adapted from the teacher's hashicorp/go-plugin RPC protocol
// (internal/plugin/protocol, internal/plugin/executor) and trimmed to a
// single RPC method: a host may register extension processes that
// contribute an additional named soft-scoring component without the engine
// itself knowing how it is computed. This is a supplemental enrichment
// beyond the literal spec text (SPEC_FULL.md §11) — the engine runs
// correctly with zero extensions registered.
package extension

import (
	"context"
	"fmt"
	"net/rpc"
	"os/exec"

	goplug "github.com/hashicorp/go-plugin"

	"github.com/outfitforge/bundleengine/internal/model"
)

// Handshake is the go-plugin handshake both host and extension process must
// agree on before RPC begins, mirroring protocol.Handshake's magic-cookie
// gate.
var Handshake = goplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "BUNDLEENGINE_EXTENSION",
	MagicCookieValue: "bundleengine_scoring_extension",
}

// Request is what the host sends an extension process to score.
type Request struct {
	Items   []model.Item  `json:"items"`
	Profile model.Profile `json:"profile"`
	Context model.Context `json:"context"`
}

// Response is the extension's scored contribution.
type Response struct {
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// ScoringExtension is the interface an out-of-process extension implements.
type ScoringExtension interface {
	Score(ctx context.Context, req Request) (Response, error)
	Name() string
}

// RPCPlugin adapts a ScoringExtension to go-plugin's Plugin interface for
// net/rpc transport, mirroring protocol.InputPluginRPC.
type RPCPlugin struct {
	Impl ScoringExtension
}

func (p *RPCPlugin) Server(*goplug.MuxBroker) (interface{}, error) {
	return &rpcServer{impl: p.Impl}, nil
}

func (p *RPCPlugin) Client(b *goplug.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcClient{client: c}, nil
}

type rpcServer struct {
	impl ScoringExtension
}

func (s *rpcServer) Score(req Request, resp *Response) error {
	out, err := s.impl.Score(context.Background(), req)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

type rpcClient struct {
	client *rpc.Client
}

func (c *rpcClient) Score(ctx context.Context, req Request) (Response, error) {
	var resp Response
	if err := c.client.Call("Plugin.Score", req, &resp); err != nil {
		return Response{}, fmt.Errorf("extension: rpc call failed: %w", err)
	}
	return resp, nil
}

func (c *rpcClient) Name() string { return "remote" }

// Host launches and manages extension subprocesses declared by the ruleset
// operator. Extensions are optional; a host with none configured never
// touches go-plugin at all.
type Host struct {
	clients map[string]*goplug.Client
}

// NewHost creates an empty extension host.
func NewHost() *Host {
	return &Host{clients: make(map[string]*goplug.Client)}
}

// Register launches an extension binary at path and holds the connection
// open under name until Close is called.
func (h *Host) Register(name, path string) (ScoringExtension, error) {
	client := goplug.NewClient(&goplug.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplug.Plugin{
			name: &RPCPlugin{},
		},
		Cmd: exec.Command(path), // #nosec G204 - path is operator-configured extension binary
	})

	rpcClientConn, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("extension: connect to %s: %w", name, err)
	}

	raw, err := rpcClientConn.Dispense(name)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("extension: dispense %s: %w", name, err)
	}

	ext, ok := raw.(ScoringExtension)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("extension: %s does not implement ScoringExtension", name)
	}

	h.clients[name] = client
	return ext, nil
}

// Close terminates every registered extension process.
func (h *Host) Close() {
	for _, c := range h.clients {
		c.Kill()
	}
	h.clients = make(map[string]*goplug.Client)
}
