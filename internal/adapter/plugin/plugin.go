// Package plugin implements adapter.Adapter by talking to an external
// binary over hashicorp/go-plugin's net/rpc transport, for generation
// backends that can't be driven as a one-shot CLI invocation (the
// subprocess package's model) or a typed hosted API client (the hosted
// package's model) — e.g. a long-lived local model server a team wants to
// swap in without recompiling orchestra itself.
package plugin

import (
	"context"
	"fmt"
	"net/rpc"
	"os/exec"
	"time"

	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/hectormr206/orchestra/internal/adapter"
)

// Handshake is the magic-cookie pair a plugin binary must echo back before
// go-plugin will dispense it, guarding against accidentally exec'ing an
// unrelated binary named in config.
var Handshake = hcplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ORCHESTRA_ADAPTER_PLUGIN",
	MagicCookieValue: "generate",
}

// GenerateArgs mirrors adapter.ExecuteRequest across the RPC boundary.
type GenerateArgs struct {
	Prompt     string
	OutputPath string
	WorkingDir string
}

// GenerateReply mirrors adapter.ExecuteResult across the RPC boundary.
// ErrorKind travels as a plain string since net/rpc gob-encodes args by
// value and adapter.ErrorKind is just a string alias.
type GenerateReply struct {
	Success   bool
	Text      string
	ErrorKind string
}

// Generator is the interface a plugin binary implements and exposes via
// hcplugin.Serve.
type Generator interface {
	Generate(args GenerateArgs) (GenerateReply, error)
}

type generatorRPCClient struct{ client *rpc.Client }

func (c *generatorRPCClient) Generate(args GenerateArgs) (GenerateReply, error) {
	var resp GenerateReply
	err := c.client.Call("Plugin.Generate", args, &resp)
	return resp, err
}

type generatorRPCServer struct{ Impl Generator }

func (s *generatorRPCServer) Generate(args GenerateArgs, resp *GenerateReply) error {
	r, err := s.Impl.Generate(args)
	*resp = r
	return err
}

// GeneratorPlugin wires generatorRPCClient/generatorRPCServer into
// go-plugin's Plugin interface. Pass a zero-value GeneratorPlugin{} on the
// host side; set Impl on the plugin binary's side.
type GeneratorPlugin struct {
	Impl Generator
}

func (p *GeneratorPlugin) Server(*hcplugin.MuxBroker) (interface{}, error) {
	return &generatorRPCServer{Impl: p.Impl}, nil
}

func (p *GeneratorPlugin) Client(b *hcplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &generatorRPCClient{client: c}, nil
}

// Config configures one plugin-backed adapter entry.
type Config struct {
	Name     string
	Model    string
	Provider string
	Command  string // path to the plugin binary
	Timeout  time.Duration
}

// Adapter is an adapter.Adapter backed by an out-of-process plugin binary,
// launched fresh and torn down on every Execute call — plugin processes
// here are treated the same way subprocess adapters treat CLI processes,
// not as a long-lived daemon the kernel manages across calls.
type Adapter struct {
	cfg Config
}

// New constructs a plugin adapter from cfg.
func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) Info() adapter.AdapterInfo {
	return adapter.AdapterInfo{Name: a.cfg.Name, Model: a.cfg.Model, Provider: a.cfg.Provider}
}

// IsAvailable checks whether the plugin binary exists on PATH.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	_, err := exec.LookPath(a.cfg.Command)
	return err == nil
}

// Execute launches the plugin, dispenses the Generator implementation,
// and calls Generate, honoring ctx cancellation by killing the plugin
// process early.
func (a *Adapter) Execute(ctx context.Context, req adapter.ExecuteRequest) (adapter.ExecuteResult, error) {
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if a.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          map[string]hcplugin.Plugin{"generator": &GeneratorPlugin{}},
		Cmd:              exec.Command(a.cfg.Command),
		AllowedProtocols: []hcplugin.Protocol{hcplugin.ProtocolNetRPC},
	})
	defer client.Kill()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-runCtx.Done():
			client.Kill()
		case <-done:
		}
	}()

	rpcClient, err := client.Client()
	if err != nil {
		return adapter.ExecuteResult{Duration: time.Since(start), ErrorKind: adapter.ErrorGeneric},
			fmt.Errorf("plugin: connect to %s: %w", a.cfg.Command, err)
	}

	raw, err := rpcClient.Dispense("generator")
	if err != nil {
		return adapter.ExecuteResult{Duration: time.Since(start), ErrorKind: adapter.ErrorGeneric},
			fmt.Errorf("plugin: dispense: %w", err)
	}
	gen, ok := raw.(Generator)
	if !ok {
		return adapter.ExecuteResult{Duration: time.Since(start), ErrorKind: adapter.ErrorGeneric},
			fmt.Errorf("plugin: %s does not implement Generator", a.cfg.Command)
	}

	reply, err := gen.Generate(GenerateArgs{
		Prompt:     req.Prompt,
		OutputPath: req.OutputPath,
		WorkingDir: req.WorkingDir,
	})
	duration := time.Since(start)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return adapter.ExecuteResult{Duration: duration, ErrorKind: adapter.ErrorTimeout}, nil
		}
		return adapter.ExecuteResult{Duration: duration, ErrorKind: adapter.ErrorGeneric},
			fmt.Errorf("plugin: generate: %w", err)
	}

	kind := adapter.ErrorKind(reply.ErrorKind)
	if kind == "" && !reply.Success {
		kind = adapter.ErrorGeneric
	}
	return adapter.ExecuteResult{
		Success:   reply.Success,
		Duration:  duration,
		Text:      reply.Text,
		ErrorKind: kind,
	}, nil
}
