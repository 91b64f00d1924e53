// Package grpc provides the gRPC transport for discovery. Messages travel
// as JSON over a hand-rolled service descriptor, and the channel handshake
// rides in call metadata.
package grpc

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/internal/version"
	"github.com/larch-cluster/larch/transport"
)

// |||||| CODEC ||||||

// Name is the codec every connection negotiates through the call
// content-subtype.
const Name = "json"

type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (codec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (codec) Name() string { return Name }

func init() { encoding.RegisterCodec(codec{}) }

// |||||| POOL ||||||

// pool maintains at most one client connection per target address.
type pool struct {
	dials singleflight.Group
	mu    sync.Mutex
	conns map[address.Address]*grpc.ClientConn
	fresh map[address.Address]bool
}

func newPool() *pool {
	return &pool{
		conns: make(map[address.Address]*grpc.ClientConn),
		fresh: make(map[address.Address]bool),
	}
}

// acquire returns the connection to target, dialing one if none exists.
// opened reports a fresh establishment to exactly one caller, so concurrent
// acquires of the same target never double-count the event.
func (p *pool) acquire(ctx context.Context, target address.Address) (*grpc.ClientConn, bool, error) {
	p.mu.Lock()
	if c, ok := p.conns[target]; ok {
		p.mu.Unlock()
		return c, false, nil
	}
	p.mu.Unlock()
	v, err, _ := p.dials.Do(string(target), func() (interface{}, error) {
		p.mu.Lock()
		if c, ok := p.conns[target]; ok {
			p.mu.Unlock()
			return c, nil
		}
		p.mu.Unlock()
		c, err := grpc.DialContext(ctx, string(target),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithBlock(),
			grpc.WithDefaultCallOptions(grpc.CallContentSubtype(Name)),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to dial %s", target)
		}
		p.mu.Lock()
		p.conns[target] = c
		p.fresh[target] = true
		p.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, false, err
	}
	p.mu.Lock()
	opened := p.fresh[target]
	delete(p.fresh, target)
	p.mu.Unlock()
	return v.(*grpc.ClientConn), opened, nil
}

func (p *pool) drop(target address.Address) error {
	p.mu.Lock()
	c, ok := p.conns[target]
	delete(p.conns, target)
	delete(p.fresh, target)
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return c.Close()
}

func (p *pool) connected(target address.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.conns[target]
	return ok
}

// |||||| HANDSHAKE ||||||

const (
	mdCluster        = "larch-cluster"
	mdFrom           = "larch-from"
	mdVersionCurrent = "larch-version-current"
	mdVersionMinimum = "larch-version-minimum"
)

func attachHandshake(ctx context.Context, hs transport.Handshake) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		mdCluster, string(hs.Cluster),
		mdFrom, string(hs.From),
		mdVersionCurrent, hs.Version.Current.String(),
		mdVersionMinimum, hs.Version.Minimum.String(),
	)
}

func handshakeFromContext(ctx context.Context) (transport.Handshake, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return transport.Handshake{}, errors.New("missing handshake metadata")
	}
	get := func(key string) string {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
		return ""
	}
	current, err := version.Parse(get(mdVersionCurrent))
	if err != nil {
		return transport.Handshake{}, errors.Wrap(err, "malformed handshake version")
	}
	minimum, err := version.Parse(get(mdVersionMinimum))
	if err != nil {
		return transport.Handshake{}, errors.Wrap(err, "malformed handshake version")
	}
	return transport.Handshake{
		From:    address.Address(get(mdFrom)),
		Cluster: cluster.Name(get(mdCluster)),
		Version: version.Span{Current: current, Minimum: minimum},
	}, nil
}

// |||||| DISCOVERY ||||||

const (
	serviceName = "larch.discovery.v1.Discovery"
	pingMethod  = "/larch.discovery.v1.Discovery/Ping"
)

type core struct {
	*pool
}

func (c core) String() string { return "grpc" }

type discoveryTransport struct {
	core
	handshake transport.Handshake
	handler   transport.Handler[discovery.Request, discovery.Response]
}

func (t *discoveryTransport) Send(ctx context.Context, target address.Address, req discovery.Request) (discovery.Response, error) {
	conn, _, err := t.acquire(ctx, target)
	if err != nil {
		return discovery.Response{}, err
	}
	res := &discovery.Response{}
	if err := conn.Invoke(attachHandshake(ctx, t.handshake), pingMethod, &req, res); err != nil {
		return discovery.Response{}, err
	}
	return *res, nil
}

func (t *discoveryTransport) Handle(handler transport.Handler[discovery.Request, discovery.Response]) {
	t.handler = handler
}

func (t *discoveryTransport) Dial(ctx context.Context, target address.Address) (bool, error) {
	_, opened, err := t.acquire(ctx, target)
	return opened, err
}

func (t *discoveryTransport) Drop(target address.Address) error { return t.drop(target) }

func (t *discoveryTransport) Connected(target address.Address) bool { return t.connected(target) }

func (t *discoveryTransport) Ping(ctx context.Context, req *discovery.Request) (*discovery.Response, error) {
	if t.handler == nil {
		return nil, errors.New("unavailable")
	}
	hs, err := handshakeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	res, err := t.handler(ctx, hs, *req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type discoveryServer interface {
	Ping(context.Context, *discovery.Request) (*discovery.Response, error)
}

func pingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(discovery.Request)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(discoveryServer).Ping(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pingMethod}
	return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(discoveryServer).Ping(ctx, req.(*discovery.Request))
	})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*discoveryServer)(nil),
	Methods:     []grpc.MethodDesc{{MethodName: "Ping", Handler: pingHandler}},
	Streams:     []grpc.StreamDesc{},
	Metadata:    "larch/discovery/v1/discovery.proto",
}

// |||||| TRANSPORT ||||||

// New returns an unconfigured gRPC transport. Configure must be called
// before the transport serves or sends probes.
func New() *Transport {
	p := newPool()
	return &Transport{pool: p, discovery: &discoveryTransport{core: core{pool: p}}}
}

// Transport bundles the gRPC-backed discovery transport behind a single
// server lifecycle.
type Transport struct {
	pool      *pool
	discovery *discoveryTransport
}

// Discovery returns the discovery-facing side of the transport.
func (t *Transport) Discovery() discovery.Transport { return t.discovery }

// Configure stamps hs onto every outbound probe and starts serving inbound
// ones on addr's port. The server stops when ctx is cancelled.
func (t *Transport) Configure(ctx context.Context, addr address.Address, hs transport.Handshake) error {
	t.discovery.handshake = hs
	server := grpc.NewServer()
	server.RegisterService(&serviceDesc, t.discovery)
	lis, err := net.Listen("tcp", addr.PortString())
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		server.Stop()
	}()
	go func() { _ = server.Serve(lis) }()
	return nil
}
