package larch

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/internal/node"
	"github.com/larch-cluster/larch/transport"
)

// Open starts a discovery node listening on addr and probing hosts each
// round. The returned handle serves inbound probes immediately and runs
// outbound rounds on demand until closed.
func Open(addr Address, hosts []string, opts ...Option) (Discovery, error) {
	o := newOptions(addr, hosts, opts...)

	if o.addr == "" {
		return nil, errors.New("listen address required")
	}

	ctx, stop := context.WithCancel(o.ctx)

	hs := transport.Handshake{From: o.addr, Cluster: o.cluster, Version: o.span}
	if err := o.transport.Configure(ctx, o.addr, hs); err != nil {
		stop()
		return nil, err
	}
	o.discovery.Transport = o.transport.Discovery()

	if o.provider == nil {
		o.provider = discovery.Static(node.Node{
			ID:         o.nodeID,
			Name:       o.nodeName,
			Address:    o.addr,
			Roles:      o.roles,
			Attributes: o.attributes,
			Version:    o.span.Current,
		}, o.state)
	}
	o.discovery.Provider = o.provider

	d, err := discovery.New(o.discovery)
	if err != nil {
		stop()
		return nil, err
	}

	o.logger.Info("discovery node open",
		zap.String("node", string(o.nodeID)),
		zap.Stringer("address", o.addr),
		zap.String("cluster", string(o.cluster)),
		zap.Stringer("version", o.span),
		zap.Int("hosts", len(o.hosts)),
	)
	return &disc{Discovery: d, stop: stop}, nil
}

// disc couples the engine with the transport lifecycle it runs on.
type disc struct {
	*discovery.Discovery
	stop context.CancelFunc
}

// Close implements Discovery.
func (d *disc) Close() error {
	err := d.Discovery.Close()
	d.stop()
	return err
}
