package larch

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/larch-cluster/larch/internal/node"
	"github.com/larch-cluster/larch/transport/nng"
)

var validate = validator.New()

// Duration accepts Go duration strings ("250ms", "3s") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// FileConfig is the on-disk configuration for a discovery node.
type FileConfig struct {
	// Address the node binds and advertises to peers.
	Address string `yaml:"address" validate:"required,hostname_port"`
	// Cluster the node discovers peers in.
	Cluster string `yaml:"cluster"`
	// Hosts are the specifications probed each round, as host, host:port,
	// or host:lo-hi.
	Hosts []string `yaml:"hosts"`
	// NodeName overrides the name reported to peers.
	NodeName string `yaml:"node_name"`
	// Roles the node advertises.
	Roles []string `yaml:"roles" validate:"dive,oneof=data master ingest"`
	// Transport selects the wire implementation.
	Transport string `yaml:"transport" validate:"omitempty,oneof=grpc nng"`
	// PingTimeout is the default round timeout.
	PingTimeout Duration `yaml:"ping_timeout"`
	// ResolveTimeout bounds host-name resolution per round.
	ResolveTimeout Duration `yaml:"resolve_timeout"`
	// DefaultPort is assumed for host specifications without a port.
	DefaultPort int `yaml:"default_port" validate:"omitempty,min=1,max=65535"`
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates raw YAML configuration.
func ParseConfig(data []byte) (FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, errors.Wrap(err, "malformed configuration")
	}
	if err := validate.Struct(cfg); err != nil {
		return FileConfig{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Open starts a discovery node from the file configuration. opts apply on
// top of the file's settings.
func (cfg FileConfig) Open(opts ...Option) (Discovery, error) {
	base := make([]Option, 0, len(opts)+7)
	if cfg.Cluster != "" {
		base = append(base, WithClusterName(ClusterName(cfg.Cluster)))
	}
	if cfg.NodeName != "" {
		base = append(base, WithNodeName(cfg.NodeName))
	}
	if len(cfg.Roles) > 0 {
		roles, err := node.ParseRoles(cfg.Roles)
		if err != nil {
			return nil, err
		}
		base = append(base, WithRoles(roles))
	}
	if cfg.Transport == "nng" {
		base = append(base, WithTransport(nng.New()))
	}
	if cfg.PingTimeout != 0 {
		base = append(base, WithPingTimeout(time.Duration(cfg.PingTimeout)))
	}
	if cfg.ResolveTimeout != 0 {
		base = append(base, WithResolveTimeout(time.Duration(cfg.ResolveTimeout)))
	}
	if cfg.DefaultPort != 0 {
		base = append(base, WithDefaultPort(cfg.DefaultPort))
	}
	return Open(Address(cfg.Address), cfg.Hosts, append(base, opts...)...)
}
