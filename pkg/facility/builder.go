package facility

import (
	"github.com/gidden/cyclus/pkg/exchange"
	"github.com/gidden/cyclus/pkg/kernel"
)

// ProtoRegistry is a kernel.Builder backed by a fixed prototype->Config
// table, so a demo topology can schedule a facility to come online
// mid-run via Timer.SchedBuild without the kernel needing to know
// anything about facilities.
type ProtoRegistry struct {
	ids     *exchange.IDGen
	protos  map[string]Config
	onBuild func(*Facility)
}

// NewProtoRegistry returns an empty ProtoRegistry minting facility ids
// from ids. onBuild, if non-nil, is called with every facility built
// through this registry so the caller can register it with the
// appropriate exchange.Manager and kernel.Timer.
func NewProtoRegistry(ids *exchange.IDGen, onBuild func(*Facility)) *ProtoRegistry {
	return &ProtoRegistry{ids: ids, protos: make(map[string]Config), onBuild: onBuild}
}

// Register adds cfg under name so a later SchedBuild(parent, name, t)
// can construct it.
func (r *ProtoRegistry) Register(name string, cfg Config) {
	r.protos[name] = cfg
}

// BuildAgent implements kernel.Builder.
func (r *ProtoRegistry) BuildAgent(proto string) (kernel.Agent, error) {
	cfg, ok := r.protos[proto]
	if !ok {
		return nil, exchange.NewValueError("no registered prototype named %q", proto)
	}
	f := New(cfg, r.ids)
	if r.onBuild != nil {
		r.onBuild(f)
	}
	return f, nil
}
