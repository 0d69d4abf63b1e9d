package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gidden/cyclus/pkg/facility"
	"github.com/gidden/cyclus/pkg/kernel"
)

// simInfoConfig mirrors kernel.SimInfo field-for-field with YAML tags;
// kept distinct from kernel.SimInfo so the kernel package carries no
// serialization-format opinion.
type simInfoConfig struct {
	Duration   int `yaml:"duration"`
	M0         int `yaml:"m0"`
	BranchTime int `yaml:"branch_time"`
}

func (c simInfoConfig) toSimInfo() kernel.SimInfo {
	return kernel.SimInfo{Duration: c.Duration, M0: c.M0, BranchTime: c.BranchTime}
}

// facilityConfig is the YAML-facing twin of facility.Config.
type facilityConfig struct {
	ID         int     `yaml:"id"`
	Role       string  `yaml:"role"`
	Kind       string  `yaml:"kind"`
	Commodity  string  `yaml:"commodity"`
	Quantity   float64 `yaml:"quantity"`
	Capacity   float64 `yaml:"capacity"`
	Preference float64 `yaml:"preference"`
}

func (c facilityConfig) toConfig() facility.Config {
	return facility.Config{
		ID:         c.ID,
		Role:       facility.Role(c.Role),
		Kind:       c.Kind,
		Commodity:  c.Commodity,
		Quantity:   c.Quantity,
		Capacity:   c.Capacity,
		Preference: c.Preference,
	}
}

// scheduledBuildConfig describes a facility that comes online mid-run
// via Timer.SchedBuild rather than being registered up front.
type scheduledBuildConfig struct {
	Proto    string         `yaml:"proto"`
	Time     int            `yaml:"time"`
	Facility facilityConfig `yaml:"facility"`
}

// topologyConfig is the full demo YAML document: simulation
// parameters plus a small topology of traders and the resource kinds
// they trade under.
type topologyConfig struct {
	LogLevel        string                 `yaml:"log_level"`
	MonitorAddr     string                 `yaml:"monitor_addr"`
	ZMQPubAddr      string                 `yaml:"zmq_pub_addr"`
	Sim             simInfoConfig          `yaml:"sim"`
	Kinds           []string               `yaml:"kinds"`
	Facilities      []facilityConfig       `yaml:"facilities"`
	ScheduledBuilds []scheduledBuildConfig `yaml:"scheduled_builds"`
}

func loadTopology(path string) (*topologyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg topologyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
