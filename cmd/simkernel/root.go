package main

import (
	"net/http"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gidden/cyclus/pkg/exchange"
	"github.com/gidden/cyclus/pkg/facility"
	"github.com/gidden/cyclus/pkg/kernel"
	"github.com/gidden/cyclus/pkg/monitor"
	"github.com/gidden/cyclus/pkg/persist"
	"github.com/gidden/cyclus/pkg/resource"
	"github.com/gidden/cyclus/pkg/telemetry"
	"github.com/gidden/cyclus/pkg/transport"
)

var (
	configPath  string
	logLevel    string
	monitorAddr string
	zmqPubAddr  string
	natsURL     string
)

// rootCmd is the base command for the simulation kernel CLI.
var rootCmd = &cobra.Command{
	Use:   "simkernel",
	Short: "Time-stepped fuel-cycle simulation kernel",
}

// runCmd loads a YAML topology, wires up the demo facilities and
// exchange managers it describes, and runs the simulation to
// completion.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation kernel against a YAML topology",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)

		cfg, err := loadTopology(configPath)
		if err != nil {
			return err
		}

		ids := exchange.NewIDGen()
		registry := make(map[string]*exchange.Manager[resource.Generic])
		for _, kind := range cfg.Kinds {
			registry[kind] = exchange.NewManager[resource.Generic](ids, exchange.NewGreedySolver())
		}

		facilities := make([]*facility.Facility, 0, len(cfg.Facilities))
		for _, fc := range cfg.Facilities {
			fac := facility.New(fc.toConfig(), ids)
			mgr, ok := registry[fac.Kind()]
			if !ok {
				logrus.Fatalf("facility %d declares unknown resource kind %q", fac.ID(), fac.Kind())
			}
			mgr.Register(fac)
			facilities = append(facilities, fac)
		}

		reg := prometheus.NewRegistry()
		metrics := telemetry.NewMetrics("simkernel", reg)

		sink, err := buildSink()
		if err != nil {
			return err
		}
		if closer, ok := sink.(interface{ Close() }); ok {
			defer closer.Close()
		}

		rounds := make([]exchange.Round, 0, len(cfg.Kinds))
		for _, kind := range cfg.Kinds {
			rounds = append(rounds, exchange.NewRound(kind, registry[kind]))
		}

		onBuild := func(fac *facility.Facility) {
			mgr, ok := registry[fac.Kind()]
			if !ok {
				logrus.Fatalf("scheduled-build facility %d declares unknown resource kind %q", fac.ID(), fac.Kind())
			}
			mgr.Register(fac)
		}
		proto := facility.NewProtoRegistry(ids, onBuild)
		for _, sb := range cfg.ScheduledBuilds {
			proto.Register(sb.Proto, sb.Facility.toConfig())
		}

		timer := kernel.NewTimer(proto, rounds, sink, metrics)

		if monitorAddr != "" {
			mon := monitor.NewServer()
			timer.AddObserver(mon)
			mux := http.NewServeMux()
			mux.Handle("/ws", mon)
			go func() {
				if err := http.ListenAndServe(monitorAddr, mux); err != nil {
					logrus.WithError(err).Warn("simkernel: monitor server stopped")
				}
			}()
		}

		if zmqPubAddr != "" {
			pub, err := transport.NewPublisher(zmqPubAddr)
			if err != nil {
				return err
			}
			defer pub.Close()
			timer.AddObserver(pub)
		}

		if err := timer.Initialize(cfg.Sim.toSimInfo()); err != nil {
			return err
		}
		for _, fac := range facilities {
			timer.RegisterTimeListener(fac)
		}
		for _, sb := range cfg.ScheduledBuilds {
			if err := timer.SchedBuild(nil, sb.Proto, sb.Time); err != nil {
				return err
			}
		}

		if err := timer.RunSim(); err != nil {
			return err
		}

		reportFacilities(facilities)
		return nil
	},
}

func buildSink() (persist.Sink, error) {
	if natsURL == "" {
		return persist.NewMemorySink(), nil
	}
	return persist.NewNATSSink(natsURL)
}

func reportFacilities(facilities []*facility.Facility) {
	sort.Slice(facilities, func(i, j int) bool { return facilities[i].ID() < facilities[j].ID() })
	for _, fac := range facilities {
		logrus.WithFields(logrus.Fields{
			"facility": fac.ID(),
			"trades":   fac.TradesSettled,
			"qty":      fac.QtyTraded,
		}).Info("simkernel: facility summary")
	}
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML simulation topology (required)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&monitorAddr, "monitor-addr", "", "if set, serve the websocket live monitor at this address")
	runCmd.Flags().StringVar(&zmqPubAddr, "zmq-pub-addr", "", "if set, publish phase transitions over ZeroMQ PUB at this address")
	runCmd.Flags().StringVar(&natsURL, "nats-url", "", "if set, record Datum rows to this NATS server instead of in-memory")
	runCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(runCmd)
}
