// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command vep-bridge runs the actuator round-trip bridge pair: Bridge A
// couples the application-plane signal broker to the in-vehicle pub/sub
// fabric, Bridge B couples that fabric to the real-time side.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vehicleedge/telemetry-export/internal/bridge"
	"github.com/vehicleedge/telemetry-export/internal/config"
	"github.com/vehicleedge/telemetry-export/internal/fabric"
	"github.com/vehicleedge/telemetry-export/pkg/log"
)

func main() {
	var (
		flagConfigFile = flag.String("config", "./config.json", "Path to the configuration file")
		flagFabricAddr = flag.String("fabric", "nats://127.0.0.1:4222", "Address of the in-vehicle pub/sub fabric")
		flagBrokerAddr = flag.String("broker", "nats://127.0.0.1:4222", "Address of the application-plane signal broker")
		flagPrefix     = flag.String("prefix", "Vehicle", "VSS path prefix Bridge A discovers signals under")
	)
	flag.Parse()

	config.Init(*flagConfigFile)
	cfg := config.Keys
	log.SetLogLevel(cfg.LogLevel)

	fab, err := fabric.Connect(*flagFabricAddr)
	if err != nil {
		log.Fatalf("bridge: failed to connect to fabric: %s", err.Error())
	}
	defer fab.Close()

	brokerConn, err := nats.Connect(*flagBrokerAddr)
	if err != nil {
		log.Fatalf("bridge: failed to connect to broker: %s", err.Error())
	}
	defer brokerConn.Close()

	broker := bridge.NewNATSBroker(brokerConn, bridge.NATSBrokerConfig{
		DiscoverySubject: "broker.discover",
		SignalSubjFmt:    "broker.signal.%s",
		TargetSubjFmt:    "broker.target.%s",
	})

	rt, err := newRTTransport(cfg)
	if err != nil {
		log.Fatalf("bridge: failed to build RT transport: %s", err.Error())
	}

	bridgeA := bridge.NewBridgeA(broker, fab, *flagPrefix)
	if err := bridgeA.Start(); err != nil {
		log.Fatalf("bridge: failed to start bridge A: %s", err.Error())
	}

	bridgeB := bridge.NewBridgeB(fab, rt)
	if err := bridgeB.Start(); err != nil {
		log.Fatalf("bridge: failed to start bridge B: %s", err.Error())
	}

	log.Infof("bridge: running, prefix=%s rt=%s", *flagPrefix, cfg.RTTransportType)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("bridge: shutting down")
	bridgeB.Stop()
	bridgeA.Stop()
	_ = rt.Close()
	os.Exit(0)
}

func newRTTransport(cfg config.Bundle) (bridge.RTTransport, error) {
	switch cfg.RTTransportType {
	case "logging":
		return bridge.NewLoggingRTTransport(), nil
	case "loopback":
		return bridge.NewLoopbackRTTransport(time.Duration(cfg.LoopbackDelayMs) * time.Millisecond), nil
	case "udp":
		localAddr := fmt.Sprintf(":%d", cfg.UDPListenPort)
		peerAddr := fmt.Sprintf("%s:%d", cfg.UDPTargetHost, cfg.UDPTargetPort)
		return bridge.NewUDPRTTransport(localAddr, peerAddr, cfg.MulticastInterface)
	default:
		log.Warnf("bridge: unknown rt_transport_type %q, falling back to logging", cfg.RTTransportType)
		return bridge.NewLoggingRTTransport(), nil
	}
}
