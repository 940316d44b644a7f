// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command vep-can-actuator subscribes to actuator target writes on the
// pub/sub fabric and encodes every one covered by its static signal table
// into a SocketCAN frame on a real CAN interface.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/vehicleedge/telemetry-export/internal/can"
	"github.com/vehicleedge/telemetry-export/internal/fabric"
	"github.com/vehicleedge/telemetry-export/pkg/log"
)

func main() {
	var (
		flagFabricAddr = flag.String("fabric", "nats://127.0.0.1:4222", "Address of the pub/sub fabric")
		flagMapping    = flag.String("mapping", "./can-signals.json", "Path to the VSS-path to CAN-signal mapping table (JSON)")
		flagIface      = flag.String("iface", "can0", "SocketCAN interface name")
		flagLogLevel   = flag.String("loglevel", "info", "debug, info, warn, or err")
	)
	flag.Parse()

	log.SetLogLevel(*flagLogLevel)

	raw, err := os.ReadFile(*flagMapping)
	if err != nil {
		log.Fatalf("can-actuator: failed to read mapping file %s: %s", *flagMapping, err.Error())
	}
	mappings, err := can.LoadMappings(raw)
	if err != nil {
		log.Fatalf("can-actuator: failed to parse mapping file: %s", err.Error())
	}
	table := can.NewTable(mappings)

	writer, err := can.OpenSocketWriter(*flagIface)
	if err != nil {
		log.Fatalf("can-actuator: failed to open CAN interface %s: %s", *flagIface, err.Error())
	}
	defer writer.Close()

	fab, err := fabric.Connect(*flagFabricAddr)
	if err != nil {
		log.Fatalf("can-actuator: failed to connect to fabric: %s", err.Error())
	}
	defer fab.Close()

	sub := can.NewSubscriber(table, writer)
	if err := sub.Start(fab); err != nil {
		log.Fatalf("can-actuator: failed to start subscriber: %s", err.Error())
	}

	log.Infof("can-actuator: running, iface=%s mappings=%d", *flagIface, len(mappings))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("can-actuator: shutting down")
	sub.Stop()
	os.Exit(0)
}
