// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

// configSchema validates the startup configuration bundle. compression_type
// is restricted to the two supported values; an empty or unrecognized string
// is rejected rather than silently defaulting.
var configSchema = `
{
  "type": "object",
  "properties": {
    "broker_host": { "type": "string" },
    "broker_port": { "type": "integer", "minimum": 1, "maximum": 65535 },
    "client_id": { "type": "string" },
    "username": { "type": "string" },
    "password": { "type": "string" },
    "qos": { "type": "integer", "minimum": 0, "maximum": 2 },
    "keepalive_sec": { "type": "integer", "minimum": 1 },
    "vehicle_id": { "type": "string" },
    "content_id": { "type": "integer", "minimum": 0 },
    "v2c_prefix": { "type": "string" },
    "c2v_prefix": { "type": "string" },
    "batch_max_items": { "type": "integer", "minimum": 1 },
    "batch_max_bytes": { "type": "integer", "minimum": 1 },
    "batch_timeout": { "type": "string" },
    "compression_type": { "type": "string", "enum": ["zstd", "none"] },
    "compression_level": { "type": "integer", "minimum": 1, "maximum": 19 },
    "source_id": { "type": "string" },
    "dds_signals_topic": { "type": "string" },
    "dds_actuator_target_topic": { "type": "string" },
    "dds_actuator_actual_topic": { "type": "string" },
    "signal_pattern": { "type": "string" },
    "rt_transport_type": { "type": "string", "enum": ["logging", "loopback", "udp"] },
    "loopback_delay_ms": { "type": "integer", "minimum": 0 },
    "udp_target_host": { "type": "string" },
    "udp_target_port": { "type": "integer", "minimum": 1, "maximum": 65535 },
    "udp_listen_port": { "type": "integer", "minimum": 1, "maximum": 65535 },
    "multicast_interface": { "type": "string" },
    "ready_timeout_seconds": { "type": "integer", "minimum": 0 },
    "addr": { "type": "string" },
    "log_level": { "type": "string", "enum": ["debug", "info", "warn", "err"] }
  },
  "required": ["vehicle_id", "content_id", "source_id", "compression_type"]
}
`
