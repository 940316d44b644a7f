// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vehicleedge/telemetry-export/pkg/log"
)

// Validate compiles schema and checks instance against it, exiting the
// process on any failure (compile error or validation failure alike).
// Configuration problems are a startup-time fatal condition, never a
// recoverable one.
func Validate(schema string, instance json.RawMessage) {
	sch, err := jsonschema.CompileString("schema.json", schema)
	if err != nil {
		log.Fatalf("config: schema compile failed: %v", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		log.Fatalf("config: instance is not valid JSON: %v", err)
	}

	if err := sch.Validate(v); err != nil {
		log.Fatalf("config: validation failed: %v", err)
	}
}
