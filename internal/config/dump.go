// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"reflect"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Document renders cfg as nested maps keyed by the yaml names, with
// durations spelled the way a config file writes them ("50ms").
func Document(cfg AppConfig) map[string]any {
	return document(reflect.ValueOf(cfg))
}

func document(v reflect.Value) map[string]any {
	out := make(map[string]any, v.NumField())
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" || name == "" {
			continue
		}
		fv := v.Field(i)
		switch {
		case f.Type == durationType:
			out[name] = time.Duration(fv.Int()).String()
		case f.Type.Kind() == reflect.Struct:
			out[name] = document(fv)
		default:
			out[name] = fv.Interface()
		}
	}
	return out
}
