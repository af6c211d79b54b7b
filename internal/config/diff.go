// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"reflect"
	"sort"
	"strings"
)

// hotReloadable lists the keys a running daemon applies without restart.
var hotReloadable = map[string]struct{}{
	"log.level":           {},
	"stream.buffer_count": {},
}

// ChangeSummary describes the result of comparing two AppConfigs.
type ChangeSummary struct {
	ChangedFields   []string // yaml key paths that changed
	RestartRequired bool     // True if any changed field is not hot-reloadable
}

// Diff compares two configurations and returns a summary of changes.
func Diff(old, next AppConfig) ChangeSummary {
	summary := ChangeSummary{}
	summary.compareStruct("", reflect.ValueOf(old), reflect.ValueOf(next))
	sort.Strings(summary.ChangedFields)
	return summary
}

func (s *ChangeSummary) compareStruct(prefix string, oldVal, nextVal reflect.Value) {
	t := oldVal.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" || name == "" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		o, n := oldVal.Field(i), nextVal.Field(i)
		if f.Type.Kind() == reflect.Struct {
			s.compareStruct(path, o, n)
			continue
		}
		if reflect.DeepEqual(o.Interface(), n.Interface()) {
			continue
		}
		s.ChangedFields = append(s.ChangedFields, path)
		if _, ok := hotReloadable[path]; !ok {
			s.RestartRequired = true
		}
	}
}
