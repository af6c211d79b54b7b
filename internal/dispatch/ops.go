// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dispatch

// Standard domain names.
const (
	DomainFeature  = "feature"
	DomainSettings = "settings"
	DomainStatus   = "status"
	DomainStream   = "stream"
)

const (
	OpIntGet           Op = "feature.int_get"
	OpIntSet           Op = "feature.int_set"
	OpIntInfo          Op = "feature.int_info_get"
	OpFloatGet         Op = "feature.float_get"
	OpFloatSet         Op = "feature.float_set"
	OpFloatInfo        Op = "feature.float_info_get"
	OpStringGet        Op = "feature.string_get"
	OpStringSet        Op = "feature.string_set"
	OpStringInfo       Op = "feature.string_info_get"
	OpBoolGet          Op = "feature.bool_get"
	OpBoolSet          Op = "feature.bool_set"
	OpEnumGet          Op = "feature.enum_get"
	OpEnumSet          Op = "feature.enum_set"
	OpEnumInfo         Op = "feature.enum_info_get"
	OpEnumAsInt        Op = "feature.enum_as_int_get"
	OpEnumAsString     Op = "feature.enum_as_string_get"
	OpRawGet           Op = "feature.raw_get"
	OpRawSet           Op = "feature.raw_set"
	OpRawInfo          Op = "feature.raw_info_get"
	OpCommandRun       Op = "feature.command_run"
	OpCommandIsDone    Op = "feature.command_is_done"
	OpAccessMode       Op = "feature.access_mode_get"
	OpFeatureInfoQuery Op = "feature.info_query"
	OpFeatureList      Op = "feature.list_get"

	OpSettingsLoad Op = "settings.load"
	OpSettingsSave Op = "settings.save"

	OpStatus      Op = "status"
	OpSessionList Op = "session.list"

	OpStreamStart      Op = "stream.start"
	OpStreamStop       Op = "stream.stop"
	OpParamBufferCount Op = "param.buffer_count"
)

var standardPins = map[string][]Op{
	DomainFeature: {
		OpIntGet, OpIntSet, OpIntInfo,
		OpFloatGet, OpFloatSet, OpFloatInfo,
		OpStringGet, OpStringSet, OpStringInfo,
		OpBoolGet, OpBoolSet,
		OpEnumGet, OpEnumSet, OpEnumInfo, OpEnumAsInt, OpEnumAsString,
		OpRawGet, OpRawSet, OpRawInfo,
		OpCommandRun, OpCommandIsDone,
		OpAccessMode, OpFeatureInfoQuery, OpFeatureList,
	},
	DomainSettings: {OpSettingsLoad, OpSettingsSave},
	DomainStatus:   {OpStatus, OpSessionList},
	// Buffer count changes share the stream domain so the streaming check
	// and the store cannot interleave with a start.
	DomainStream: {OpStreamStart, OpStreamStop, OpParamBufferCount},
}

// Standard builds the sealed partition used by the daemon: feature and
// status access are reentrant, settings and streaming transitions are
// exclusive.
func Standard() *Partition {
	p := NewPartition(
		NewDomain(DomainFeature, Reentrant, 0),
		NewDomain(DomainSettings, Exclusive, 0),
		NewDomain(DomainStatus, Reentrant, 0),
		NewDomain(DomainStream, Exclusive, 0),
	)
	for domain, ops := range standardPins {
		for _, op := range ops {
			if err := p.Pin(op, domain); err != nil {
				panic(err)
			}
		}
	}
	p.Seal()
	return p
}
