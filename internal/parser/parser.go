// Package parser implements the Parser & Timestamp Detector: it turns a
// logical entry's text into a ParsedRecord, attempting JSON first and
// falling back to plaintext, flattening structured fields, extracting a
// timestamp by priority order, and inferring level/service/host.
package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/control-theory/logoscope/internal/logparse"
	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/tsdetect"
)

// Config bundles the Parser's tunables. It is constructed once and shared
// read-only across workers, matching the "immutable configuration bundle"
// discipline required of the whole pipeline.
type Config struct {
	// TimeKeys lists JSON field names to probe for a timestamp before
	// falling back to a full scan, in priority order.
	TimeKeys []string
	// DropKeys are flattened JSON paths removed before synthetic_message
	// construction (trace ids, service/host fields already surfaced
	// separately, kubernetes.* noise).
	DropKeys map[string]bool
}

// DefaultDropKeys returns the drop-key set the specification calls out by
// example: identifiers and source-location fields that would otherwise
// explode template cardinality without adding analytical value.
func DefaultDropKeys() map[string]bool {
	keys := []string{
		"trace_id", "traceId", "span_id", "spanId", "request_id", "requestId",
		"service", "host", "hostname",
		"kubernetes.pod_name", "kubernetes.pod.name", "kubernetes.namespace_name",
		"kubernetes.container_name", "kubernetes.docker_id",
	}
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

var levelKeys = []string{"level", "severity", "log.level", "loglevel"}
var serviceKeys = []string{"service", "app", "application", "kubernetes.labels.app", "kubernetes.container_name"}
var hostKeys = []string{"host", "hostname", "kubernetes.host", "kubernetes.node_name", "kubernetes.pod_name"}

// Parse converts one logical entry into a ParsedRecord.
func Parse(cfg *Config, entry model.LogicalEntry) (model.ParsedRecord, *model.LineError) {
	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(entry.Text))
	err := dec.Decode(&raw)
	if err == nil {
		if obj, ok := raw.(map[string]interface{}); ok {
			return parseJSON(cfg, entry, obj), nil
		}
		// A bare JSON scalar or array at top level is not a record shape
		// the tracker can flatten meaningfully; fall through to plaintext.
	}

	rec := parsePlaintext(entry)
	if err != nil && looksLikeJSON(entry.Text) {
		lineErr := &model.LineError{
			LineNumber: entry.Ordinal,
			SourceID:   entry.SourceID,
			Kind:       model.ErrKindMalformedJSON,
			Detail:     err.Error(),
		}
		return rec, lineErr
	}
	return rec, nil
}

func looksLikeJSON(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

func parseJSON(cfg *Config, entry model.LogicalEntry, obj map[string]interface{}) model.ParsedRecord {
	flat := flatten(obj)
	sort.Slice(flat, func(i, j int) bool { return flat[i].Path < flat[j].Path })

	byPath := make(map[string]model.FlatField, len(flat))
	for _, f := range flat {
		byPath[f.Path] = f
	}

	rec := model.ParsedRecord{
		SourceID: entry.SourceID,
		Ordinal:  entry.Ordinal,
		Kind:     model.KindJSON,
		Text:     entry.Text,
	}

	if ts, ok := detectJSONTimestamp(cfg, byPath); ok {
		rec.Timestamp = ts
		rec.HasTime = true
	}

	rec.Level = detectLevel(byPath, "")
	rec.Service = firstMatch(byPath, serviceKeys)
	rec.Host = firstMatch(byPath, hostKeys)

	kept := make([]model.FlatField, 0, len(flat))
	for _, f := range flat {
		if cfg != nil && cfg.DropKeys[f.Path] {
			continue
		}
		kept = append(kept, f)
	}
	rec.FlatFields = kept
	rec.SyntheticMessage = buildSyntheticMessage(kept)
	return rec
}

func buildSyntheticMessage(fields []model.FlatField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Path + "=" + f.RawValue
	}
	return strings.Join(parts, " ")
}

// flatten recursively turns a decoded JSON value into dot/index-path leaves.
// Arrays flatten by position; the type tag on each leaf records its Go/JSON
// kind, with array elements tagged as "array<elemType>@idx".
func flatten(v interface{}) []model.FlatField {
	var out []model.FlatField
	flattenInto("", v, "", &out)
	return out
}

func flattenInto(prefix string, v interface{}, arrayIdxSuffix string, out *[]model.FlatField) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, vv := range t {
			key := joinPath(prefix, k)
			flattenInto(key, vv, "", out)
		}
	case []interface{}:
		for i, vv := range t {
			key := joinPath(prefix, strconv.Itoa(i))
			flattenInto(key, vv, elemTypeTag(vv)+"@"+strconv.Itoa(i), out)
		}
	case nil:
		*out = append(*out, model.FlatField{Path: prefix, TypeTag: tagOrArray("null", arrayIdxSuffix), RawValue: "null"})
	case bool:
		*out = append(*out, model.FlatField{Path: prefix, TypeTag: tagOrArray("bool", arrayIdxSuffix), RawValue: strconv.FormatBool(t)})
	case float64:
		raw := formatNumber(t)
		typ := "float"
		if t == float64(int64(t)) {
			typ = "int"
		}
		*out = append(*out, model.FlatField{Path: prefix, TypeTag: tagOrArray(typ, arrayIdxSuffix), RawValue: raw})
	case string:
		*out = append(*out, model.FlatField{Path: prefix, TypeTag: tagOrArray("string", arrayIdxSuffix), RawValue: t})
	default:
		*out = append(*out, model.FlatField{Path: prefix, TypeTag: tagOrArray("string", arrayIdxSuffix), RawValue: fmt.Sprintf("%v", t)})
	}
}

func tagOrArray(base, arrayIdxSuffix string) string {
	if arrayIdxSuffix == "" {
		return base
	}
	return "array<" + base + ">@" + strings.SplitN(arrayIdxSuffix, "@", 2)[1]
}

func elemTypeTag(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	default:
		return "string"
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func detectJSONTimestamp(cfg *Config, byPath map[string]model.FlatField) (time.Time, bool) {
	if cfg != nil {
		for _, key := range cfg.TimeKeys {
			if f, ok := byPath[key]; ok {
				if t, ok := tsdetect.ParseValue(f.RawValue); ok {
					return t, true
				}
			}
		}
	}
	// Scan in deterministic (already sorted) path order so timestamp
	// selection does not depend on map iteration order.
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if t, ok := tsdetect.ParseValue(byPath[p].RawValue); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func detectLevel(byPath map[string]model.FlatField, fallbackText string) string {
	for _, k := range levelKeys {
		if f, ok := byPath[k]; ok {
			return logparse.NormalizeSeverity(f.RawValue)
		}
	}
	if fallbackText != "" {
		return logparse.ExtractSeverityFromText(fallbackText)
	}
	return "INFO"
}

func firstMatch(byPath map[string]model.FlatField, keys []string) string {
	for _, k := range keys {
		if f, ok := byPath[k]; ok {
			return f.RawValue
		}
	}
	return ""
}

// parsePlaintext handles the non-JSON path: detect a leading severity
// token and scan the text for a timestamp. No syslog/app prefix is
// stripped; the record's MessageText is the whole entry text.
func parsePlaintext(entry model.LogicalEntry) model.ParsedRecord {
	rec := model.ParsedRecord{
		SourceID: entry.SourceID,
		Ordinal:  entry.Ordinal,
		Kind:     model.KindPlaintext,
		Text:     entry.Text,
	}
	if ts, ok := tsdetect.Detect(entry.Text); ok {
		rec.Timestamp = ts
		rec.HasTime = true
	}
	firstLine := entry.Text
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	rec.Level = leadingLevel(firstLine)
	return rec
}

var leadingLevelTokens = []string{"ERROR", "WARN", "WARNING", "INFO", "DEBUG", "TRACE", "FATAL", "CRITICAL"}

func leadingLevel(firstLine string) string {
	trimmed := strings.TrimLeft(firstLine, " \t")
	for _, tok := range leadingLevelTokens {
		if strings.HasPrefix(trimmed, tok) {
			next := trimmed[len(tok):]
			if next == "" || next[0] == ' ' || next[0] == ':' || next[0] == ']' {
				return logparse.NormalizeSeverity(tok)
			}
		}
	}
	return logparse.ExtractSeverityFromText(firstLine)
}
