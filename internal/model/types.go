package model

import "time"

// RawLine is one line of input tagged with its source and its
// monotonically assigned position within that source.
type RawLine struct {
	SourceID string
	Ordinal  uint64
	Text     string
}

// LogicalEntry is one or more consecutive RawLines merged by the Line
// Assembler into a single analyzable record.
type LogicalEntry struct {
	SourceID    string
	Ordinal     uint64 // ordinal of the first raw line contributing to this entry
	Text        string
	RawLineSpan int // number of raw lines folded into this entry
}

// Kind distinguishes how a logical entry's text was interpreted.
type Kind int

const (
	KindPlaintext Kind = iota
	KindJSON
)

func (k Kind) String() string {
	if k == KindJSON {
		return "json"
	}
	return "plaintext"
}

// FlatField is one flattened JSON leaf: a dot/index path, its raw string
// representation (used for synthetic_message and parameter tallies), and
// a type tag drawn from the closed set {string,int,float,bool,null,array<T>@idx}.
type FlatField struct {
	Path     string
	TypeTag  string
	RawValue string
}

// ParsedRecord is the output of the Parser & Timestamp Detector for one
// logical entry.
type ParsedRecord struct {
	SourceID  string
	Ordinal   uint64
	Timestamp time.Time // zero value means "absent"; Ordinal is the surrogate order
	HasTime   bool
	Level     string
	Service   string
	Host      string
	Kind      Kind
	Text      string

	// FlatFields and SyntheticMessage are populated only for Kind == KindJSON.
	FlatFields       []FlatField
	SyntheticMessage string
}

// MessageText returns the text that should be fed to masking and template
// mining: the synthetic message for JSON records, the raw text otherwise.
func (r *ParsedRecord) MessageText() string {
	if r.Kind == KindJSON {
		return r.SyntheticMessage
	}
	return r.Text
}

// ErrorKind is the closed set of recoverable, line-level error
// classifications the pipeline can report.
type ErrorKind string

const (
	ErrKindMalformedJSON         ErrorKind = "malformed_json"
	ErrKindTimestampUnparseable  ErrorKind = "timestamp_unparseable"
	ErrKindLineTooLong           ErrorKind = "line_too_long"
	ErrKindMultilineUnterminated ErrorKind = "multiline_unterminated"
	ErrKindClusterCapReached     ErrorKind = "cluster_cap_reached"
	ErrKindCancelled             ErrorKind = "cancelled"
	ErrKindIOError               ErrorKind = "io_error"
)

// LineError records one line-level error for the bounded error sample.
type LineError struct {
	LineNumber uint64    `json:"line_number,omitempty"`
	SourceID   string    `json:"source_id"`
	Kind       ErrorKind `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
}

// SchemaChangeKind is the closed set of schema-diff event kinds the
// Parameter & Schema Tracker emits.
type SchemaChangeKind string

const (
	SchemaFieldAdded   SchemaChangeKind = "field_added"
	SchemaFieldRemoved SchemaChangeKind = "field_removed"
	SchemaTypeChanged  SchemaChangeKind = "type_changed"
)

// SchemaChange is one entry in the schema fingerprint diff stream.
type SchemaChange struct {
	Timestamp time.Time        `json:"timestamp"`
	Kind      SchemaChangeKind `json:"kind"`
	Field     string           `json:"field"`
	OldType   string           `json:"old_type,omitempty"` // set for field_removed and type_changed
	NewType   string           `json:"new_type,omitempty"` // set for field_added and type_changed
	Impact    bool             `json:"impact"`             // true when within the configured window of a detected burst
}
