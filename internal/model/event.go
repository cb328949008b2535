package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field identifies one addressable attribute of an Event.
// The data source flattens nested attacker/decoy attributes into dotted keys,
// so each Field carries the dotted key used on the wire and in table columns.
type Field int

const (
	FieldID Field = iota
	FieldType
	FieldSeverity
	FieldKillChainPhase
	FieldTimestamp
	FieldAttackerID
	FieldAttackerIP
	FieldAttackerName
	FieldAttackerPort
	FieldDecoyID
	FieldDecoyName
	FieldDecoyGroup
	FieldDecoyIP
	FieldDecoyPort
	FieldDecoyType

	fieldCount
)

// Fields is the ordered list of wire keys, indexed by Field.
// Used for JSON decoding, field validation, and column ordering in storage.
var Fields = []string{
	"id", "type", "severity", "kill_chain_phase", "timestamp",
	"attacker.id", "attacker.ip", "attacker.name", "attacker.port",
	"decoy.id", "decoy.name", "decoy.group", "decoy.ip", "decoy.port", "decoy.type",
}

var fieldLabels = []string{
	"ID", "Type", "Severity", "Kill Chain Phase", "Timestamp",
	"Attacker ID", "Attacker IP", "Attacker Name", "Attacker Port",
	"Decoy ID", "Decoy Name", "Decoy Group", "Decoy IP", "Decoy Port", "Decoy Type",
}

// Key returns the dotted wire key of the field.
func (f Field) Key() string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return Fields[f]
}

// Label returns the human-readable column label.
func (f Field) Label() string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return fieldLabels[f]
}

// Kind reports how values of the field compare.
func (f Field) Kind() Kind {
	switch f {
	case FieldAttackerPort, FieldDecoyID, FieldDecoyPort:
		return KindNumber
	case FieldTimestamp:
		return KindTime
	default:
		return KindText
	}
}

func (f Field) String() string { return f.Key() }

// Column returns the SQL column name for the field ("attacker.ip" -> "attacker_ip").
func (f Field) Column() string {
	return strings.ReplaceAll(f.Key(), ".", "_")
}

// ParseField looks up a field by its dotted key.
func ParseField(key string) (Field, bool) {
	for i, k := range Fields {
		if k == key {
			return Field(i), true
		}
	}
	return 0, false
}

// AllFields returns every field in wire order.
func AllFields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// FieldSet is a bitmask of fields.
type FieldSet uint32

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool { return s&(1<<uint(f)) != 0 }

// With returns the set with f added.
func (s FieldSet) With(f Field) FieldSet { return s | 1<<uint(f) }

// Without returns s with f cleared.
func (s FieldSet) Without(f Field) FieldSet { return s &^ (1 << uint(f)) }

// Attacker is the source side of an interaction.
type Attacker struct {
	ID   string `json:"id"`
	IP   string `json:"ip"`
	Name string `json:"name"`
	Port int64  `json:"port"`
}

// Decoy is the honeypot asset that was touched.
type Decoy struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
	IP    string `json:"ip"`
	Port  int64  `json:"port"`
	Type  string `json:"type"`
}

// Event is one recorded interaction between an attacker and a decoy.
// Missing records the fields that were absent or unusable in the source
// document; the zero value means every field is present.
type Event struct {
	ID             string
	Type           string
	Severity       string
	KillChainPhase string
	Timestamp      string
	Attacker       Attacker
	Decoy          Decoy
	Missing        FieldSet
}

// Has reports whether the event carries a value for f.
func (e *Event) Has(f Field) bool { return !e.Missing.Has(f) }

// Value extracts the typed value of a field.
func (e *Event) Value(f Field) FieldValue {
	if e.Missing.Has(f) {
		return FieldValue{Kind: f.Kind(), Absent: true}
	}
	switch f {
	case FieldID:
		return Text(e.ID)
	case FieldType:
		return Text(e.Type)
	case FieldSeverity:
		return Text(e.Severity)
	case FieldKillChainPhase:
		return Text(e.KillChainPhase)
	case FieldTimestamp:
		return FieldValue{Kind: KindTime, Text: e.Timestamp}
	case FieldAttackerID:
		return Text(e.Attacker.ID)
	case FieldAttackerIP:
		return Text(e.Attacker.IP)
	case FieldAttackerName:
		return Text(e.Attacker.Name)
	case FieldAttackerPort:
		return Number(e.Attacker.Port)
	case FieldDecoyID:
		return Number(e.Decoy.ID)
	case FieldDecoyName:
		return Text(e.Decoy.Name)
	case FieldDecoyGroup:
		return Text(e.Decoy.Group)
	case FieldDecoyIP:
		return Text(e.Decoy.IP)
	case FieldDecoyPort:
		return Number(e.Decoy.Port)
	case FieldDecoyType:
		return Text(e.Decoy.Type)
	default:
		return FieldValue{Absent: true}
	}
}

// SetText assigns a text value to f, converting it for numeric fields.
// Returns an error if a numeric field cannot be parsed; the field is then
// marked missing.
func (e *Event) SetText(f Field, s string) error {
	if f.Kind() == KindNumber {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			e.Missing = e.Missing.With(f)
			return fmt.Errorf("field %s: %w", f.Key(), err)
		}
		e.setNumber(f, n)
		e.Missing = e.Missing.Without(f)
		return nil
	}
	e.setString(f, s)
	e.Missing = e.Missing.Without(f)
	return nil
}

// SetValue assigns v to f. An absent v marks the field missing.
func (e *Event) SetValue(f Field, v FieldValue) {
	if v.Absent {
		e.Missing = e.Missing.With(f)
		return
	}
	if f.Kind() == KindNumber {
		e.setNumber(f, v.Number)
	} else {
		e.setString(f, v.Text)
	}
	e.Missing = e.Missing.Without(f)
}

func (e *Event) setString(f Field, s string) {
	switch f {
	case FieldID:
		e.ID = s
	case FieldType:
		e.Type = s
	case FieldSeverity:
		e.Severity = s
	case FieldKillChainPhase:
		e.KillChainPhase = s
	case FieldTimestamp:
		e.Timestamp = s
	case FieldAttackerID:
		e.Attacker.ID = s
	case FieldAttackerIP:
		e.Attacker.IP = s
	case FieldAttackerName:
		e.Attacker.Name = s
	case FieldDecoyName:
		e.Decoy.Name = s
	case FieldDecoyGroup:
		e.Decoy.Group = s
	case FieldDecoyIP:
		e.Decoy.IP = s
	case FieldDecoyType:
		e.Decoy.Type = s
	}
}

func (e *Event) setNumber(f Field, n int64) {
	switch f {
	case FieldAttackerPort:
		e.Attacker.Port = n
	case FieldDecoyID:
		e.Decoy.ID = n
	case FieldDecoyPort:
		e.Decoy.Port = n
	}
}

// UnmarshalJSON accepts both the flat dotted layout of the data source
// ({"attacker.ip": "..."}) and nested objects ({"attacker": {"ip": "..."}}).
// Keys that are missing, null, or of an unusable type mark the field missing.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	flat := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if k == "attacker" || k == "decoy" {
			var nested map[string]json.RawMessage
			if json.Unmarshal(v, &nested) == nil {
				for nk, nv := range nested {
					flat[k+"."+nk] = nv
				}
				continue
			}
		}
		flat[k] = v
	}

	*e = Event{}
	for _, f := range AllFields() {
		v, ok := flat[f.Key()]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			e.Missing = e.Missing.With(f)
			continue
		}
		var val interface{}
		dec := json.NewDecoder(bytes.NewReader(v))
		dec.UseNumber()
		if err := dec.Decode(&val); err != nil {
			e.Missing = e.Missing.With(f)
			continue
		}
		if f.Kind() == KindNumber {
			n, ok := interfaceToInt64(val)
			if !ok {
				e.Missing = e.Missing.With(f)
				continue
			}
			e.setNumber(f, n)
			continue
		}
		s, ok := interfaceToString(val)
		if !ok {
			e.Missing = e.Missing.With(f)
			continue
		}
		e.setString(f, s)
	}
	return nil
}

// MarshalJSON writes the flat dotted layout, omitting missing fields.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, f := range AllFields() {
		if e.Missing.Has(f) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(f.Key())
		buf.Write(key)
		buf.WriteByte(':')
		v := e.Value(f)
		var (
			b   []byte
			err error
		)
		if v.Kind == KindNumber {
			b, err = json.Marshal(v.Number)
		} else {
			b, err = json.Marshal(v.Text)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// interfaceToString converts scalar JSON values to text.
func interfaceToString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

// interfaceToInt64 converts JSON numbers and numeric strings to int64.
func interfaceToInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
