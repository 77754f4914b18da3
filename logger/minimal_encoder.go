package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// Muted warm palette, easy on the eyes during long ingestion runs.
const (
	colorFg     = "\x1b[38;5;223m" // Soft cream
	colorTime   = "\x1b[38;5;108m" // Muted cyan-green
	colorOrange = "\x1b[38;5;208m" // Warm orange
	colorYellow = "\x1b[38;5;214m" // Soft yellow
	colorGreen  = "\x1b[38;5;142m" // Muted green
	colorBlue   = "\x1b[38;5;109m" // Soft blue
	colorPurple = "\x1b[38;5;175m" // Muted purple
	colorRed    = "\x1b[38;5;167m" // Warm red
	colorRedBg  = "\x1b[48;5;88m"
	colorYelBg  = "\x1b[48;5;58m"
)

// Field keys whose values render in the ID color.
var idFieldKeys = map[string]bool{
	FieldRunID:        true,
	FieldADA:          true,
	FieldOrganization: true,
	FieldEndpoint:     true,
}

// Field keys whose values render in the number color.
var numberFieldKeys = map[string]bool{
	FieldDurationMS: true,
	FieldRecords:    true,
	FieldChunks:     true,
	FieldPages:      true,
	FieldAttempt:    true,
	FieldCount:      true,
}

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  i.fetcher  Chunk complete  chunk=2026-01 records=412"
//
// Every structured field is rendered as key=value. Known keys get value
// coloring; unknown keys must still appear, never be dropped.
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
	buf             *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	// Create a base JSON encoder for field serialization (internal use only)
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return &minimalEncoder{
		Encoder: baseEncoder,
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only show for WARN/ERROR with bold + background
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	// Component name (abbreviated) for visual grouping
	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorFg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if rendered := renderFields(fields); rendered != "" {
		final.AppendString("  ")
		final.AppendString(rendered)
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for non-INFO levels
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return colorBlue + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + colorYelBg + colorYellow + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + colorRedBg + colorRed + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + colorRedBg + colorRed + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// abbreviateName shortens component names: ingest.fetcher -> i.fetcher
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// colorComponent hashes the name so each component keeps a stable color
func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	switch hash % 3 {
	case 0:
		return colorOrange
	case 1:
		return colorGreen
	default:
		return colorYellow
	}
}

// fieldValue serializes a single zap field through a map encoder so that
// every field type zap supports comes out as a printable value.
func fieldValue(field zapcore.Field) (string, bool) {
	if field.Type == zapcore.SkipType {
		return "", false
	}
	m := zapcore.NewMapObjectEncoder()
	field.AddTo(m)
	v, ok := m.Fields[field.Key]
	if !ok {
		// Namespaced or otherwise nested; fall back to the first stored value
		for _, nested := range m.Fields {
			v = nested
			ok = true
			break
		}
		if !ok {
			return "", false
		}
	}
	return fmt.Sprintf("%v", v), true
}

// renderFields renders all structured fields as key=value pairs in order.
// Dropping a field here loses debugging information, so unknown keys pass
// through untouched.
func renderFields(fields []zapcore.Field) string {
	var parts []string
	for _, field := range fields {
		val, ok := fieldValue(field)
		if !ok {
			continue
		}
		switch {
		case idFieldKeys[field.Key]:
			parts = append(parts, colorFg+field.Key+"="+colorReset+colorBlue+val+colorReset)
		case numberFieldKeys[field.Key]:
			parts = append(parts, colorFg+field.Key+"="+colorReset+colorPurple+val+colorReset)
		case field.Key == FieldError:
			parts = append(parts, colorFg+field.Key+"="+colorReset+colorRed+val+colorReset)
		default:
			parts = append(parts, colorFg+field.Key+"="+val+colorReset)
		}
	}
	return strings.Join(parts, " ")
}
