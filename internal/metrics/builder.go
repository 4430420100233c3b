package metrics

import (
	"strconv"
	"strings"
)

// Label is a single name="value" pair on an exposition line.
type Label struct {
	Name  string
	Value string
}

// Builder accumulates exposition lines in the order they are added. Global
// labels are appended after each line's own labels.
type Builder struct {
	sb     strings.Builder
	global []Label
}

func NewBuilder(global ...Label) *Builder {
	return &Builder{global: global}
}

// Add appends one line: name{labels...,global...} value
func (b *Builder) Add(name string, value float64, labels ...Label) {
	b.sb.WriteString(name)

	if len(labels)+len(b.global) > 0 {
		b.sb.WriteByte('{')
		first := true
		for _, set := range [][]Label{labels, b.global} {
			for _, l := range set {
				if !first {
					b.sb.WriteByte(',')
				}
				first = false
				b.sb.WriteString(l.Name)
				b.sb.WriteString(`="`)
				b.sb.WriteString(escape(l.Value))
				b.sb.WriteByte('"')
			}
		}
		b.sb.WriteByte('}')
	}

	b.sb.WriteByte(' ')
	b.sb.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
	b.sb.WriteByte('\n')
}

func (b *Builder) String() string {
	return b.sb.String()
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escape(v string) string {
	return labelEscaper.Replace(v)
}
