package keras

import (
	"fmt"
	"strings"

	"github.com/nchapman/tfjsconv/internal/ui"
)

// Summary renders a human-readable description of the model and its layers.
func (m *Model) Summary() string {
	var b strings.Builder

	name := m.Name
	if name == "" {
		name = m.Path
	}
	fmt.Fprintf(&b, "%s\n\n", ui.Header(fmt.Sprintf("Model: %q", name)))

	writeField(&b, "Format", m.Format.String())
	writeField(&b, "Class", m.ClassName)
	writeField(&b, "Keras", m.KerasVersion)
	writeField(&b, "Saved", m.SavedAt)
	writeField(&b, "Input", m.InputShape)
	if m.Size > 0 {
		writeField(&b, "Size", ui.FormatBytes(m.Size))
	}
	if m.WeightsSize > 0 {
		writeField(&b, "Weights", ui.FormatBytes(m.WeightsSize))
	}

	if !m.HasTopology() {
		fmt.Fprintf(&b, "\n  %s\n", ui.Muted("Layer topology unavailable for this format"))
		return b.String()
	}

	b.WriteString("\n")

	table := ui.NewTable().Rule().
		AddColumn("LAYER", 28, ui.AlignLeft).
		AddColumn("TYPE", 22, ui.AlignLeft).
		AddColumn("DETAILS", 34, ui.AlignLeft).
		AddColumn("CONNECTED TO", 24, ui.AlignLeft)

	frozen := 0
	for _, l := range m.Layers {
		class := l.ClassName
		if l.Nested > 0 {
			class = fmt.Sprintf("%s (%d)", class, l.Nested)
		}
		if !l.Trainable {
			frozen++
		}
		table.AddRow(l.Name, class, l.Details, strings.Join(l.Inbound, ", "))
	}
	b.WriteString(table.Render())

	b.WriteString("\n")
	writeField(&b, "Layers", fmt.Sprintf("%d top-level, %d total", len(m.Layers), m.TotalLayers()))
	if frozen > 0 {
		writeField(&b, "Frozen", fmt.Sprintf("%d", frozen))
	}

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %-10s %s\n", label, value)
}
