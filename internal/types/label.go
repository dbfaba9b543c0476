package types

import (
	"fmt"
	"strings"
)

// Label returns a user-friendly label for a TypeID.
func Label(in *Interner, id TypeID) string {
	return labelDepth(in, id, 0)
}

func labelDepth(in *Interner, id TypeID, depth int) string {
	if id == NoTypeID || in == nil {
		return "?"
	}
	if depth > 6 {
		return "..."
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindAlias:
		info := in.aliases[tt.Payload]
		if name, ok := in.Strings.Lookup(info.Name); ok && name != "" {
			return name
		}
		return "?"
	case KindArray:
		elem := labelDepth(in, tt.Elem, depth+1)
		if !tt.Fixed {
			return "[" + elem + "]"
		}
		return fmt.Sprintf("[%s; %d]", elem, tt.Length)
	case KindRecord:
		fields := in.records[tt.Payload].Fields
		parts := make([]string, len(fields))
		for i, f := range fields {
			name, _ := in.Strings.Lookup(f.Name)
			parts[i] = name + ": " + labelDepth(in, f.Type, depth+1)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "?"
	}
}
