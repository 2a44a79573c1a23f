package camera

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceKind identifies the strategy that opened a capture.
type SourceKind int

const (
	// SourceIndex is a numeric camera index opened through a generic API.
	SourceIndex SourceKind = iota
	// SourcePath is a device node such as /dev/video0.
	SourcePath
	// SourcePipeline is a GStreamer pipeline description.
	SourcePipeline
	// SourceNative is an any-API open left to the vendor backend.
	SourceNative
)

func (k SourceKind) String() string {
	switch k {
	case SourceIndex:
		return "index"
	case SourcePath:
		return "path"
	case SourcePipeline:
		return "pipeline"
	case SourceNative:
		return "native"
	default:
		return "unknown"
	}
}

// Source identifies how a camera was (or should be) opened. It is
// immutable once a capture session starts; reconnect attempts rebuild it.
type Source struct {
	Kind     SourceKind
	Index    int
	Path     string
	Pipeline string
}

func (s Source) String() string {
	switch s.Kind {
	case SourceIndex:
		return fmt.Sprintf("index:%d", s.Index)
	case SourcePath:
		return s.Path
	case SourcePipeline:
		return "pipeline:" + s.Pipeline
	case SourceNative:
		return fmt.Sprintf("native:%d", s.Index)
	default:
		return "unknown"
	}
}

// ParseHint turns an explicit override string into a Source.
// Accepted forms: a bare camera index ("1"), a device path ("/dev/video2"),
// or a GStreamer pipeline (either prefixed with "pipeline:" or containing
// a "!" element separator). Returns ok=false for an empty hint.
func ParseHint(hint string) (Source, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return Source{}, false
	}
	if idx, err := strconv.Atoi(hint); err == nil && idx >= 0 {
		return Source{Kind: SourceIndex, Index: idx}, true
	}
	if rest, ok := strings.CutPrefix(hint, "pipeline:"); ok {
		return Source{Kind: SourcePipeline, Pipeline: strings.TrimSpace(rest)}, true
	}
	if strings.Contains(hint, "!") {
		return Source{Kind: SourcePipeline, Pipeline: hint}, true
	}
	return Source{Kind: SourcePath, Path: hint}, true
}
