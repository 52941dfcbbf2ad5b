package retdec

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"
)

// Decompilation modes accepted by the API.
const (
	ModeC   = "c"
	ModeBin = "bin"
)

// inferMode picks the decompilation mode from the input file name: C sources
// are compiled first, everything else is treated as a binary.
func inferMode(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".c") {
		return ModeC
	}
	return ModeBin
}

func validateMode(mode string) error {
	switch mode {
	case ModeC, ModeBin:
		return nil
	default:
		return &InvalidValueError{Name: "mode", Value: mode}
	}
}

var filenamePattern = regexp.MustCompile(`(?i)filename="?([^";]+)"?`)

// fileNameFromContentDisposition extracts the file name from a
// Content-Disposition header. Both the standard form
// (attachment; filename="a.c") and a bare filename=a.c are accepted.
func fileNameFromContentDisposition(header string) string {
	if header == "" {
		return ""
	}
	name := ""
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	}
	if name == "" {
		if m := filenamePattern.FindStringSubmatch(header); m != nil {
			name = strings.TrimSpace(m[1])
		}
	}
	return baseName(name)
}

// baseName strips any directory part a server may have put in a file name.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}
