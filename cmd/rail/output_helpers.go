package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "rail: "+format+"\n", args...)
}
