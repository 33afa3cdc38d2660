package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by PrintValue.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatRaw  = "raw"
)

// PrintValue writes a stored value in the requested format.
// Values that are not JSON are printed as they are.
func PrintValue(w io.Writer, raw, format string) error {
	var v any
	if format == FormatRaw || json.Unmarshal([]byte(raw), &v) != nil {
		_, err := fmt.Fprintln(w, raw)
		return err
	}

	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json, yaml or raw)", format)
	}
}

// PrintKeys renders one row per key with its size and snapshot version.
func PrintKeys(ctx context.Context, w io.Writer, store ports.KVStore, keys []string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Key", "Bytes", "Version")

	for _, key := range keys {
		value, err := store.Get(ctx, key)
		if err != nil {
			table.Append([]string{key, "-", "unreadable"})
			continue
		}
		table.Append([]string{key, strconv.Itoa(len(value)), snapshotVersion(value)})
	}
	return table.Render()
}

func snapshotVersion(raw string) string {
	var env struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Version == nil {
		return "-"
	}
	return strconv.Itoa(*env.Version)
}
