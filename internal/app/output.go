package app

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// 出力形式。
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// printer は状態スナップショットを指定された形式で書き出す。
type printer struct {
	w      io.Writer
	format string
}

func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format %q: must be one of text, json, yaml", format)
	}
}

// print はvをJSONまたはYAMLで出力する。text形式の場合はtextを呼び出す。
func (p printer) print(v any, text func(w io.Writer)) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(p.w)
		return nil
	}
}
