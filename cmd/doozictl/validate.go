package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doozitravel/gateway/pkg/validation"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <preset> [key=value ...]",
		Short: "Validate form values against a preset",
		Long: `validate normalizes and checks form values with one of the validation
presets and prints the result as JSON. Values are given as key=value pairs;
with no pairs a JSON object is read from stdin. The exit status is 1 when
any field fails.

Presets: ` + strings.Join(validation.Names(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := validation.Preset(args[0])
			if err != nil {
				return err
			}
			raw, err := formValues(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			values, errs := rules.Apply(raw)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if !errs.OK() {
				if err := enc.Encode(map[string]any{"errors": errs}); err != nil {
					return err
				}
				return errInvalid
			}
			return enc.Encode(map[string]any{"values": values})
		},
	}
}

// formValues reads key=value pairs, or a JSON object from r when there are
// none. "true" and "false" become booleans.
func formValues(r io.Reader, pairs []string) (validation.Values, error) {
	if len(pairs) == 0 {
		var v validation.Values
		if err := json.NewDecoder(r).Decode(&v); err != nil {
			return nil, fmt.Errorf("read form JSON from stdin: %w", err)
		}
		return v, nil
	}
	v := validation.Values{}
	for _, p := range pairs {
		key, val, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		switch val {
		case "true":
			v[key] = true
		case "false":
			v[key] = false
		default:
			v[key] = val
		}
	}
	return v, nil
}
