package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get": {}, "put": {}, "post": {}, "delete": {}, "patch": {}, "head": {}, "options": {},
}

// apiSurface maps path -> method -> response codes.
type apiSurface map[string]map[string]map[string]struct{}

func newOpenAPICompatCmd() *cobra.Command {
	var base, revision string
	cmd := &cobra.Command{
		Use:   "openapi-compat",
		Short: "Fail when a revised swagger spec drops paths, operations or response codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(base) == "" || strings.TrimSpace(revision) == "" {
				return codeError(2, "both --base and --revision are required")
			}
			baseSpec, err := loadSurface(base)
			if err != nil {
				return fmt.Errorf("load base spec: %w", err)
			}
			revSpec, err := loadSurface(revision)
			if err != nil {
				return fmt.Errorf("load revision spec: %w", err)
			}

			issues := compareSurfaces(baseSpec, revSpec)
			if len(issues) > 0 {
				for _, issue := range issues {
					cmd.PrintErrf("- %s\n", issue)
				}
				return codeError(1, "backward compatibility check failed: %d issue(s)", len(issues))
			}
			cmd.Println("openapi compatibility check passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "Base swagger.yaml or swagger.json path")
	cmd.Flags().StringVar(&revision, "revision", "", "Revised swagger.yaml or swagger.json path")
	return cmd
}

func loadSurface(path string) (apiSurface, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSurface(raw)
}

// parseSurface reads YAML, which also accepts the JSON swag emits.
func parseSurface(raw []byte) (apiSurface, error) {
	var doc struct {
		Paths map[string]map[string]yaml.Node `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, errors.New("missing top-level paths field")
	}

	out := make(apiSurface, len(doc.Paths))
	for path, methods := range doc.Paths {
		ops := make(map[string]map[string]struct{})
		for method, node := range methods {
			m := strings.ToLower(strings.TrimSpace(method))
			if _, ok := supportedMethods[m]; !ok {
				continue
			}
			var op struct {
				Responses map[string]yaml.Node `yaml:"responses"`
			}
			if err := node.Decode(&op); err != nil {
				return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(m), path, err)
			}
			codes := make(map[string]struct{}, len(op.Responses))
			for code := range op.Responses {
				if c := strings.ToLower(strings.TrimSpace(code)); c != "" {
					codes[c] = struct{}{}
				}
			}
			ops[m] = codes
		}
		if len(ops) > 0 {
			out[path] = ops
		}
	}
	return out, nil
}

func compareSurfaces(base, revision apiSurface) []string {
	var issues []string
	for path, baseOps := range base {
		revOps, ok := revision[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, baseCodes := range baseOps {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range baseCodes {
				if _, ok := revCodes[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}
