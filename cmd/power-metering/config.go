package main

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// SetFlagsFromConfigFile reads a YAML mapping of flag names to values from
// path and sets every flag that is not already set. Unknown keys and
// non-scalar values are errors.
//
//	prometheus-host: prometheus:9090
//	query-timeout: 5s
func SetFlagsFromConfigFile(fs *pflag.FlagSet, path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read config file %s: %v", path, err)
	}
	values, err := parseConfig(data)
	if err != nil {
		return fmt.Errorf("invalid config file %s: %v", path, err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if fs.Lookup(name) == nil {
			return fmt.Errorf("invalid config file %s: unknown option %q", path, name)
		}
		if fs.Changed(name) {
			continue
		}
		if err := fs.Set(name, values[name]); err != nil {
			return fmt.Errorf("invalid value %q for %s in %s: %v", values[name], name, path, err)
		}
	}
	return nil
}

func parseConfig(data []byte) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	values := make(map[string]string)
	// empty file
	if len(doc.Content) == 0 {
		return values, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at line %d", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("option %q at line %d must be a scalar", key.Value, key.Line)
		}
		values[key.Value] = value.Value
	}
	return values, nil
}
