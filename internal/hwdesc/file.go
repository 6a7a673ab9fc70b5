package hwdesc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileNode is the on-disk form of a Node.
type fileNode struct {
	Path       string           `toml:"path" yaml:"path"`
	Compatible []string         `toml:"compatible" yaml:"compatible"`
	Chip       string           `toml:"chip" yaml:"chip"`
	GPIOs      map[string][]int `toml:"gpios" yaml:"gpios"`
}

type fileDesc struct {
	Nodes []fileNode `toml:"node" yaml:"node"`
}

// File is a Source backed by a description file. Example (TOML):
//
//	[[node]]
//	path = "/soc/camera-flash"
//	compatible = ["qcom,camera-flash"]
//	chip = "gpiochip0"
//	[node.gpios]
//	"qcom,flash-gpios" = [12, 13]
type File struct {
	path  string
	nodes []Node
}

// LoadFile parses a TOML (.toml) or YAML (.yaml, .yml) description file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hardware description: %w", err)
	}
	f, err := ParseFile(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// ParseFile decodes data in the format named by ext (".toml", ".yaml", ".yml").
func ParseFile(ext string, data []byte) (*File, error) {
	var desc fileDesc
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &desc); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &desc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported description format %q", ext)
	}

	f := &File{nodes: make([]Node, 0, len(desc.Nodes))}
	for _, n := range desc.Nodes {
		f.nodes = append(f.nodes, Node{
			Path:       n.Path,
			Compatible: n.Compatible,
			Chip:       n.Chip,
			GPIOs:      n.GPIOs,
		})
	}
	return f, nil
}

// FindCompatible returns the first listed node compatible with compatible.
func (f *File) FindCompatible(compatible string) (*Node, error) {
	for i := range f.nodes {
		if f.nodes[i].IsCompatible(compatible) {
			n := f.nodes[i]
			return &n, nil
		}
	}
	return nil, fmt.Errorf("%w: no node compatible with %q in %s", ErrNotFound, compatible, f.path)
}
