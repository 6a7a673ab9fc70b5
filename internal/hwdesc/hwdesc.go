// Package hwdesc looks up hardware description nodes by compatibility tag.
// Two sources are provided: a flattened device-tree directory (as exposed by
// the kernel under /proc/device-tree) and a TOML or YAML description file for
// boards without a usable device tree.
package hwdesc

import (
	"errors"
	"slices"
)

// Defaults matching the camera-flash node the torch driver binds to.
const (
	DefaultCompatible    = "qcom,camera-flash"
	DefaultProperty      = "qcom,flash-gpios"
	DefaultDeviceTreeDir = "/proc/device-tree"
)

// ErrNotFound is returned when no node matches the requested compatible tag.
var ErrNotFound = errors.New("hardware description not found")

// Source finds hardware description nodes.
type Source interface {
	// FindCompatible returns the first node whose compatible list contains
	// compatible, or an error wrapping ErrNotFound.
	FindCompatible(compatible string) (*Node, error)
}

// Node is a single hardware description node.
type Node struct {
	// Path identifies the node within its source (e.g. "/soc/camera-flash").
	Path string

	// Compatible lists the node's compatibility tags, most specific first.
	Compatible []string

	// Chip names the GPIO chip the lines belong to. Empty means the caller's
	// default chip.
	Chip string

	// GPIOs maps a property name to its ordered line offsets.
	GPIOs map[string][]int
}

// IsCompatible reports whether the node lists tag.
func (n *Node) IsCompatible(tag string) bool {
	return slices.Contains(n.Compatible, tag)
}

// Lines returns the line offsets listed under property, in order.
// A missing property yields nil.
func (n *Node) Lines(property string) []int {
	return n.GPIOs[property]
}
