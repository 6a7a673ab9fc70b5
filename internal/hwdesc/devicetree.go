package hwdesc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// gpioSpecifierCells is the number of cells in one GPIO specifier:
// controller phandle, line offset, flags (#gpio-cells = <2>).
const gpioSpecifierCells = 3

// DeviceTree reads a flattened device tree exposed as a directory hierarchy,
// where every node is a directory and every property is a file.
type DeviceTree struct {
	fsys fs.FS
	root string
}

// NewDeviceTree returns a Source reading the device tree under dir.
func NewDeviceTree(dir string) *DeviceTree {
	return &DeviceTree{fsys: os.DirFS(dir), root: dir}
}

// NewDeviceTreeFS returns a Source reading the device tree from fsys.
func NewDeviceTreeFS(fsys fs.FS) *DeviceTree {
	return &DeviceTree{fsys: fsys, root: "."}
}

// FindCompatible walks the tree in lexical order and returns the first node
// whose compatible property contains compatible.
func (d *DeviceTree) FindCompatible(compatible string) (*Node, error) {
	var found *Node
	err := fs.WalkDir(d.fsys, ".", func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.IsDir() {
			return nil
		}
		raw, err := fs.ReadFile(d.fsys, path.Join(p, "compatible"))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s/compatible: %w", p, err)
		}
		tags := splitStrings(raw)
		node := &Node{Path: nodePath(p), Compatible: tags}
		if !node.IsCompatible(compatible) {
			return nil
		}
		node.GPIOs, err = d.readGPIOs(p)
		if err != nil {
			return err
		}
		found = node
		return fs.SkipAll
	})
	if err != nil {
		return nil, fmt.Errorf("walk device tree %s: %w", d.root, err)
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no node compatible with %q in %s", ErrNotFound, compatible, d.root)
	}
	return found, nil
}

// readGPIOs decodes every "*-gpios" / "*,gpios" property of the node at dir.
// Properties that do not use the 3-cell specifier layout belong to other
// consumers of the node and are left out of the map.
func (d *DeviceTree) readGPIOs(dir string) (map[string][]int, error) {
	entries, err := fs.ReadDir(d.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read node %s: %w", dir, err)
	}
	gpios := make(map[string][]int)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isGPIOProperty(name) {
			continue
		}
		raw, err := fs.ReadFile(d.fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s/%s: %w", dir, name, err)
		}
		offsets, err := decodeGPIOSpecifiers(raw)
		if err != nil {
			continue
		}
		gpios[name] = offsets
	}
	return gpios, nil
}

// decodeGPIOSpecifiers returns the line offset of every specifier in a
// big-endian cell array.
func decodeGPIOSpecifiers(raw []byte) ([]int, error) {
	const specLen = gpioSpecifierCells * 4
	if len(raw)%specLen != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of %d", len(raw), specLen)
	}
	offsets := make([]int, 0, len(raw)/specLen)
	for i := 0; i < len(raw); i += specLen {
		offsets = append(offsets, int(binary.BigEndian.Uint32(raw[i+4:i+8])))
	}
	return offsets, nil
}

func isGPIOProperty(name string) bool {
	return name == "gpios" || strings.HasSuffix(name, "-gpios") || strings.HasSuffix(name, ",gpios")
}

// splitStrings splits a NUL-separated device tree string list.
func splitStrings(raw []byte) []string {
	raw = bytes.TrimRight(raw, "\x00")
	if len(raw) == 0 {
		return nil
	}
	parts := bytes.Split(raw, []byte{0})
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

func nodePath(p string) string {
	if p == "." {
		return "/"
	}
	return "/" + p
}
