package inspect

import (
	"context"
	"errors"
	"fmt"

	"github.com/libratbag/ratbag-go/pkg/interaction"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

// Inspector errors.
var (
	ErrNoMember     = errors.New("path has no member")
	ErrNotWritable  = errors.New("member is not writable")
	ErrNotCallable  = errors.New("member is not a method")
	ErrUnknownField = errors.New("unknown member")
)

// Session is the part of a daemon connection the inspector needs.
// *interaction.Client implements it.
type Session interface {
	Get(ctx context.Context, path, member string) (any, error)
	Set(ctx context.Context, path, member string, value any) error
	Call(ctx context.Context, path, member string, arg any) (any, error)
	GetAll(ctx context.Context, path string) (wire.GetAllPayload, error)
	GetPaths(ctx context.Context, path, member string) ([]string, error)
}

// Node is one object of the tree returned by Inspector.Tree.
type Node struct {
	Path       string
	Kind       interaction.Kind
	Properties wire.GetAllPayload
	Children   []*Node
}

// Walk calls fn for n and its descendants, depth first.
func (n *Node) Walk(fn func(n *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// childLists names the properties that list child object paths, per kind.
var childLists = map[interaction.Kind][]string{
	interaction.KindManager: {"Devices"},
	interaction.KindDevice:  {"Profiles"},
	interaction.KindProfile: {"Resolutions", "Buttons", "Leds"},
}

// Inspector reads and mutates objects of a remote daemon.
type Inspector struct {
	session Session
}

// NewInspector creates an inspector on top of session.
func NewInspector(session Session) *Inspector {
	return &Inspector{session: session}
}

// Read reads the member at path, or every property of the object when
// path has no member.
func (i *Inspector) Read(ctx context.Context, path *Path) (any, error) {
	if path == nil {
		return nil, ErrEmptyPath
	}
	if path.Member == "" {
		return i.session.GetAll(ctx, path.Object)
	}
	return i.session.Get(ctx, path.Object, path.Member)
}

// Write parses input for the member at path and sets it.
func (i *Inspector) Write(ctx context.Context, path *Path, input string) error {
	if path == nil {
		return ErrEmptyPath
	}
	if path.Member == "" {
		return ErrNoMember
	}
	access, ok := interaction.LookupMember(path.Kind, path.Member)
	if !ok {
		return fmt.Errorf("%w: %s has no member %q", ErrUnknownField, path.Kind, path.Member)
	}
	if access&interaction.AccessWrite == 0 {
		return fmt.Errorf("%w: %s.%s", ErrNotWritable, path.Kind, path.Member)
	}

	value, err := ParseValue(path.Kind, path.Member, input)
	if err != nil {
		return err
	}
	return i.session.Set(ctx, path.Object, path.Member, value)
}

// Invoke calls the method at path.
func (i *Inspector) Invoke(ctx context.Context, path *Path, arg any) (any, error) {
	if path == nil {
		return nil, ErrEmptyPath
	}
	if path.Member == "" {
		return nil, ErrNoMember
	}
	access, ok := interaction.LookupMember(path.Kind, path.Member)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no member %q", ErrUnknownField, path.Kind, path.Member)
	}
	if access&interaction.AccessCall == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotCallable, path.Kind, path.Member)
	}
	return i.session.Call(ctx, path.Object, path.Member, arg)
}

// Tree reads the object at objectPath and everything below it.
func (i *Inspector) Tree(ctx context.Context, objectPath string) (*Node, error) {
	op, err := interaction.ParsePath(objectPath)
	if err != nil {
		return nil, err
	}

	props, err := i.session.GetAll(ctx, objectPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", objectPath, err)
	}
	node := &Node{Path: objectPath, Kind: op.Kind, Properties: props}

	for _, list := range childLists[op.Kind] {
		children, err := i.session.GetPaths(ctx, objectPath, list)
		if err != nil {
			return nil, fmt.Errorf("read %s.%s: %w", objectPath, list, err)
		}
		for _, child := range children {
			c, err := i.Tree(ctx, child)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, c)
		}
	}
	return node, nil
}

// Devices returns the sysnames of the daemon's devices.
func (i *Inspector) Devices(ctx context.Context) ([]string, error) {
	paths, err := i.session.GetPaths(ctx, model.RootPath, "Devices")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		op, err := interaction.ParsePath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, op.Sysname)
	}
	return out, nil
}
