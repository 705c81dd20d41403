package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/libratbag/ratbag-go/pkg/inspect"
	"github.com/libratbag/ratbag-go/pkg/interaction"
	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

// session runs commands against one daemon connection. The one-shot
// commands and the shell share it.
type session struct {
	client    *interaction.Client
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	out       io.Writer
	in        io.Reader
}

func newSession(client *interaction.Client, out io.Writer, in io.Reader) *session {
	return &session{
		client:    client,
		inspector: inspect.NewInspector(client),
		formatter: inspect.NewFormatter(),
		out:       out,
		in:        in,
	}
}

// list prints one line per device: sysname, name and model.
func (s *session) list(ctx context.Context) error {
	paths, err := s.client.Devices(ctx)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(s.out, "No devices.")
		return nil
	}
	for _, p := range paths {
		props, err := s.client.GetAll(ctx, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		sysname, _ := wire.ExtractString(props["Sysname"])
		name, _ := wire.ExtractString(props["Name"])
		mdl, _ := wire.ExtractString(props["Model"])
		fmt.Fprintf(s.out, "%-16s %s (%s)\n", sysname+":", name, mdl)
	}
	return nil
}

// show prints the object tree below target, or the whole daemon when
// target is empty.
func (s *session) show(ctx context.Context, target string) error {
	if target == "" {
		target = inspect.ManagerElement
	}
	p, err := inspect.ParsePath(target)
	if err != nil {
		return err
	}
	if p.Member != "" {
		return s.get(ctx, target)
	}

	root, err := s.inspector.Tree(ctx, p.Object)
	if err != nil {
		return err
	}
	root.Walk(func(n *inspect.Node, depth int) {
		fmt.Fprintln(s.out, s.formatter.Indent(depth, fmt.Sprintf("%s [%s]", n.Path, n.Kind)))
		fmt.Fprint(s.out, s.formatter.FormatProperties(n.Kind, n.Properties, depth+1))
	})
	return nil
}

// get prints one member, or every property of an object.
func (s *session) get(ctx context.Context, target string) error {
	p, err := inspect.ParsePath(target)
	if err != nil {
		return err
	}
	v, err := s.inspector.Read(ctx, p)
	if err != nil {
		return err
	}
	if p.Member == "" {
		props, _ := v.(wire.GetAllPayload)
		fmt.Fprint(s.out, s.formatter.FormatProperties(p.Kind, props, 0))
		return nil
	}
	fmt.Fprintln(s.out, s.formatter.FormatMember(p.Kind, p.Member, v))
	return nil
}

func (s *session) set(ctx context.Context, target, value string) error {
	p, err := inspect.ParsePath(target)
	if err != nil {
		return err
	}
	if err := s.inspector.Write(ctx, p, value); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "OK (commit %s to apply)\n", deviceOf(p))
	return nil
}

// call invokes a method. A non-empty arg is passed as a string.
func (s *session) call(ctx context.Context, target, arg string) error {
	p, err := inspect.ParsePath(target)
	if err != nil {
		return err
	}
	var a any
	if arg != "" {
		a = arg
	}
	v, err := s.inspector.Invoke(ctx, p, a)
	if err != nil {
		return err
	}
	if v != nil {
		fmt.Fprintln(s.out, s.formatter.FormatValue(v))
	} else {
		fmt.Fprintln(s.out, "OK")
	}
	return nil
}

// loadTestDevice loads a description from a file, from the session input
// when source is "-", or the default device when source is empty.
func (s *session) loadTestDevice(ctx context.Context, source string) error {
	var doc []byte
	var err error
	switch source {
	case "":
	case "-":
		doc, err = io.ReadAll(s.in)
	default:
		doc, err = os.ReadFile(source)
	}
	if err != nil {
		return fmt.Errorf("reading device description: %w", err)
	}

	path, err := s.client.LoadTestDevice(ctx, string(doc))
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, path)
	return nil
}

func (s *session) resetTestDevice(ctx context.Context) error {
	if err := s.client.ResetTestDevice(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "OK")
	return nil
}

func (s *session) reset(ctx context.Context) error {
	if err := s.client.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "OK")
	return nil
}

// commit commits the device target belongs to.
func (s *session) commit(ctx context.Context, target string) error {
	p, err := inspect.ParsePath(target)
	if err != nil {
		return err
	}
	if p.Kind == interaction.KindManager {
		return fmt.Errorf("%w: commit needs a device", inspect.ErrInvalidPath)
	}
	device := deviceOf(p)
	if err := s.client.Commit(ctx, device); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Committed %s\n", device)
	return nil
}

// deviceOf returns the device object path p lives under.
func deviceOf(p *inspect.Path) string {
	op, err := interaction.ParsePath(p.Object)
	if err != nil || op.Sysname == "" {
		return p.Object
	}
	return model.DevicePath(op.Sysname)
}

// describe prefixes daemon errors with their status so the user sees
// which kind of failure occurred.
func describe(err error) error {
	var se *interaction.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("%s: %w", strings.ToLower(se.Status.String()), err)
	}
	return err
}
