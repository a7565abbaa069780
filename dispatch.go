// dispatch.go: Hook selection and invocation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package mist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

type hookKind int

const (
	hookHelp hookKind = iota
	hookValidate
	hookTeardown
	hookRun
)

func (k hookKind) String() string {
	switch k {
	case hookHelp:
		return "help"
	case hookValidate:
		return "validate"
	case hookTeardown:
		return "teardown"
	case hookRun:
		return "run"
	default:
		return "unknown"
	}
}

func (c *Command) defines(kind hookKind) bool {
	switch kind {
	case hookHelp:
		return c.Help != nil
	case hookValidate:
		return c.Validate != nil
	case hookTeardown:
		return c.Teardown != nil
	case hookRun:
		return c.Run != nil
	}
	return false
}

// findHook returns the nearest command defining kind, starting at the
// resolved node and walking the ancestors from nearest to farthest.
func findHook(inv *invocation, kind hookKind) *Command {
	if inv.node.defines(kind) {
		return inv.node
	}
	for i := len(inv.ancestors) - 1; i >= 0; i-- {
		if inv.ancestors[i].defines(kind) {
			return inv.ancestors[i]
		}
	}
	return nil
}

// validatorFor picks the validator for inv. A Validate hook wins over a
// NoValidate at the same node; the nearest node expressing either decides.
// It returns nil when validation is suppressed.
func validatorFor(inv *invocation) ValidateFunc {
	check := func(n *Command) (ValidateFunc, bool) {
		if n.Validate != nil {
			return n.Validate, true
		}
		if n.NoValidate {
			return nil, true
		}
		return nil, false
	}
	if v, ok := check(inv.node); ok {
		return v
	}
	for i := len(inv.ancestors) - 1; i >= 0; i-- {
		if v, ok := check(inv.ancestors[i]); ok {
			return v
		}
	}
	return DefaultValidator
}

// Dispatcher parses token sequences against a command tree and runs the
// selected hooks. A Dispatcher is safe for concurrent use as long as the
// tree is not modified.
type Dispatcher struct {
	root      *Command
	opts      *Options
	logger    *slog.Logger
	shutdown  *Shutdown
	audit     *AuditLogger
	ownsAudit bool
}

// NewDispatcher validates opts and prepares a dispatcher for root. A nil
// opts uses the defaults. When auditing is enabled and no AuditLogger is
// supplied, one is opened and released by Close.
func NewDispatcher(root *Command, opts *Options) (*Dispatcher, error) {
	if root == nil {
		return nil, configError("dispatcher needs a root command")
	}
	o := opts.WithDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		root:     root,
		opts:     o,
		logger:   o.Logger,
		shutdown: o.Shutdown,
		audit:    o.AuditLogger,
	}
	if d.audit == nil && o.Audit.Enabled {
		audit, err := NewAuditLogger(o.Audit)
		if err != nil {
			return nil, err
		}
		d.audit = audit
		d.ownsAudit = true
	}
	return d, nil
}

// Root returns the command tree the dispatcher serves.
func (d *Dispatcher) Root() *Command { return d.root }

// Shutdown returns the registry receiving teardown hooks.
func (d *Dispatcher) Shutdown() *Shutdown { return d.shutdown }

// Close releases the audit logger opened by NewDispatcher.
func (d *Dispatcher) Close() error {
	if d.ownsAudit && d.audit != nil {
		return d.audit.Close()
	}
	return nil
}

// Dispatch parses args and runs the hooks of the resolved command:
//
//  1. help, when requested, and nothing else
//  2. validation
//  3. teardown registration
//  4. run
//
// It returns the value of the help or run hook, or the parse Result when
// the tree defines no run hook.
func (d *Dispatcher) Dispatch(ctx context.Context, args []string) (any, error) {
	inv := d.root.parse(args, d.logger)
	res, node := inv.result, inv.node
	logger := d.logger.With("command", node.CommandPath())
	ctx = WithLogger(ctx, logger)

	logger.Debug("resolved invocation",
		"flags", len(res.Flags),
		"positionals", len(res.Positionals),
		"passthrough", len(res.Passthrough))
	d.audit.LogDispatch(node, args, res)

	if res.Help() {
		return d.help(inv)
	}

	if validate := validatorFor(inv); validate != nil {
		if err := validate(res, node); err != nil {
			logger.Debug("validation failed", "error", err)
			d.audit.LogOutcome(AuditEventValidationFailed, node, err, 0)
			return nil, err
		}
	}

	if owner := findHook(inv, hookTeardown); owner != nil {
		teardown := owner.Teardown
		d.shutdown.Register(node.CommandPath(), func(ctx context.Context) error {
			start := timecache.CachedTimeNano()
			err := teardown(WithLogger(ctx, logger), res, node)
			d.audit.LogOutcome(AuditEventTeardown, node, err, time.Duration(timecache.CachedTimeNano()-start))
			return err
		})
	}

	owner := findHook(inv, hookRun)
	if owner == nil {
		logger.Debug("no run hook, returning parse result")
		return res, nil
	}

	start := timecache.CachedTimeNano()
	out, err := owner.Run(ctx, res, node)
	elapsed := time.Duration(timecache.CachedTimeNano() - start)
	if err != nil {
		d.audit.LogOutcome(AuditEventRunFailed, node, err, elapsed)
		if ErrorCode(err) == "" {
			err = errors.Wrap(err, ErrCodeHookFailed, fmt.Sprintf("command %q failed", node.CommandPath()))
		}
		return out, err
	}
	d.audit.LogOutcome(AuditEventRunCompleted, node, nil, elapsed)
	return out, nil
}

func (d *Dispatcher) help(inv *invocation) (any, error) {
	d.audit.LogOutcome(AuditEventHelp, inv.node, nil, 0)
	if owner := findHook(inv, hookHelp); owner != nil {
		return owner.Help(inv.node)
	}
	return TextHelp(d.opts.Output)(inv.node)
}

// Dispatch runs args against the tree rooted at c with default options.
// Teardown hooks are registered on DefaultShutdown, which Dispatch neither
// listens on nor fires. Callers must install DefaultShutdown().Listen() or
// end the process through DefaultShutdown().Fire or Exit, otherwise pending
// teardown hooks never run. Execute does both.
func (c *Command) Dispatch(ctx context.Context, args []string) (any, error) {
	d, err := NewDispatcher(c, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = d.Close() }()
	return d.Dispatch(ctx, args)
}

// Execute is the process-level entry point. It listens for termination
// signals, dispatches args, reports any error on ErrOutput and fires the
// shutdown registry. The returned exit status is ExitOK, ExitUsage for
// bad input or ExitError for everything else.
func Execute(ctx context.Context, root *Command, args []string, opts *Options) (code int) {
	o := opts.WithDefaults()
	d, err := NewDispatcher(root, o)
	if err != nil {
		fmt.Fprintf(o.ErrOutput, "Error: %v\n", err)
		return ExitError
	}
	defer func() {
		if err := d.Close(); err != nil {
			o.Logger.Warn("failed to close audit logger", "error", err)
		}
	}()

	stop := d.shutdown.Listen()
	defer stop()

	// Teardown fires on every exit path, including a panicking hook.
	defer func() {
		r := recover()
		fireCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.ShutdownTimeout)
		defer cancel()
		if shutdownErr := d.shutdown.Fire(fireCtx); shutdownErr != nil {
			o.Logger.Error("teardown failed", "error", shutdownErr)
			if err == nil {
				err = shutdownErr
			}
		}
		if r != nil {
			panic(r)
		}
		code = exitCodeFor(err)
	}()

	_, err = d.Dispatch(ctx, args)
	if err != nil {
		fmt.Fprintf(o.ErrOutput, "Error: %v\n", err)
	}
	return exitCodeFor(err)
}
