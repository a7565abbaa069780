// Utility functions for the mist CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/agilira/mist"
	"github.com/agilira/orpheus/pkg/orpheus"
	"go.yaml.in/yaml/v3"
)

// requireArg returns positional argument i or a usage error naming it.
func requireArg(ctx *orpheus.Context, i int, name string) (string, error) {
	if v := ctx.GetArg(i); v != "" {
		return v, nil
	}
	return "", errors.New(mist.ErrCodeMissingArgument, fmt.Sprintf("missing required argument <%s>", name))
}

// restArgs returns the positional arguments from index start on.
func restArgs(ctx *orpheus.Context, start int) []string {
	var out []string
	for i := start; ; i++ {
		v := ctx.GetArg(i)
		if v == "" {
			return out
		}
		out = append(out, v)
	}
}

// outputFormat accepts json and yaml only.
func outputFormat(name string) (mist.DefinitionFormat, error) {
	switch format := mist.ParseFormat(name); format {
	case mist.FormatJSON, mist.FormatYAML:
		return format, nil
	default:
		return mist.FormatUnknown, errors.New(mist.ErrCodeInvalidOptions, fmt.Sprintf("unsupported output format: %s", name))
	}
}

// writeEncoded prints v as indented JSON or YAML.
func (m *Manager) writeEncoded(format mist.DefinitionFormat, v any) error {
	var (
		data []byte
		err  error
	)
	if format == mist.FormatYAML {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.Wrap(err, mist.ErrCodeIOError, "failed to encode output")
	}
	_, err = m.out.Write(data)
	return err
}

// walk visits cmd and its descendants depth first, in registration order.
func walk(cmd *mist.Command, visit func(cmd *mist.Command, depth int)) {
	var rec func(*mist.Command, int)
	rec = func(c *mist.Command, depth int) {
		visit(c, depth)
		for _, child := range c.Children() {
			rec(child, depth+1)
		}
	}
	rec(cmd, 0)
}

// openAudit returns the configured audit logger, or opens the trail at
// file (the shared database when empty). release closes what was opened.
func (m *Manager) openAudit(file string) (*mist.AuditLogger, func(), error) {
	if m.auditLogger != nil && file == "" {
		return m.auditLogger, func() {}, nil
	}
	logger, err := mist.NewAuditLogger(mist.AuditConfig{
		Enabled:    true,
		OutputFile: file,
		MinLevel:   mist.AuditInfo,
		BufferSize: 1,
	})
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Close() }, nil
}

func writeCounts(w io.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		label := k
		if label == "" {
			label = "(none)"
		}
		fmt.Fprintf(w, "  %-24s %d\n", label, counts[k])
	}
}

func timeAgo(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return timecache.CachedTime().Add(-d)
}

var extendedDurationRe = regexp.MustCompile(`^(\d+)(d|w)$`)

// parseExtendedDuration parses duration strings with extended units (d, w).
// Supports all Go standard units (ns, us, ms, s, m, h) plus:
// - d: days (24 hours)
// - w: weeks (7 days)
//
// Examples: "30d", "2w", "7d", "24h", "5m", "30s"
func parseExtendedDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	matches := extendedDurationRe.FindStringSubmatch(s)
	if len(matches) != 3 {
		_, err := time.ParseDuration(s)
		return 0, err
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	switch matches[2] {
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	}
}
