// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sfan5/dnshammer/query"
)

const (
	defaultConcurrent = 10
	defaultTimeout    = 5 * time.Second
)

type params struct {
	help       bool
	quiet      bool
	concurrent int
	timeout    time.Duration

	resolvers []netip.AddrPort
	questions []query.Question

	output  io.Writer
	closers []io.Closer
}

func (p *params) closeFiles() {
	for _, c := range p.closers {
		c.Close()
	}
}

// obtainParams parses argv into a params, following the same
// flag.NewFlagSet-with-a-buffer pattern the rest of the pack uses so usage
// text can be captured and printed under our own banner instead of the
// default one.
func obtainParams(args []string) (*params, string, error) {
	var rpath, opath string

	buf := new(bytes.Buffer)
	flags := flag.NewFlagSet("dnshammer", flag.ContinueOnError)
	flags.SetOutput(buf)

	p := &params{output: os.Stdout}
	flags.BoolVar(&p.help, "h", false, "Print usage information")
	flags.BoolVar(&p.quiet, "q", false, "Quiet mode, suppress per-query output")
	flags.IntVar(&p.concurrent, "c", defaultConcurrent, "Maximum in-flight queries per resolver")
	flags.DurationVar(&p.timeout, "timeout", defaultTimeout, "How long to wait for a response before retrying")
	flags.StringVar(&rpath, "r", "", "File containing one DNS resolver per line (required)")
	flags.StringVar(&opath, "o", "", "Write the report to the specified file (default stdout)")

	if err := flags.Parse(args); err != nil {
		return nil, "", err
	}
	if p.help {
		flags.PrintDefaults()
		return p, buf.String(), nil
	}

	if rpath == "" {
		return nil, "", fmt.Errorf("dnshammer: -r <resolvers-file> is required")
	}
	resolvers, err := query.ParseResolversFile(rpath)
	if err != nil {
		return nil, "", fmt.Errorf("dnshammer: %w", err)
	}
	if len(resolvers) == 0 {
		return nil, "", fmt.Errorf("dnshammer: %s contains no resolvers", rpath)
	}
	p.resolvers = resolvers

	qpath := flags.Arg(0)
	if qpath == "" {
		return nil, "", fmt.Errorf("dnshammer: a query file argument is required")
	}
	questions, err := query.ParseQuestionsFile(qpath)
	if err != nil {
		return nil, "", fmt.Errorf("dnshammer: %w", err)
	}
	if len(questions) == 0 {
		return nil, "", fmt.Errorf("dnshammer: %s contains no names to query", qpath)
	}
	p.questions = questions

	if opath != "" {
		f, err := os.OpenFile(opath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
		if err != nil {
			return nil, "", fmt.Errorf("dnshammer: failed to open output file %s: %w", opath, err)
		}
		p.output = f
		p.closers = append(p.closers, f)
	}

	return p, "", nil
}

// newLogger builds a zap logger the way SubdomainSleuth does: development
// config so it prints readable console output, quiet mode raising the
// level so only warnings and above are shown.
func newLogger(quiet bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	level := zapcore.InfoLevel
	if quiet {
		level = zapcore.WarnLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
