// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Command dnshammer sends a batch of DNS queries through the async pipeline
// in package backend, spread across a pool of resolvers, and reports which
// names resolved.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sfan5/dnshammer/query"
)

func main() {
	p, usage, err := obtainParams(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if p.help {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <query-file>\n%s\n", os.Args[0], usage)
		return
	}
	defer p.closeFiles()

	log := newLogger(p.quiet)
	defer log.Sync()

	d := query.NewDriver(query.Config{
		Resolvers:   p.resolvers,
		Questions:   p.questions,
		MaxInFlight: p.concurrent,
		Timeout:     p.timeout,
		Logger:      log,
		Output:      p.output,
		Quiet:       p.quiet,
	})

	if err := d.Run(); err != nil {
		if errors.Is(err, query.ErrStall) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
