// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"
	"sort"

	"golang.org/x/net/publicsuffix"
)

// printReport writes each answered name to Output, then a summary of
// successful lookups grouped by registered domain (eTLD+1), the way
// wildcards.go in the pack idiom uses publicsuffix to reason about a name
// in terms of the domain that issued it — here repurposed for reporting
// instead of wildcard comparison.
func (d *Driver) printReport() {
	for {
		v, ok := d.out.Next()
		if !ok {
			break
		}
		res, ok := v.(*Result)
		if !ok || res == nil {
			continue
		}
		if !d.cfg.Quiet {
			fmt.Fprintln(d.cfg.Output, formatResult(res))
		}
	}

	d.mu.Lock()
	names := append([]string(nil), d.success...)
	d.mu.Unlock()

	byDomain := make(map[string]int)
	for _, name := range names {
		domain, err := publicsuffix.EffectiveTLDPlusOne(name)
		if err != nil {
			domain = name
		}
		byDomain[domain]++
	}

	domains := make([]string, 0, len(byDomain))
	for domain := range byDomain {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	fmt.Fprintf(d.cfg.Output, "\n%d of %d names resolved successfully\n", len(names), len(d.cfg.Questions))
	for _, domain := range domains {
		fmt.Fprintf(d.cfg.Output, "  %-40s %d\n", domain, byDomain[domain])
	}
}

func formatResult(r *Result) string {
	if !r.Success {
		return fmt.Sprintf("%s\tFAIL (rcode=%d)", r.Question.Name, r.Rcode)
	}
	out := r.Question.Name + "\tOK"
	for _, a := range r.Answers {
		out += "\n  " + a.String()
	}
	return out
}
