// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/caffix/stringset"
)

const defaultDNSPort = 53

// Question is one name/type pair to resolve.
type Question struct {
	Name string
	Type uint16
}

// ParseResolversFile reads one resolver per line ("ip" or "ip:port") and
// rejects duplicate addresses, matching the dedup original_source's
// parse_resolver_list performs with is_ip_duplicate — done here with a
// stringset instead of the original's O(n^2) scan.
func ParseResolversFile(path string) ([]netip.AddrPort, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := stringset.New()
	defer seen.Close()

	var out []netip.AddrPort
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, err := parseResolverLine(line)
		if err != nil {
			return nil, fmt.Errorf("resolver %q: %w", line, err)
		}
		key := addr.String()
		if seen.Has(key) {
			return nil, fmt.Errorf("duplicate resolver: %s", key)
		}
		seen.Insert(key)
		out = append(out, addr)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseResolverLine(line string) (netip.AddrPort, error) {
	if ap, err := netip.ParseAddrPort(line); err == nil {
		return ap, nil
	}
	addr, err := netip.ParseAddr(line)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return netip.AddrPortFrom(addr, defaultDNSPort), nil
}

// ParseQuestionsFile reads one name per line, all queried for A records —
// matching original_source's parse_query_list.
func ParseQuestionsFile(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseQuestions(f)
}

func parseQuestions(r io.Reader) ([]Question, error) {
	var out []Question
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, Question{Name: line, Type: typeA})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
