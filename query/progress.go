// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"
	"time"
)

// watchProgress samples backend throughput once a second and declares a
// stall after Config.Timeout+1 consecutive samples with nothing sent,
// mirroring original_source's hang_count check in query_main. It returns
// nil for a clean finish (send queue drained) or ErrStall.
func (d *Driver) watchProgress() error {
	stallLimit := int(d.cfg.Timeout/time.Second) + 1
	if stallLimit < 1 {
		stallLimit = 1
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	hangCount := 0
	for range ticker.C {
		stats := d.be.Stats()
		d.totalSent.Add(stats.Sent)

		if stats.Sent == 0 {
			hangCount++
		} else {
			hangCount = 0
		}

		if !d.cfg.Quiet {
			fmt.Fprintf(d.cfg.Output, "\rsent=%d answered=%d timedOut=%d queue=%d",
				d.totalSent.Load(), d.answered.Load(), d.timedOut.Load(), stats.QueueSize)
		}

		if hangCount >= stallLimit {
			if !d.cfg.Quiet {
				fmt.Fprintln(d.cfg.Output)
			}
			if stats.QueueSize > 0 {
				return ErrStall
			}
			return nil
		}
	}
	return nil
}
