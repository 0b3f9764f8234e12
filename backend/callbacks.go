// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package backend

import "github.com/sfan5/dnshammer/wire"

// QueryID is an opaque handle the host uses to identify a query. The
// backend never inspects it beyond passing it back through its callbacks;
// the host's Question callback is what turns it into an actual question to
// send.
type QueryID uint64

// Callbacks are the host's hooks into the pipeline. All three are invoked
// with Backend.mu released, so a Timeout callback is free to call Queue
// again to retry.
type Callbacks struct {
	// Question returns the question to send for id. Called from the send
	// loop once a resolver with spare capacity has been claimed for id.
	Question func(id QueryID) wire.Question

	// Answer is invoked once per matched response.
	Answer func(id QueryID, pkt *wire.Packet)

	// Timeout is invoked when a query outlives Config.Timeout without an
	// answer. The host decides whether to give up or requeue via Queue.
	Timeout func(id QueryID, q wire.Question)
}
