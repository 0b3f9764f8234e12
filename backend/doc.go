// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package backend implements the asynchronous query pipeline: a send loop
// that drains an application-supplied queue of questions across a pool of
// resolvers under a per-resolver in-flight cap, a receive loop that matches
// incoming answers back to their pending query by transaction id, and a
// timeout loop that evicts queries a resolver never answered.
//
// All three loops share one mutex guarding the send queue, the resolver
// slots and the pending table. Encoding, decoding, socket I/O and the
// host's callbacks are always performed with the mutex released, so a
// callback may call Backend.Queue without deadlocking.
package backend
