// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package query is the application layer built on top of package backend:
// it loads resolver and question lists, drives a Backend through a full
// run, watches for a stalled queue, and reports results.
package query
