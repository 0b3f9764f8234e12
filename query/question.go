// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package query

import "github.com/miekg/dns"

// typeA is the only question type original_source's parse_query_list ever
// produces; every name read from the query file is looked up as an A
// record.
const typeA = dns.TypeA
