// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	filesDecoded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fsevents_files_decoded",
		Help: "Count of files decoded to the end.",
	})

	membersDecoded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fsevents_members_decoded",
		Help: "Count of gzip members decompressed.",
	})

	pagesDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fsevents_pages_decoded",
		Help: "Count of pages framed, by layout version.",
	}, []string{"version"})

	recordsDecoded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fsevents_records_decoded",
		Help: "Count of records decoded.",
	})

	diagnosticsReported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fsevents_diagnostics",
		Help: "Count of non-fatal decoding problems, by kind.",
	}, []string{"kind"})

	orderViolations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fsevents_event_id_order_violations",
		Help: "Count of records with an event ID lower than the previous non-boundary record.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		filesDecoded,
		membersDecoded,
		pagesDecoded,
		recordsDecoded,
		diagnosticsReported,
		orderViolations,
	)
}
