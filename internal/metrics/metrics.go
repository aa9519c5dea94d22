package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leakbox_reports_submitted_total",
		Help: "Reports created through the submit endpoint.",
	})
	ReportsAudited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leakbox_reports_audited_total",
		Help: "Audit flag updates applied.",
	})
	ReportsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leakbox_reports_deleted_total",
		Help: "Reports deleted, including cascaded attachments.",
	})
	AttachmentsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leakbox_attachments_stored_total",
		Help: "Attachment files persisted to the blob store.",
	})
)
